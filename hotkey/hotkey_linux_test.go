//go:build linux

package hotkey

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawEvent(typ, code uint16, value int32) []byte {
	buf := make([]byte, inputSize)
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	return buf
}

func TestMatchWatchedKeyDown(t *testing.T) {
	l := NewListener(KeyF9, KeyF10)

	code, ok := l.match(decodeEvent(rawEvent(evKey, KeyF10, keyPress)))
	require.True(t, ok)
	assert.Equal(t, uint16(KeyF10), code)

	_, ok = l.match(decodeEvent(rawEvent(evKey, KeyF9, 0)))
	assert.False(t, ok, "key release")
	_, ok = l.match(decodeEvent(rawEvent(evKey, KeyF9, 2)))
	assert.False(t, ok, "autorepeat")
	_, ok = l.match(decodeEvent(rawEvent(evKey, KeyF1, keyPress)))
	assert.False(t, ok, "unwatched key")
	_, ok = l.match(decodeEvent(rawEvent(0, KeyF9, keyPress)))
	assert.False(t, ok, "not a key event")
}

func TestDeliverDropsWhenFull(t *testing.T) {
	l := NewListener(KeyF9)
	l.deliver(KeyF9)
	l.deliver(KeyF9)

	assert.Equal(t, uint16(KeyF9), <-l.KeyPressed())
	select {
	case <-l.KeyPressed():
		t.Fatal("second press should have been dropped")
	default:
	}
}

func TestFindKeyboardDevices(t *testing.T) {
	root := t.TempDir()
	for dev, name := range map[string]string{
		"event0": "Power Button",
		"event3": "AT Translated Set 2 keyboard",
	} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "dev/input"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "dev/input", dev), nil, 0o644))
		dir := filepath.Join(root, "sys/class/input", dev, "device")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "name"), []byte(name+"\n"), 0o644))
	}

	devices, err := findKeyboardDevices(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "dev/input/event3")}, devices)
}

func TestFindKeyboardDevicesFallsBackToAll(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dev/input"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "dev/input/event5"), nil, 0o644))

	devices, err := findKeyboardDevices(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "dev/input/event5")}, devices)
}

func TestReadEventsDeliversWatchedPresses(t *testing.T) {
	l := NewListener(KeyF9, KeyF10)
	var stream bytes.Buffer
	stream.Write(rawEvent(evKey, KeyF1, keyPress))
	stream.Write(rawEvent(evKey, KeyF9, keyPress))
	stream.Write(rawEvent(evKey, KeyF9, 0))
	stream.Write(rawEvent(evKey, KeyF10, keyPress))
	stream.Write([]byte{1, 2, 3}) // truncated trailing event

	l.readEvents(&stream)

	assert.Equal(t, uint16(KeyF9), <-l.KeyPressed())
	assert.Equal(t, uint16(KeyF10), <-l.KeyPressed())
	select {
	case code := <-l.KeyPressed():
		t.Fatalf("unexpected press %d", code)
	default:
	}
	assert.Equal(t, []string{"F10", "F9"}, l.names())
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "F10", KeyName(KeyF10))
	assert.Equal(t, "key 30", KeyName(30))

	code, err := ParseKey(" f9 ")
	require.NoError(t, err)
	assert.Equal(t, uint16(KeyF9), code)

	_, err = ParseKey("ctrl")
	assert.Error(t, err)
}
