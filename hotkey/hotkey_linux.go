//go:build linux

package hotkey

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/micha/meeting-notes/logging"
)

// inputEvent matches the Linux struct input_event layout.
//
//	struct input_event {
//	    struct timeval time;  // 16 bytes on 64-bit (8 sec + 8 usec)
//	    __u16 type;
//	    __u16 code;
//	    __s32 value;
//	};
type inputEvent struct {
	TimeSec  int64
	TimeUsec int64
	Type     uint16
	Code     uint16
	Value    int32
}

const (
	evKey     = 1 // EV_KEY
	keyPress  = 1 // key down
	inputSize = int(unsafe.Sizeof(inputEvent{}))
)

var log = logging.L("hotkey")

// ErrNoAccess means no input device could be opened.
var ErrNoAccess = errors.New("could not open any input devices. Run as root or add your user to the 'input' group: sudo usermod -aG input $USER")

func decodeEvent(buf []byte) inputEvent {
	return inputEvent{
		Type:  binary.LittleEndian.Uint16(buf[16:18]),
		Code:  binary.LittleEndian.Uint16(buf[18:20]),
		Value: int32(binary.LittleEndian.Uint32(buf[20:24])),
	}
}

// match returns the watched key a key-down event is for.
func (l *Listener) match(ev inputEvent) (uint16, bool) {
	if ev.Type != evKey || ev.Value != keyPress || !l.keys[ev.Code] {
		return 0, false
	}
	return ev.Code, true
}

// findKeyboardDevices returns the event devices under root whose sysfs
// name looks like a keyboard, or every event device when none does.
func findKeyboardDevices(root string) ([]string, error) {
	all, err := filepath.Glob(filepath.Join(root, "dev/input/event*"))
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, dev := range all {
		if isKeyboard(root, filepath.Base(dev)) {
			keyboards = append(keyboards, dev)
		}
	}
	if len(keyboards) == 0 {
		return all, nil
	}
	return keyboards, nil
}

func isKeyboard(root, event string) bool {
	raw, err := os.ReadFile(filepath.Join(root, "sys/class/input", event, "device/name"))
	if err != nil {
		return false
	}
	name := strings.ToLower(string(raw))
	return strings.Contains(name, "keyboard") || strings.Contains(name, "kbd")
}

// openDevices opens what it can; unreadable devices are skipped.
func openDevices(paths []string) []*os.File {
	var files []*os.File
	for _, dev := range paths {
		f, err := os.Open(dev)
		if err != nil {
			log.Debugw("cannot open input device", "device", dev, logging.KeyError, err)
			continue
		}
		files = append(files, f)
	}
	return files
}

// readEvents delivers watched key presses read from r until r fails.
func (l *Listener) readEvents(r io.Reader) {
	buf := make([]byte, inputSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return
		}
		if code, ok := l.match(decodeEvent(buf)); ok {
			l.deliver(code)
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	devices, err := findKeyboardDevices("/")
	if err != nil {
		return fmt.Errorf("find keyboard devices: %w", err)
	}
	if len(devices) == 0 {
		return errors.New("no input devices in /dev/input")
	}

	files := openDevices(devices)
	if len(files) == 0 {
		return ErrNoAccess
	}
	log.Debugw("watching input devices", "devices", len(files), "keys", l.names())

	for _, f := range files {
		go l.readEvents(f)
	}
	<-ctx.Done()
	// Closing unblocks the readers.
	for _, f := range files {
		f.Close()
	}
	return ctx.Err()
}
