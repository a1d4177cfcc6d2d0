package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sinksShort = "56\talsa_output.usb-headset.analog-stereo\tPipeWire\ts16le 2ch 48000Hz\tIDLE\n" +
	"57\talsa_output.pci-0000_00_1f.3.analog-stereo\tPipeWire\ts32le 2ch 48000Hz\tSUSPENDED\n"

const sourcesLong = `Source #55
	State: SUSPENDED
	Name: alsa_output.pci-0000_00_1f.3.analog-stereo.monitor
	Description: Monitor of Built-in Audio Analog Stereo
	Driver: PipeWire

Source #58
	State: RUNNING
	Name: alsa_input.pci-0000_00_1f.3.analog-stereo
	Description: Built-in Audio Analog Stereo
	Driver: PipeWire
`

func TestParseShort(t *testing.T) {
	entries := ParseShort(sinksShort + "\nnot a device line\n")
	require.Len(t, entries, 2)

	assert.Equal(t, "56", entries[0].ID)
	assert.Equal(t, "alsa_output.usb-headset.analog-stereo", entries[0].Name)
	assert.Equal(t, "PipeWire", entries[0].Driver)
	assert.Equal(t, "57", entries[1].ID)
	assert.Equal(t, "SUSPENDED", entries[1].State)
}

func TestFindIDMatchesWholeName(t *testing.T) {
	id, ok := FindID(sinksShort, "alsa_output.pci-0000_00_1f.3.analog-stereo")
	require.True(t, ok)
	assert.Equal(t, "57", id)

	_, ok = FindID(sinksShort, "alsa_output.pci")
	assert.False(t, ok, "a name prefix must not match")

	_, ok = FindID(sinksShort, "")
	assert.False(t, ok)
}

func TestFindDescriptionPrefersNameLine(t *testing.T) {
	// The input's name is a prefix of the monitor's name; only the exact
	// Name: line may anchor the search.
	desc, ok := FindDescription(sourcesLong, "alsa_input.pci-0000_00_1f.3.analog-stereo")
	require.True(t, ok)
	assert.Equal(t, "Built-in Audio Analog Stereo", desc)

	desc, ok = FindDescription(sourcesLong, "alsa_output.pci-0000_00_1f.3.analog-stereo.monitor")
	require.True(t, ok)
	assert.Equal(t, "Monitor of Built-in Audio Analog Stereo", desc)
}

func TestFindDescriptionFallsBackToSubstring(t *testing.T) {
	listing := "Sink #57 alsa_output.speaker\n\tDescription: Speaker\n"
	desc, ok := FindDescription(listing, "alsa_output.speaker")
	require.True(t, ok)
	assert.Equal(t, "Speaker", desc)
}

func TestFindDescriptionOutsideWindow(t *testing.T) {
	listing := "\tName: far\n"
	for i := 0; i < descriptionWindow; i++ {
		listing += "\tProperty: x\n"
	}
	listing += "\tDescription: too late\n"

	_, ok := FindDescription(listing, "far")
	assert.False(t, ok)
}

func TestSameDeviceFoldsCaseAndUnicode(t *testing.T) {
	assert.True(t, SameDevice("Caf\u00e9 Mic", "cafe\u0301 mic"))
	assert.False(t, SameDevice("mic-a", "mic-b"))
}
