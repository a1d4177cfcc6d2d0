// Package hotkey provides global hotkey detection using Linux evdev.
package hotkey

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Key codes (Linux evdev KEY_* constants)
const (
	KeyF1  = 59
	KeyF2  = 60
	KeyF3  = 61
	KeyF4  = 62
	KeyF5  = 63
	KeyF6  = 64
	KeyF7  = 65
	KeyF8  = 66
	KeyF9  = 67
	KeyF10 = 68
	KeyF11 = 87
	KeyF12 = 88
)

var keyNames = map[uint16]string{
	KeyF1: "F1", KeyF2: "F2", KeyF3: "F3", KeyF4: "F4",
	KeyF5: "F5", KeyF6: "F6", KeyF7: "F7", KeyF8: "F8",
	KeyF9: "F9", KeyF10: "F10", KeyF11: "F11", KeyF12: "F12",
}

// KeyName returns the label of a key code, e.g. "F9".
func KeyName(code uint16) string {
	if name, ok := keyNames[code]; ok {
		return name
	}
	return fmt.Sprintf("key %d", code)
}

// ParseKey converts a label such as "f10" into its key code.
func ParseKey(name string) (uint16, error) {
	for code, n := range keyNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return code, nil
		}
	}
	return 0, fmt.Errorf("unknown hotkey %q (want F1-F12)", name)
}

// Listener watches for presses of a set of keys and reports which one was
// pressed.
type Listener struct {
	keyChan chan uint16
	keys    map[uint16]bool
}

// NewListener creates a hotkey listener for the given key codes.
func NewListener(keyCodes ...uint16) *Listener {
	keys := make(map[uint16]bool, len(keyCodes))
	for _, k := range keyCodes {
		keys[k] = true
	}
	return &Listener{
		keyChan: make(chan uint16, len(keyCodes)),
		keys:    keys,
	}
}

// KeyPressed returns a channel that receives the key code each time one of
// the hotkeys is pressed.
func (l *Listener) KeyPressed() <-chan uint16 {
	return l.keyChan
}

// Start begins listening for the hotkeys. It blocks until the context is cancelled.
// Call this in a goroutine.
func (l *Listener) Start(ctx context.Context) error {
	return l.listen(ctx)
}

func (l *Listener) names() []string {
	names := make([]string, 0, len(l.keys))
	for k := range l.keys {
		names = append(names, KeyName(k))
	}
	sort.Strings(names)
	return names
}

// deliver forwards a press without blocking; presses arriving while one is
// still unread are dropped.
func (l *Listener) deliver(code uint16) {
	select {
	case l.keyChan <- code:
	default:
	}
}
