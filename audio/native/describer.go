// Package native names audio devices through miniaudio when pactl is not
// available. It needs cgo.
package native

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
)

var ErrNoDevice = errors.New("no audio device found")

// Namer enumerates devices with a short-lived miniaudio context per call.
type Namer struct{}

func (Namer) DefaultCapture() (string, error) {
	return defaultName(malgo.Capture)
}

func (Namer) DefaultPlayback() (string, error) {
	return defaultName(malgo.Playback)
}

// Names lists all devices of the given kind.
func Names(capture bool) ([]string, error) {
	kind := malgo.Playback
	if capture {
		kind = malgo.Capture
	}
	infos, err := devices(kind)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

func defaultName(kind malgo.DeviceType) (string, error) {
	infos, err := devices(kind)
	if err != nil {
		return "", err
	}
	if len(infos) == 0 {
		return "", ErrNoDevice
	}
	for _, info := range infos {
		if info.IsDefault != 0 {
			return strings.TrimSpace(info.Name()), nil
		}
	}
	return strings.TrimSpace(infos[0].Name()), nil
}

func devices(kind malgo.DeviceType) ([]malgo.DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}
