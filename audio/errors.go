package audio

import "errors"

var (
	// ErrAlreadyRecording is returned by Start while a session is owned.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrNotRecording is returned by Stop and Cancel when idle.
	ErrNotRecording = errors.New("not currently recording")
	// ErrSpawnFailure wraps every failure to launch a capture process.
	ErrSpawnFailure = errors.New("failed to start capture process")
	// ErrNoCaptureTool means neither pw-record nor parec is installed.
	ErrNoCaptureTool = errors.New("no capture tool found (install pw-record or parec)")
	// ErrMixerUnavailable means ffmpeg is missing; combined mode cannot start.
	ErrMixerUnavailable = errors.New("ffmpeg not found; combined recording needs it for mixing")
	// ErrMixFailure means ffmpeg failed, timed out or wrote an unreadable file.
	ErrMixFailure = errors.New("mixing failed")
	// ErrEmptyMix means ffmpeg succeeded but the output holds no audio.
	ErrEmptyMix = errors.New("mixed output contains no audio")
	// ErrMissingSource means a capture process left no usable temp file, so
	// mixing was skipped.
	ErrMissingSource = errors.New("capture source produced no audio file")
)
