package audio

import "errors"

var (
	// ErrDeviceEnumeration means the host could not list its devices.
	ErrDeviceEnumeration = errors.New("audio: device enumeration failed")

	// ErrNoInputDevice means the host exposes no input-capable devices.
	ErrNoInputDevice = errors.New("audio: no input devices found")

	// ErrNoDefaultMicrophone means no input device is designated as default.
	ErrNoDefaultMicrophone = errors.New("audio: no default microphone device")

	// ErrStreamBuild means a capture stream could not be opened on a device.
	// Fatal for the microphone; for the loopback device the session degrades
	// to microphone-only instead.
	ErrStreamBuild = errors.New("audio: failed to build capture stream")
)
