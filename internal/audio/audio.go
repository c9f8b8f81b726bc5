package audio

// DeviceKind distinguishes capture (input) from playback (output) devices.
type DeviceKind int

const (
	// Capture is a recording device (microphone, loopback input).
	Capture DeviceKind = iota
	// Playback is an output device.
	Playback
)

// String returns the string representation of the kind.
func (k DeviceKind) String() string {
	switch k {
	case Capture:
		return "capture"
	case Playback:
		return "playback"
	default:
		return "unknown"
	}
}

// Device describes one audio device as reported by the host.
type Device struct {
	ID        string // backend-specific opaque identifier
	Name      string // human-readable name, used for loopback and watchdog matching
	Kind      DeviceKind
	IsDefault bool
}

// Format is the sample format of a capture stream. The engine normalizes
// everything to 32-bit float before mixing, so this is fixed, but it is
// carried in StreamConfig so negotiation results are self-describing.
type Format int

const (
	// FormatF32 is 32-bit float, the engine's working format.
	FormatF32 Format = iota
)

// String returns the string representation of the format.
func (f Format) String() string {
	if f == FormatF32 {
		return "f32"
	}
	return "unknown"
}

// StreamConfig is a negotiated (sample rate, channels, format) triple
// for one capture stream.
type StreamConfig struct {
	SampleRate int
	Channels   int
	Format     Format
}

// Capabilities describes what a capture device supports, as reported by
// the host. Rates and channel counts are ranges; NativeChannels is the
// device's own channel count, used when neither stereo nor mono fits.
type Capabilities struct {
	MinChannels    int
	MaxChannels    int
	MinSampleRate  int
	MaxSampleRate  int
	NativeChannels int
}

// SupportsRate reports whether the device accepts the given sample rate.
func (c Capabilities) SupportsRate(rate int) bool {
	return rate >= c.MinSampleRate && rate <= c.MaxSampleRate
}

// SupportsChannels reports whether the device accepts the given channel count.
func (c Capabilities) SupportsChannels(ch int) bool {
	return ch >= c.MinChannels && ch <= c.MaxChannels
}

// CaptureStream is a running hardware capture. Close stops the device and
// releases it; it is called by the goroutine that opened the stream (the
// session's keeper) and must be called exactly once.
type CaptureStream interface {
	Close()
}

// Backend is the audio host abstraction. The production implementation is
// backed by miniaudio (malgo); tests substitute a synthetic backend.
//
// Devices re-enumerates on every call so the watchdog sees hot-plug
// changes. OpenCapture's push callback is invoked on the host's realtime
// thread with samples already converted to float32; it must never block.
type Backend interface {
	Devices(kind DeviceKind) ([]Device, error)
	Capabilities(dev Device) (Capabilities, error)
	OpenCapture(dev Device, cfg StreamConfig, push func([]float32)) (CaptureStream, error)
	Close() error
}
