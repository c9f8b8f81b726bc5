package audio

import "github.com/notewell/audiorec/internal/logger"

// Negotiate picks the best supported stream configuration for a device
// given the target sample rate. The decision is deterministic for a
// given capability set:
//
//   - rate: the target if the device supports it, otherwise the nearest
//     supported rate (the device-default fallback);
//   - channels at that rate: stereo if supported, else mono (upmixed
//     later), else the device's native channel count;
//   - format: always 32-bit float, the engine's working format.
//
// A negotiated rate that differs from the target is a warning, not an
// error: the mixer assumes the device-reported rate and does not
// resample, so a mismatch degrades sync without failing the recording.
func Negotiate(caps Capabilities, targetRate int, log *logger.Logger, deviceName string) StreamConfig {
	rate := targetRate
	if !caps.SupportsRate(rate) {
		rate = clamp(targetRate, caps.MinSampleRate, caps.MaxSampleRate)
		log.Warn("device %q does not support %d Hz; falling back to %d Hz (sync with other streams may degrade)",
			deviceName, targetRate, rate)
	}

	channels := caps.NativeChannels
	switch {
	case caps.SupportsChannels(2):
		channels = 2
		log.Debug("device %q configured for stereo at %d Hz", deviceName, rate)
	case caps.SupportsChannels(1):
		channels = 1
		log.Debug("device %q configured for mono at %d Hz; will be upmixed to stereo", deviceName, rate)
	default:
		log.Warn("device %q supports neither stereo nor mono; keeping native channel count %d", deviceName, channels)
	}

	return StreamConfig{SampleRate: rate, Channels: channels, Format: FormatF32}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
