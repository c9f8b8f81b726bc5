package audio

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/notewell/audiorec/internal/logger"
)

// MalgoBackend implements Backend on top of miniaudio. A single context
// is shared by every recording; device lists are re-enumerated from the
// host on each Devices call, which is what lets the watchdog observe
// hot-plug changes.
type MalgoBackend struct {
	ctx *malgo.AllocatedContext
	log *logger.Logger
}

// NewMalgoBackend initializes the miniaudio context for the platform's
// native backend (WASAPI, CoreAudio, ALSA/PulseAudio).
func NewMalgoBackend(log *logger.Logger) (*MalgoBackend, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio: %s", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	return &MalgoBackend{ctx: ctx, log: log}, nil
}

// Devices enumerates the host's devices of the given kind.
func (m *MalgoBackend) Devices(kind DeviceKind) ([]Device, error) {
	mk := malgo.Capture
	if kind == Playback {
		mk = malgo.Playback
	}
	infos, err := m.ctx.Devices(mk)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s devices: %w", kind, err)
	}
	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:        hex.EncodeToString(info.ID[:]),
			Name:      info.Name(),
			Kind:      kind,
			IsDefault: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// Capabilities probes the supported rate and channel ranges of a
// capture device.
func (m *MalgoBackend) Capabilities(dev Device) (Capabilities, error) {
	id, err := decodeDeviceID(dev.ID)
	if err != nil {
		return Capabilities{}, fmt.Errorf("device id %q: %w", dev.ID, err)
	}
	full, err := m.ctx.DeviceInfo(malgo.Capture, id, malgo.Shared)
	if err != nil {
		return Capabilities{}, fmt.Errorf("probe device %q: %w", dev.Name, err)
	}
	return capsFromFormats(full.Formats), nil
}

// capsFromFormats folds the device's native data formats into rate and
// channel ranges. Zero-valued entries mean the host left the field
// unspecified and are skipped; a device reporting no usable formats is
// treated as accepting the common ground.
func capsFromFormats(formats []malgo.DataFormat) Capabilities {
	var caps Capabilities
	for _, f := range formats {
		if ch := int(f.Channels); ch > 0 {
			if caps.MinChannels == 0 || ch < caps.MinChannels {
				caps.MinChannels = ch
			}
			if ch > caps.MaxChannels {
				caps.MaxChannels = ch
			}
		}
		if rate := int(f.SampleRate); rate > 0 {
			if caps.MinSampleRate == 0 || rate < caps.MinSampleRate {
				caps.MinSampleRate = rate
			}
			if rate > caps.MaxSampleRate {
				caps.MaxSampleRate = rate
			}
		}
	}
	if caps.MinChannels == 0 {
		caps.MinChannels, caps.MaxChannels = 1, 2
	}
	if caps.MinSampleRate == 0 {
		caps.MinSampleRate, caps.MaxSampleRate = 8000, 192000
	}
	caps.NativeChannels = caps.MinChannels
	return caps
}

// OpenCapture opens and starts a capture stream on the device. Samples
// arrive on miniaudio's realtime thread, are converted to float32 into a
// per-stream scratch buffer, and handed to push.
func (m *MalgoBackend) OpenCapture(dev Device, cfg StreamConfig, push func([]float32)) (CaptureStream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(cfg.Channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if dev.ID != "" {
		id, err := decodeDeviceID(dev.ID)
		if err != nil {
			return nil, fmt.Errorf("device id %q: %w", dev.ID, err)
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	// Reused across callbacks; miniaudio invokes Data serially per device.
	var scratch []float32

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			n := len(input) / 4
			if n == 0 {
				return
			}
			if cap(scratch) < n {
				scratch = make([]float32, n)
			}
			scratch = scratch[:n]
			for i := 0; i < n; i++ {
				scratch[i] = math.Float32frombits(binary.LittleEndian.Uint32(input[i*4:]))
			}
			push(scratch)
		},
	}

	device, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("init capture device %q: %w", dev.Name, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("start capture device %q: %w", dev.Name, err)
	}
	return &malgoStream{device: device}, nil
}

// Close releases the miniaudio context. Call only after every capture
// stream has been closed.
func (m *MalgoBackend) Close() error {
	if m.ctx == nil {
		return nil
	}
	err := m.ctx.Uninit()
	m.ctx.Free()
	m.ctx = nil
	return err
}

type malgoStream struct {
	device *malgo.Device
}

func (s *malgoStream) Close() {
	_ = s.device.Stop()
	s.device.Uninit()
}

func decodeDeviceID(id string) (malgo.DeviceID, error) {
	var did malgo.DeviceID
	raw, err := hex.DecodeString(id)
	if err != nil {
		return did, err
	}
	copy(did[:], raw)
	return did, nil
}
