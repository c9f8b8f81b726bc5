package recording

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/notewell/audiorec/internal/audio"
	"github.com/notewell/audiorec/internal/config"
	"github.com/notewell/audiorec/internal/logger"
)

const (
	fakeMicName      = "Fake Microphone"
	fakeLoopbackName = "Stereo Mix (Fake)"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR})
	if err != nil {
		t.Fatalf("creating test logger: %v", err)
	}
	return log
}

// fakeBackend is a synthetic audio host. Each open capture stream feeds
// a constant-amplitude mono signal in small chunks from its own
// goroutine, which is enough to drive the mixer, the encoder and the
// watchdog without hardware.
type fakeBackend struct {
	mu       sync.Mutex
	devices  []audio.Device
	enumErr  error
	buildErr map[string]error
	signal   map[string]float32 // amplitude per device name, default 0.5
	openHold chan struct{}      // when set, OpenCapture blocks until it is closed

	streams sync.WaitGroup
}

func newFakeBackend(withLoopback bool) *fakeBackend {
	devices := []audio.Device{
		{ID: "01", Name: fakeMicName, Kind: audio.Capture, IsDefault: true},
		{ID: "10", Name: "Fake Speakers", Kind: audio.Playback, IsDefault: true},
	}
	if withLoopback {
		devices = append(devices, audio.Device{ID: "02", Name: fakeLoopbackName, Kind: audio.Capture})
	}
	return &fakeBackend{
		devices:  devices,
		buildErr: make(map[string]error),
		signal:   make(map[string]float32),
	}
}

func (b *fakeBackend) removeDevice(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.devices[:0]
	for _, d := range b.devices {
		if d.Name != name {
			kept = append(kept, d)
		}
	}
	b.devices = kept
}

func (b *fakeBackend) Devices(kind audio.DeviceKind) ([]audio.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.enumErr != nil {
		return nil, b.enumErr
	}
	var out []audio.Device
	for _, d := range b.devices {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *fakeBackend) Capabilities(dev audio.Device) (audio.Capabilities, error) {
	return audio.Capabilities{
		MinChannels:    1,
		MaxChannels:    1,
		MinSampleRate:  8000,
		MaxSampleRate:  192000,
		NativeChannels: 1,
	}, nil
}

func (b *fakeBackend) OpenCapture(dev audio.Device, cfg audio.StreamConfig, push func([]float32)) (audio.CaptureStream, error) {
	b.mu.Lock()
	err := b.buildErr[dev.Name]
	amplitude, ok := b.signal[dev.Name]
	hold := b.openHold
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hold != nil {
		<-hold
	}
	if !ok {
		amplitude = 0.5
	}

	chunk := make([]float32, 240*cfg.Channels) // 5 ms at 48 kHz
	for i := range chunk {
		chunk[i] = amplitude
	}

	s := &fakeStream{closed: make(chan struct{})}
	b.streams.Add(1)
	go func() {
		defer b.streams.Done()
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-s.closed:
				return
			case <-ticker.C:
				push(chunk)
			}
		}
	}()
	return s, nil
}

func (b *fakeBackend) Close() error {
	b.streams.Wait()
	return nil
}

type fakeStream struct {
	once   sync.Once
	closed chan struct{}
}

func (s *fakeStream) Close() { s.once.Do(func() { close(s.closed) }) }

// testConfig returns an engine configuration tuned for fast tests:
// tight writer polling, loopback selected by name so the tests behave
// the same on every platform.
func testConfig(withLoopback bool) *config.Config {
	cfg := config.DefaultConfig()
	cfg.WriterPollMS = 2
	cfg.WatchdogIntervalMS = 0
	if withLoopback {
		cfg.LoopbackDevice = "stereo mix"
	}
	return cfg
}

// newFakeSession builds a bare session over fake devices for tests that
// poke at session internals directly.
func newFakeSession(t *testing.T, id string, withLoopback bool) (*session, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend(withLoopback)

	enc, err := newEncoder(filepath.Join(t.TempDir(), id+".wav"), 48000, 16, 2)
	if err != nil {
		t.Fatalf("creating encoder: %v", err)
	}
	t.Cleanup(func() { _, _ = enc.finalize() })

	cfg := audio.StreamConfig{SampleRate: 48000, Channels: 1, Format: audio.FormatF32}
	s := &session{
		id:        id,
		startedAt: time.Now(),
		enc:       enc,
		mic:       audio.NewBinding(audio.Device{ID: "01", Name: fakeMicName, Kind: audio.Capture, IsDefault: true}, cfg, 4096),
	}
	if withLoopback {
		s.loopback = audio.NewBinding(audio.Device{ID: "02", Name: fakeLoopbackName, Kind: audio.Capture}, cfg, 4096)
	}
	return s, backend
}
