// Package recording is the capture-and-mix engine: it records the
// default microphone and, when available, a system-loopback device into
// a single stereo 16-bit PCM WAV file, mixed in real time. The
// application's command layer drives it through Engine; persistence of
// the resulting Descriptor is the caller's business.
package recording

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notewell/audiorec/internal/audio"
	"github.com/notewell/audiorec/internal/config"
	"github.com/notewell/audiorec/internal/logger"
)

// MimeTypeWAV is the mime type of every file this engine produces.
const MimeTypeWAV = "audio/wav"

// outputChannels is the fixed channel count of the output file.
const outputChannels = 2

// Descriptor describes a finished recording, handed to the caller for
// persistence.
type Descriptor struct {
	ID         string `json:"id"`
	OwnerID    string `json:"owner_id,omitempty"`
	FilePath   string `json:"file_path"`
	DurationMS int64  `json:"duration_ms"`
	MimeType   string `json:"mime_type"`
	RecordedAt string `json:"recorded_at"`
}

// NewID returns a fresh recording id for callers that do not bring
// their own.
func NewID() string {
	return uuid.NewString()
}

// Engine coordinates recordings: device resolution, format negotiation,
// capture keepers, the mixer/writer, the session registry and the
// device-loss watchdog. One engine serves the whole application.
//
// The backend's lifetime belongs to the caller; Close stops recordings
// and the watchdog but leaves the backend open.
type Engine struct {
	backend audio.Backend
	cfg     *config.Config
	log     *logger.Logger
	reg     *registry

	mu       sync.Mutex
	watchdog *watchdog
	closed   bool
}

// NewEngine creates an engine over the given audio backend.
func NewEngine(backend audio.Backend, cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{
		backend: backend,
		cfg:     cfg,
		log:     log,
		reg:     newRegistry(),
	}
}

// Start begins a recording into "<outputDir>/<recordingID>.wav" and
// returns the recording id. ownerID is opaque to the engine and comes
// back in the Descriptor. On any error nothing is left in the registry
// and the partial output file is removed.
func (e *Engine) Start(ownerID, recordingID, outputDir string) (string, error) {
	if recordingID == "" {
		return "", fmt.Errorf("recording id must not be empty")
	}
	if err := e.ensureRunning(); err != nil {
		return "", err
	}

	// Claim the id before anything for it exists on disk or in the host,
	// so a concurrent duplicate Start fails here and can never truncate
	// the active recording's output file.
	if err := e.reg.reserve(recordingID); err != nil {
		return "", fmt.Errorf("%w: %s", err, recordingID)
	}

	res, err := audio.ResolveDevices(e.backend, e.cfg.LoopbackDevice, e.log)
	if err != nil {
		e.reg.release(recordingID)
		return "", err
	}

	micCaps, err := e.backend.Capabilities(res.Microphone)
	if err != nil {
		e.reg.release(recordingID)
		return "", fmt.Errorf("probing microphone %q: %w", res.Microphone.Name, err)
	}
	micCfg := audio.Negotiate(micCaps, e.cfg.TargetSampleRate, e.log, res.Microphone.Name)

	var loopCfg audio.StreamConfig
	if res.Loopback != nil {
		caps, err := e.backend.Capabilities(*res.Loopback)
		if err != nil {
			e.log.Warn("probing loopback %q failed: %v; recording microphone only", res.Loopback.Name, err)
			res.Loopback = nil
		} else {
			loopCfg = audio.Negotiate(caps, e.cfg.TargetSampleRate, e.log, res.Loopback.Name)
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		e.reg.release(recordingID)
		return "", fmt.Errorf("%w: %v", ErrFileCreate, err)
	}
	outputPath := filepath.Join(outputDir, recordingID+".wav")
	enc, err := newEncoder(outputPath, e.cfg.TargetSampleRate, e.cfg.BitDepth, outputChannels)
	if err != nil {
		e.reg.release(recordingID)
		return "", err
	}

	s := &session{
		id:         recordingID,
		ownerID:    ownerID,
		startedAt:  time.Now(),
		outputPath: outputPath,
		enc:        enc,
		mic:        audio.NewBinding(res.Microphone, micCfg, e.cfg.RingCapacity),
	}
	if res.Loopback != nil {
		s.loopback = audio.NewBinding(*res.Loopback, loopCfg, e.cfg.RingCapacity)
	}

	// Each capture stream is built and held by its own keeper goroutine;
	// the native handle never crosses goroutines. A microphone build
	// failure aborts the start, a loopback one degrades to mic-only.
	micReady := make(chan error, 1)
	s.workers.Go(func() error {
		audio.KeepCapture(e.backend, s.mic, &s.stop, micReady, e.log)
		return nil
	})
	if err := <-micReady; err != nil {
		e.reg.release(recordingID)
		e.abortStart(s)
		return "", err
	}

	if s.loopback != nil {
		loopReady := make(chan error, 1)
		lb := s.loopback
		s.workers.Go(func() error {
			audio.KeepCapture(e.backend, lb, &s.stop, loopReady, e.log)
			return nil
		})
		if err := <-loopReady; err != nil {
			e.log.Warn("recording %s: %v; recording microphone only", recordingID, err)
			s.loopback = nil
		}
	}

	poll := time.Duration(e.cfg.WriterPollMS) * time.Millisecond
	s.workers.Go(func() error {
		return runWriter(s, poll, e.log)
	})

	// Activation is gated on the closed flag so a Close that raced past
	// ensureRunning cannot leave this session running unsupervised.
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.reg.release(recordingID)
		e.abortStart(s)
		return "", ErrEngineClosed
	}
	e.reg.activate(s)
	e.mu.Unlock()

	e.log.Info("recording %s started (owner %q, loopback: %v) -> %s",
		recordingID, ownerID, s.loopback != nil, outputPath)
	return recordingID, nil
}

// Stop ends a recording: removes the session from the registry, sets
// the stop flag, joins the keepers and the writer (which drains the
// rings and finalizes the encoder), and returns the descriptor. The
// only errors are an unknown id and a failed encoder finalization.
func (e *Engine) Stop(recordingID string) (*Descriptor, error) {
	s, ok := e.reg.remove(recordingID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID)
	}

	s.stop.Store(true)
	err := s.workers.Wait()

	// The writer normally finalizes; this is the fallback for a writer
	// that never got there. Take-once makes the common case a no-op.
	if taken, ferr := s.enc.finalize(); taken {
		e.log.Warn("recording %s: encoder finalized by stop routine, not the writer", recordingID)
		if err == nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, err
	}

	duration := time.Since(s.startedAt)
	e.log.Info("recording %s stopped after %dms: %s", recordingID, duration.Milliseconds(), s.outputPath)
	return &Descriptor{
		ID:         s.id,
		OwnerID:    s.ownerID,
		FilePath:   s.outputPath,
		DurationMS: duration.Milliseconds(),
		MimeType:   MimeTypeWAV,
		RecordedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Elapsed returns how long the given recording has been running. The
// application uses this to timestamp note blocks against the audio.
func (e *Engine) Elapsed(recordingID string) (time.Duration, error) {
	s, ok := e.reg.get(recordingID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRecordingNotFound, recordingID)
	}
	return time.Since(s.startedAt), nil
}

// Active returns the ids of all in-progress recordings, sorted.
func (e *Engine) Active() []string {
	return e.reg.ids()
}

// ListDevices enumerates the host's capture and playback devices, for
// the application's settings surface.
func (e *Engine) ListDevices() ([]audio.Device, error) {
	in, err := e.backend.Devices(audio.Capture)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceEnumeration, err)
	}
	out, err := e.backend.Devices(audio.Playback)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", audio.ErrDeviceEnumeration, err)
	}
	return append(in, out...), nil
}

// Close stops every active recording (best effort) and the watchdog.
// The engine cannot be reused afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	wd := e.watchdog
	e.watchdog = nil
	e.mu.Unlock()

	if wd != nil {
		wd.close()
	}
	var firstErr error
	for _, id := range e.reg.ids() {
		if _, err := e.Stop(id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ensureRunning checks the closed flag and lazily starts the watchdog
// with the first recording.
func (e *Engine) ensureRunning() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if e.watchdog == nil && e.cfg.WatchdogIntervalMS > 0 {
		interval := time.Duration(e.cfg.WatchdogIntervalMS) * time.Millisecond
		e.watchdog = newWatchdog(e.backend, e.reg, interval, e.log)
		e.log.Debug("device-loss watchdog started (interval %v)", interval)
	}
	return nil
}

// abortStart tears down a session that never made it into the registry:
// flag the keepers down, join everything that was spawned, release the
// encoder and remove the partial file.
func (e *Engine) abortStart(s *session) {
	s.stop.Store(true)
	_ = s.workers.Wait()
	_, _ = s.enc.finalize()
	if err := os.Remove(s.outputPath); err != nil {
		e.log.Warn("recording %s: removing partial output %s: %v", s.id, s.outputPath, err)
	}
}
