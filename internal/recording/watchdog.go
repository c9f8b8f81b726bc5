package recording

import (
	"time"

	"github.com/notewell/audiorec/internal/audio"
	"github.com/notewell/audiorec/internal/logger"
)

// watchdog is the engine's device-loss monitor: a single goroutine that
// periodically re-enumerates capture devices and cross-checks every
// active session's bound device names. When a bound device is gone it
// sets that session's stop flag and nothing more; the session then
// drains and finalizes on its normal path and stays visible to Stop.
//
// Hardware topology events arrive from the OS on whatever thread the
// audio backend fancies; polling from our own goroutine keeps that
// uncontrolled context away from the registry.
type watchdog struct {
	backend  audio.Backend
	reg      *registry
	log      *logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
}

func newWatchdog(backend audio.Backend, reg *registry, interval time.Duration, log *logger.Logger) *watchdog {
	w := &watchdog{
		backend:  backend,
		reg:      reg,
		log:      log,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *watchdog) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check snapshots the active sessions, re-enumerates devices outside
// any per-session lock, and flags sessions whose microphone or loopback
// device is no longer present.
func (w *watchdog) check() {
	sessions := w.reg.snapshot()
	if len(sessions) == 0 {
		return
	}

	devices, err := w.backend.Devices(audio.Capture)
	if err != nil {
		w.log.Error("watchdog: device enumeration failed: %v", err)
		return
	}
	present := make(map[string]bool, len(devices))
	for _, d := range devices {
		present[d.Name] = true
	}

	for _, s := range sessions {
		mic, loopback := s.boundDeviceNames()
		micOK := present[mic]
		loopbackOK := loopback == "" || present[loopback]
		if micOK && loopbackOK {
			continue
		}
		if s.stop.CompareAndSwap(false, true) {
			w.log.Warn("recording %s: bound device removed (mic %q present: %v, loopback %q present: %v); stopping",
				s.id, mic, micOK, loopback, loopbackOK)
		}
	}
}

func (w *watchdog) close() {
	close(w.stopCh)
	<-w.done
}
