package audio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/notewell/audiorec/internal/logger"
)

// keeperPollInterval bounds how long a keeper goroutine lingers after
// the stop flag is set.
const keeperPollInterval = 10 * time.Millisecond

// dropWarnEvery rate-limits overflow warnings to roughly once per
// second of dropped 48 kHz audio.
const dropWarnEvery = 48000

// Binding is the per-device capture state of one recording session: the
// hardware device, its negotiated stream configuration, and the ring
// buffer its realtime callback feeds. The ring's producer end belongs to
// the capture callback, the consumer end to the session's mixer.
type Binding struct {
	Device  Device
	Config  StreamConfig
	Ring    *Ring
	dropped atomic.Uint64
}

// NewBinding creates a binding with a fresh ring buffer.
func NewBinding(dev Device, cfg StreamConfig, ringCapacity int) *Binding {
	return &Binding{Device: dev, Config: cfg, Ring: NewRing(ringCapacity)}
}

// Dropped returns the total number of samples discarded because the
// ring buffer was full.
func (b *Binding) Dropped() uint64 { return b.dropped.Load() }

// callback builds the realtime push function for this binding. Once the
// stop flag is set the callback becomes a no-op; the host keeps invoking
// it until the keeper tears the stream down. On overflow the remainder of
// the chunk is dropped, never blocked on, and a rate-limited warning is
// logged.
func (b *Binding) callback(stop *atomic.Bool, log *logger.Logger) func([]float32) {
	return func(samples []float32) {
		if stop.Load() {
			return
		}
		n := b.Ring.PushSlice(samples)
		if n == len(samples) {
			return
		}
		lost := uint64(len(samples) - n)
		total := b.dropped.Add(lost)
		if (total-lost)/dropWarnEvery != total/dropWarnEvery {
			log.Warn("ring buffer full for %q; dropped %d samples so far", b.Device.Name, total)
		}
	}
}

// KeepCapture opens a capture stream for the binding and keeps it alive
// until the stop flag is set, then releases it. It runs on a dedicated
// goroutine owned by the recording session; the native stream handle
// never leaves that goroutine. The outcome of the open attempt is
// delivered on ready before the keep-alive loop starts.
func KeepCapture(b Backend, bind *Binding, stop *atomic.Bool, ready chan<- error, log *logger.Logger) {
	stream, err := b.OpenCapture(bind.Device, bind.Config, bind.callback(stop, log))
	if err != nil {
		ready <- fmt.Errorf("%w: device %q: %v", ErrStreamBuild, bind.Device.Name, err)
		return
	}
	log.Info("capture stream running on %q (%d Hz, %d ch)", bind.Device.Name, bind.Config.SampleRate, bind.Config.Channels)
	ready <- nil

	for !stop.Load() {
		time.Sleep(keeperPollInterval)
	}
	stream.Close()
	if d := bind.Dropped(); d > 0 {
		log.Warn("capture on %q finished with %d samples dropped to overflow", bind.Device.Name, d)
	}
	log.Debug("capture stream on %q released", bind.Device.Name)
}
