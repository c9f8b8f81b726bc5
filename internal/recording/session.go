package recording

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/notewell/audiorec/internal/audio"
)

// session is the aggregate state of one in-progress recording. It is
// created by Start, mutated only by its own goroutines (stop flag,
// encoder take), and destroyed by Stop after the workers are joined.
type session struct {
	id         string
	ownerID    string
	startedAt  time.Time
	outputPath string
	enc        *encoder

	// stop is the only cross-goroutine shutdown signal: set exactly once
	// by Stop or the watchdog, read by every capture callback and every
	// writer iteration.
	stop atomic.Bool

	// workers joins the capture keeper goroutines and the writer. The
	// group error is the writer's finalize error, if any.
	workers errgroup.Group

	mic      *audio.Binding
	loopback *audio.Binding // nil when recording microphone-only
}

// boundDeviceNames returns the device names the watchdog cross-checks
// against the live device list.
func (s *session) boundDeviceNames() (mic string, loopback string) {
	mic = s.mic.Device.Name
	if s.loopback != nil {
		loopback = s.loopback.Device.Name
	}
	return mic, loopback
}

// registry is the sole authority for which recordings are active or
// being started. It is owned by the engine; the lock is held only
// across map operations, never across I/O or joins.
//
// An id is reserved before any file or stream for it exists and is
// either activated (the session becomes visible to Stop and the
// watchdog) or released. Reservation is the linearization point for
// duplicate Starts: the loser fails before it can touch the winner's
// output file.
type registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	reserved map[string]struct{}
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*session),
		reserved: make(map[string]struct{}),
	}
}

// reserve claims an id ahead of session construction. It fails when the
// id is already active or mid-start.
func (r *registry) reserve(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return ErrDuplicateRecording
	}
	if _, exists := r.reserved[id]; exists {
		return ErrDuplicateRecording
	}
	r.reserved[id] = struct{}{}
	return nil
}

// release gives back a reservation after a failed start.
func (r *registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, id)
}

// activate turns a reservation into an active session.
func (r *registry) activate(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, s.id)
	r.sessions[s.id] = s
}

// remove deregisters and returns the session, if present. After remove
// returns, the id is free for a new Start and no second Stop can reach
// the same session.
func (r *registry) remove(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}

// get returns the session without removing it.
func (r *registry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// snapshot returns the active sessions at this instant.
func (r *registry) snapshot() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// ids returns the active recording ids, sorted for stable output.
func (r *registry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
