package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateStopped   State = "stopped"
)

var (
	ErrNotRecording   = errors.New("session is not recording")
	ErrSessionStopped = errors.New("session is already stopped")
	ErrNotPaused      = errors.New("session is not paused")
)

// Source is the acquired audio input. Closing it releases the underlying
// device; Close must be safe to call more than once.
type Source interface {
	io.Closer
	SampleRate() int
	Channels() int
}

// SourceOpener models acquisition of an audio input. Opening can fail
// (permission denied, no device available); the caller then stays Idle
// and surfaces the error to the user.
type SourceOpener interface {
	Open(ctx context.Context) (Source, error)
}

// Session is a single recording: Idle -> Recording -> (Paused <-> Recording) -> Stopped.
// All methods are safe for concurrent use.
type Session struct {
	ID uuid.UUID

	mu      sync.Mutex
	state   State
	src     Source
	meter   *LevelMeter
	pcm     []byte
	elapsed time.Duration // completed recording segments
	segAt   time.Time     // start of the current recording segment
	final   []byte        // WAV object, set once on Stop
	now     func() time.Time
}

func newSession(src Source, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	s := &Session{
		ID:    uuid.New(),
		state: StateRecording,
		src:   src,
		meter: NewLevelMeter(src.SampleRate(), src.Channels()),
		segAt: now(),
		now:   now,
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Append feeds a chunk of raw PCM into the recording buffer and the level
// meter. Chunks arriving while paused or after stop are rejected so the
// finalized audio matches the tracked recording time.
func (s *Session) Append(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateStopped:
		return ErrSessionStopped
	case StateRecording:
	default:
		return ErrNotRecording
	}
	s.pcm = append(s.pcm, chunk...)
	s.meter.Push(chunk)
	return nil
}

// Pause suspends capture and the elapsed counter without discarding
// already-captured audio.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return ErrSessionStopped
	}
	if s.state != StateRecording {
		return ErrNotRecording
	}
	s.elapsed += s.now().Sub(s.segAt)
	s.state = StatePaused
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return ErrSessionStopped
	}
	if s.state != StatePaused {
		return ErrNotPaused
	}
	s.segAt = s.now()
	s.state = StateRecording
	return nil
}

// Elapsed reports recording time in whole seconds (1s tick granularity),
// excluding paused intervals.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.elapsed
	if s.state == StateRecording {
		e += s.now().Sub(s.segAt)
	}
	return e.Truncate(time.Second)
}

// Stop finalizes the captured audio into a single playable WAV object and
// releases the input source and level meter. It is idempotent: a second
// Stop returns the same object.
func (s *Session) Stop() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return s.final, nil
	}
	if s.state == StateRecording {
		s.elapsed += s.now().Sub(s.segAt)
	}
	s.final = encodeWAV(s.pcm, s.src.SampleRate(), s.src.Channels())
	s.release()
	return s.final, nil
}

// Close tears the session down from any state, releasing hardware
// resources without producing a playable object.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return nil
	}
	s.release()
	return nil
}

// release must be called with the lock held. It runs on every exit path.
func (s *Session) release() {
	if s.src != nil {
		_ = s.src.Close()
	}
	s.meter.Reset()
	s.state = StateStopped
}

// Levels returns a snapshot of the amplitude frames for display.
func (s *Session) Levels() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meter.Frames()
}

func (s *Session) String() string {
	return fmt.Sprintf("capture session %s (%s)", s.ID, s.State())
}
