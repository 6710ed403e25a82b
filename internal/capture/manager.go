package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("capture session not found")

// Manager owns the live recording sessions, one active session per owner.
type Manager struct {
	opener SourceOpener
	logger *zap.Logger

	mu      sync.Mutex
	byID    map[uuid.UUID]*Session
	byOwner map[string]uuid.UUID
}

func NewManager(opener SourceOpener, logger *zap.Logger) *Manager {
	return &Manager{
		opener:  opener,
		logger:  logger,
		byID:    make(map[uuid.UUID]*Session),
		byOwner: make(map[string]uuid.UUID),
	}
}

// Open acquires the audio input and starts a new session for the owner.
// Acquisition failure leaves the owner Idle and returns the error for the
// caller to surface. Any previous unprocessed session for the same owner
// is torn down and its buffer discarded.
func (m *Manager) Open(ctx context.Context, owner string) (*Session, error) {
	src, err := m.opener.Open(ctx)
	if err != nil {
		m.logger.Warn("audio input acquisition failed", zap.String("owner", owner), zap.Error(err))
		return nil, fmt.Errorf("could not access audio input: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prevID, ok := m.byOwner[owner]; ok {
		if prev, ok := m.byID[prevID]; ok {
			_ = prev.Close()
			delete(m.byID, prevID)
			m.logger.Info("discarded previous recording", zap.String("owner", owner), zap.String("session", prevID.String()))
		}
	}

	s := newSession(src, nil)
	m.byID[s.ID] = s
	m.byOwner[owner] = s.ID
	m.logger.Info("recording started", zap.String("owner", owner), zap.String("session", s.ID.String()))
	return s, nil
}

func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove drops a finished session from the registry, closing it if the
// caller never did.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		_ = s.Close()
		delete(m.byID, id)
	}
	for owner, sid := range m.byOwner {
		if sid == id {
			delete(m.byOwner, owner)
		}
	}
}

// StreamSource is the production Source: audio arrives as client-pushed
// chunks, so acquiring the "device" is just fixing the stream format.
type StreamSource struct {
	Rate int
	Ch   int
}

func (s *StreamSource) SampleRate() int { return s.Rate }
func (s *StreamSource) Channels() int   { return s.Ch }
func (s *StreamSource) Close() error    { return nil }

type StreamOpener struct {
	SampleRate int
	Channels   int
}

func (o StreamOpener) Open(ctx context.Context) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &StreamSource{Rate: o.SampleRate, Ch: o.Channels}, nil
}
