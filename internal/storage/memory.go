package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
)

// MemoryArchive is an ArchiveStore used when no database is configured.
type MemoryArchive struct {
	mu       sync.RWMutex
	sessions map[string]interview.Session
}

var _ ArchiveStore = (*MemoryArchive)(nil)

// NewMemoryArchive returns an empty archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{sessions: make(map[string]interview.Session)}
}

// Save stores a copy of s.
func (m *MemoryArchive) Save(_ context.Context, s interview.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ConnectionID] = s.Clone()
	return nil
}

// ListByUser returns copies of the user's sessions, newest first.
func (m *MemoryArchive) ListByUser(_ context.Context, userID string) ([]interview.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}

	m.mu.RLock()
	out := make([]interview.Session, 0)
	for _, s := range m.sessions {
		if s.Candidate.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out, nil
}

// Close is a no-op.
func (m *MemoryArchive) Close() error { return nil }
