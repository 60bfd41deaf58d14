package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/noah-isme/timetable-editor/internal/models"
	"github.com/noah-isme/timetable-editor/internal/timetable"
	appErrors "github.com/noah-isme/timetable-editor/pkg/errors"
)

// editorSession pairs a timetable session with its hosting metadata. mu
// serialises every call into session.
type editorSession struct {
	mu       sync.Mutex
	id       string
	owner    string
	session  *timetable.Session
	labels   *models.LabelCatalog
	lastSeen atomic.Int64
}

func (e *editorSession) touch(at time.Time) {
	e.lastSeen.Store(at.UnixNano())
}

func (e *editorSession) seenAt() time.Time {
	return time.Unix(0, e.lastSeen.Load())
}

type editorSessionStore struct {
	ttl   time.Duration
	max   int
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]*editorSession
}

func newEditorSessionStore(ttl time.Duration, max int, now func() time.Time) *editorSessionStore {
	return &editorSessionStore{
		ttl:   ttl,
		max:   max,
		now:   now,
		items: make(map[string]*editorSession),
	}
}

// Put registers entry, evicting expired sessions first when at capacity.
func (s *editorSessionStore) Put(entry *editorSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.max > 0 && len(s.items) >= s.max {
		s.sweepLocked()
		if len(s.items) >= s.max {
			return appErrors.Clone(appErrors.ErrSessionLimitExceeded, "")
		}
	}
	entry.touch(s.now())
	s.items[entry.id] = entry
	return nil
}

func (s *editorSessionStore) Get(id string) (*editorSession, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.expired(entry) {
		s.Delete(id)
		return nil, false
	}
	entry.touch(s.now())
	return entry, true
}

func (s *editorSessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

func (s *editorSessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *editorSessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *editorSessionStore) sweepLocked() int {
	removed := 0
	for id, entry := range s.items {
		if s.expired(entry) {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

func (s *editorSessionStore) expired(entry *editorSession) bool {
	return s.ttl > 0 && s.now().Sub(entry.seenAt()) > s.ttl
}
