package preview

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	Expiration = 24 * time.Hour
	idLength   = 12
)

var ErrIDCollision = errors.New("preview id already in use")

type StoredFile struct {
	Data        []byte
	ContentType string
}

type Preview struct {
	ID        string
	Files     map[string]StoredFile
	Size      int
	ExpiresAt time.Time
}

// Store keeps previews in memory until they expire.
type Store struct {
	mu       sync.RWMutex
	previews map[string]*Preview
	now      func() time.Time
	newID    func() string
}

func NewStore() *Store {
	return &Store{
		previews: make(map[string]*Preview),
		now:      time.Now,
		newID:    func() string { return uuid.NewString()[:idLength] },
	}
}

// Put stores files under a fresh id and returns the new preview.
func (s *Store) Put(files map[string]StoredFile) (*Preview, error) {
	p := &Preview{
		ID:    s.newID(),
		Files: files,
	}
	for _, f := range files {
		p.Size += len(f.Data)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if old, ok := s.previews[p.ID]; ok && now.Before(old.ExpiresAt) {
		return nil, ErrIDCollision
	}
	p.ExpiresAt = now.Add(Expiration)
	s.previews[p.ID] = p
	s.evictLocked(now)

	return p, nil
}

// File returns a file of an unexpired preview.
func (s *Store) File(id, path string) (StoredFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.previews[id]
	if !ok || !s.now().Before(p.ExpiresAt) {
		return StoredFile{}, false
	}
	f, ok := p.Files[path]
	return f, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

func (s *Store) evictLocked(now time.Time) {
	for id, p := range s.previews {
		if !now.Before(p.ExpiresAt) {
			delete(s.previews, id)
		}
	}
}
