package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/solarlabel/internal/labeling"
	"github.com/lehigh-university-libraries/solarlabel/internal/models"
)

// SessionEntry is a labeling session together with the image it was opened on
type SessionEntry struct {
	ID        string
	Image     models.FetchedImage
	Title     string
	Session   *labeling.Session
	CreatedAt time.Time
}

type SessionStore struct {
	sessions map[string]*SessionEntry
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*SessionEntry),
	}
}

func (s *SessionStore) Get(sessionID string) (*SessionEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

func (s *SessionStore) Set(sessionID string, session *SessionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = session
}

// List returns all sessions, oldest first
func (s *SessionStore) List() []*SessionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SessionEntry, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return exists
}

// ImageRegistry holds fetched image metadata keyed by file path.
// Registering the same path again replaces the earlier metadata.
type ImageRegistry struct {
	images map[string]models.FetchedImage
	mu     sync.RWMutex
}

func NewImageRegistry() *ImageRegistry {
	return &ImageRegistry{
		images: make(map[string]models.FetchedImage),
	}
}

func (r *ImageRegistry) Add(img models.FetchedImage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[img.Path] = img
}

func (r *ImageRegistry) Get(path string) (models.FetchedImage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.images[path]
	return img, ok
}

// List returns registered images ordered by acquisition time
func (r *ImageRegistry) List() []models.FetchedImage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.FetchedImage, 0, len(r.images))
	for _, img := range r.images {
		result = append(result, img)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ObservedAt.Equal(result[j].ObservedAt) {
			return result[i].Path < result[j].Path
		}
		return result[i].ObservedAt.Before(result[j].ObservedAt)
	})
	return result
}
