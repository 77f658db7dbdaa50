package store

import (
	"context"
	"sync"
	"time"

	"github.com/Dmann24/quantina-core/internal/models"
)

// InMemoryManager backs the stores with process-local maps. Used in
// tests and when no Postgres DSN is configured.
type InMemoryManager struct {
	preferences *inMemoryPreferences
	messages    *inMemoryLog
}

// NewInMemoryManager creates an empty in-memory manager.
func NewInMemoryManager(defaultLanguage string) *InMemoryManager {
	return &InMemoryManager{
		preferences: &inMemoryPreferences{
			defaultLanguage: defaultLanguage,
			languages:       make(map[string]string),
		},
		messages: &inMemoryLog{},
	}
}

func (m *InMemoryManager) Preferences() PreferenceStore { return m.preferences }
func (m *InMemoryManager) Messages() MessageLog         { return m.messages }
func (m *InMemoryManager) Close() error                 { return nil }

type inMemoryPreferences struct {
	mu              sync.RWMutex
	defaultLanguage string
	languages       map[string]string
}

func (s *inMemoryPreferences) Get(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lang, ok := s.languages[userID]; ok {
		return lang, nil
	}
	s.languages[userID] = s.defaultLanguage
	return s.defaultLanguage, nil
}

func (s *inMemoryPreferences) Set(_ context.Context, userID, language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages[userID] = language
	return nil
}

type inMemoryLog struct {
	mu       sync.RWMutex
	messages []models.Message
	nextID   int64
}

func (l *inMemoryLog) Append(_ context.Context, msg *models.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	msg.ID = l.nextID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	l.messages = append(l.messages, *msg)
	return nil
}

func (l *inMemoryLog) Recent(_ context.Context, limit int) ([]models.Message, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.messages) {
		limit = len(l.messages)
	}
	out := make([]models.Message, limit)
	copy(out, l.messages[len(l.messages)-limit:])
	return out, nil
}
