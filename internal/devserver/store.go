// Package devserver is an in-memory stand-in for the Gram Vaani backend. It
// serves the same endpoints with canned answers so the client pipeline can be
// exercised without the real inference service.
package devserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	errEmailTaken   = errors.New("email already registered")
	errUserNotFound = errors.New("user not found")
)

type userRecord struct {
	ID       string
	Email    string
	Password string
	Language string
	Location string
}

type queryRecord struct {
	Type      string
	Query     string
	Response  string
	Timestamp time.Time
}

// store holds users and their query history in memory.
type store struct {
	mu      sync.Mutex
	users   map[string]*userRecord // keyed by email
	queries map[string][]queryRecord
}

func newStore() *store {
	return &store{
		users:   make(map[string]*userRecord),
		queries: make(map[string][]queryRecord),
	}
}

func (s *store) createUser(email, password, language, location string) (*userRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[email]; exists {
		return nil, errEmailTaken
	}
	user := &userRecord{
		ID:       uuid.New().String(),
		Email:    email,
		Password: password,
		Language: language,
		Location: location,
	}
	s.users[email] = user
	return user, nil
}

func (s *store) authenticate(email, password string) (*userRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok || user.Password != password {
		return nil, false
	}
	copied := *user
	return &copied, true
}

func (s *store) findByEmail(email string) (*userRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, errUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *store) updateProfile(email, language, location string) (*userRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, errUserNotFound
	}
	if language != "" {
		user.Language = language
	}
	if location != "" {
		user.Location = location
	}
	copied := *user
	return &copied, nil
}

func (s *store) appendQuery(email string, record queryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries[email] = append(s.queries[email], record)
}

// queriesFor returns the user's history, newest first.
func (s *store) queriesFor(email string) []queryRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := make([]queryRecord, len(s.queries[email]))
	copy(records, s.queries[email])
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records
}
