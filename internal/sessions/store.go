// Package sessions is the server-side session table for logged-in users.
// Browsers only hold a signed session ID; login state and queued flash
// notices live here.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"relaydash/internal/fsatomic"
)

// Session is one browser session.
type Session struct {
	ID        string   `json:"id"`
	LoggedIn  bool     `json:"logged_in"`
	Username  string   `json:"username,omitempty"`
	Flashes   []string `json:"flashes,omitempty"`
	ExpiresAt string   `json:"expires_at"`
}

// AddFlash queues a notice shown on the next rendered page.
func (s *Session) AddFlash(msg string) { s.Flashes = append(s.Flashes, msg) }

// PopFlashes returns and clears the queued notices.
func (s *Session) PopFlashes() []string {
	out := s.Flashes
	s.Flashes = nil
	return out
}

func (s Session) expired(now time.Time) bool {
	t, err := time.Parse(time.RFC3339, s.ExpiresAt)
	return err != nil || !now.Before(t)
}

type diskFile struct {
	Version  int       `json:"version"`
	Sessions []Session `json:"sessions"`
}

// Store keeps sessions in memory and, when path is set, mirrors them to disk
// so logins survive a restart.
type Store struct {
	path string
	ttl  time.Duration
	mu   sync.RWMutex
	mem  map[string]Session
	now  func() time.Time
}

func New(path string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &Store{path: path, ttl: ttl, mem: map[string]Session{}, now: time.Now}
	_ = s.load()
	return s
}

func (s *Store) load() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var f diskFile
	ok, err := fsatomic.LoadJSON(s.path, &f)
	if err != nil || !ok {
		return err
	}
	now := s.now().UTC()
	for _, it := range f.Sessions {
		if !it.expired(now) {
			s.mem[it.ID] = it
		}
	}
	return nil
}

// NewID returns a fresh random session ID.
func NewID() string { return uuid.NewString() }

// Get returns the session with id. Expired sessions are dropped.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	v, ok := s.mem[id]
	s.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if v.expired(s.now().UTC()) {
		_ = s.Delete(id)
		return Session{}, false
	}
	return v, true
}

// Upsert stores sess, assigning an ID if it has none, and extends its expiry.
// The whole record is replaced: of two concurrent writers to one ID, the last wins.
func (s *Store) Upsert(sess Session) (Session, error) {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	now := s.now().UTC()
	sess.ExpiresAt = now.Add(s.ttl).Format(time.RFC3339)
	s.mu.Lock()
	s.mem[sess.ID] = sess
	list := s.liveLocked(now)
	s.mu.Unlock()
	return sess, s.persist(list)
}

// Delete removes the session with id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	delete(s.mem, id)
	list := s.liveLocked(s.now().UTC())
	s.mu.Unlock()
	return s.persist(list)
}

// Len reports the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mem)
}

func (s *Store) liveLocked(now time.Time) []Session {
	list := make([]Session, 0, len(s.mem))
	for id, v := range s.mem {
		if v.expired(now) {
			delete(s.mem, id)
			continue
		}
		list = append(list, v)
	}
	return list
}

func (s *Store) persist(list []Session) error {
	if s.path == "" {
		return nil
	}
	return fsatomic.WithLock(s.path, func() error {
		return fsatomic.SaveJSON(context.TODO(), s.path, diskFile{Version: 1, Sessions: list}, 0o600)
	})
}
