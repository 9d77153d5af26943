package api

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"sync"
	"time"

	"dormtycoon/internal/game"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many active sessions")
	ErrInvalidToken     = errors.New("invalid session token")
	ErrDuplicateRequest = errors.New("idempotency key reused with a different request")
)

const replayCacheSize = 32

type cachedResponse struct {
	fingerprint string
	status      int
	body        any
}

// session wraps one engine. The engine is single-threaded so every access
// goes through mu.
type session struct {
	mu       sync.Mutex
	token    string
	engine   *game.Engine
	lastSeen time.Time
	replay   map[string]cachedResponse
	order    []string
}

func (s *session) remember(key string, resp cachedResponse) {
	if key == "" {
		return
	}
	if _, ok := s.replay[key]; !ok {
		s.order = append(s.order, key)
	}
	s.replay[key] = resp
	for len(s.order) > replayCacheSize {
		delete(s.replay, s.order[0])
		s.order = s.order[1:]
	}
}

// Store keeps the in-memory sessions served by the API. Nothing is persisted.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	max      int
	seed     int64
	now      func() time.Time
	log      *slog.Logger
}

func NewStore(ttl time.Duration, maxSessions int, seed int64, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: map[string]*session{},
		ttl:      ttl,
		max:      maxSessions,
		seed:     seed,
		now:      time.Now,
		log:      logger,
	}
}

// create starts a session and returns it with its bearer token.
func (st *Store) create(rules game.Rules, seed int64) (*session, error) {
	if seed == 0 {
		seed = st.seed
	}
	engine, err := game.NewEngine(rules, game.NewSource(seed), st.log)
	if err != nil {
		return nil, err
	}
	s := &session{
		token:    uuid.NewString(),
		engine:   engine,
		lastSeen: st.now(),
		replay:   map[string]cachedResponse{},
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, ErrTooManySessions
	}
	st.sessions[engine.SessionID()] = s
	return s, nil
}

// get looks up a session and checks its token.
func (st *Store) get(id, token string) (*session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	if ok {
		s.lastSeen = st.now()
	}
	st.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
		return nil, ErrInvalidToken
	}
	return s, nil
}

func (st *Store) remove(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep() int {
	cutoff := st.now().Add(-st.ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		st.log.Info("evicted idle sessions", "count", removed, "active", len(st.sessions))
	}
	return removed
}
