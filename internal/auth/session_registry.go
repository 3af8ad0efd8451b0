package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/2beens/orderbox/pkg"
)

const sessionTokenBytes = 24

var ErrTokenCollision = errors.New("session token already in use")

type Session struct {
	Username string
	IssuedAt time.Time
}

// SessionRegistry holds admin sessions in memory, keyed by token.
// Sessions live until revoked or until the process exits; nothing expires
// them and the map is not bounded.
type SessionRegistry struct {
	mutex    sync.RWMutex
	sessions map[string]Session
	// ability to inject token generator func (for unit testing)
	TokenFunc func() (string, error)
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]Session),
		TokenFunc: func() (string, error) {
			return pkg.GenerateRandomHex(sessionTokenBytes)
		},
	}
}

func (r *SessionRegistry) Create(username string, issuedAt time.Time) (string, error) {
	token, err := r.TokenFunc()
	if err != nil {
		return "", err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.sessions[token]; exists {
		return "", ErrTokenCollision
	}

	r.sessions[token] = Session{
		Username: username,
		IssuedAt: issuedAt,
	}

	return token, nil
}

func (r *SessionRegistry) Lookup(token string) (Session, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	s, ok := r.sessions[token]
	return s, ok
}

// Revoke removes the session; revoking an unknown token is a no-op.
func (r *SessionRegistry) Revoke(token string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.sessions, token)
}

func (r *SessionRegistry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.sessions)
}
