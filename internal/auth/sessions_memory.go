package auth

import (
	"context"
	"sync"
	"time"

	"github.com/mkovacevic/shopfront/pkg"

	log "github.com/sirupsen/logrus"
)

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore keeps sessions in a process-local map. Expiry is
// detected lazily on Get; ScanAndClean sweeps leftovers periodically.
type MemorySessionStore struct {
	ttl      time.Duration
	mutex    sync.RWMutex
	sessions map[string]*Session

	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
	// injectable clock for expiry tests
	NowFunc func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		ttl:            ttl,
		sessions:       make(map[string]*Session),
		RandStringFunc: pkg.GenerateRandomString,
		NowFunc:        time.Now,
	}
}

func (ms *MemorySessionStore) Create(_ context.Context, principal Principal) (string, error) {
	token, err := ms.RandStringFunc(sessionTokenLength)
	if err != nil {
		return "", err
	}

	now := ms.NowFunc()
	session := &Session{
		Token:     token,
		Principal: principal,
		CreatedAt: now,
		ExpiresAt: now.Add(ms.ttl),
	}

	ms.mutex.Lock()
	ms.sessions[token] = session
	ms.mutex.Unlock()

	return token, nil
}

func (ms *MemorySessionStore) Get(_ context.Context, token string) (*Principal, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	session, ok := ms.sessions[token]
	if !ok {
		return nil, ErrNoSession
	}

	if ms.NowFunc().After(session.ExpiresAt) {
		delete(ms.sessions, token)
		return nil, ErrNoSession
	}

	principal := session.Principal
	return &principal, nil
}

func (ms *MemorySessionStore) Destroy(_ context.Context, token string) error {
	ms.mutex.Lock()
	delete(ms.sessions, token)
	ms.mutex.Unlock()
	return nil
}

// Count returns the number of stored sessions, expired ones included
// until the next sweep.
func (ms *MemorySessionStore) Count() int {
	ms.mutex.RLock()
	defer ms.mutex.RUnlock()
	return len(ms.sessions)
}

// ScanAndClean will run through all sessions and remove the expired ones
func (ms *MemorySessionStore) ScanAndClean(_ context.Context) {
	now := ms.NowFunc()

	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	var removed int
	for token, session := range ms.sessions {
		if now.After(session.ExpiresAt) {
			delete(ms.sessions, token)
			removed++
		}
	}

	if removed > 0 {
		log.Debugf("session store: scan and clean removed %d expired sessions", removed)
	}
}
