package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type registryEntry struct {
	mu       sync.Mutex
	session  *Session
	lastUsed time.Time
}

// Registry holds the sessions of a multi-user transport. Each session is
// owned by one subject and its turns run one at a time.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*registryEntry
	newID    func() string
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*registryEntry),
		newID:    func() string { return uuid.NewString() },
		now:      time.Now,
	}
}

func (r *Registry) Create(owner string, sc SessionContext, greet bool) *Session {
	session := NewSession(r.newID(), sc, greet)
	session.Owner = owner
	r.mu.Lock()
	r.sessions[session.ID] = &registryEntry{session: session, lastUsed: r.now()}
	r.mu.Unlock()
	return session
}

// With runs fn while holding the session lock. A session owned by another
// subject is reported as not found.
func (r *Registry) With(ctx context.Context, id, owner string, fn func(*Session) error) error {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok || entry.session.Owner != owner {
		return ErrSessionNotFound
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.lastUsed = r.now()
	return fn(entry.session)
}

// Owns reports whether id names a live session of owner. It neither waits
// for a turn in flight nor counts as activity.
func (r *Registry) Owns(id, owner string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.sessions[id]
	return ok && entry.session.Owner == owner
}

func (r *Registry) Delete(id, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok || entry.session.Owner != owner {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Expire removes sessions last used before cutoff and returns them. A
// session with a turn in flight is left for the next sweep.
func (r *Registry) Expire(cutoff time.Time) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*Session
	for id, entry := range r.sessions {
		if !entry.mu.TryLock() {
			continue
		}
		if entry.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			expired = append(expired, entry.session)
		}
		entry.mu.Unlock()
	}
	return expired
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
