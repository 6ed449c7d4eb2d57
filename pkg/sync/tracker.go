package sync

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Session is a sync in progress.
type Session struct {
	Token   string
	Key     string
	Started time.Time
}

// Tracker tracks the scopes that are currently being synced, so that callers
// can avoid starting a second sync of a scope while one is still running.
// It's safe for concurrent use.
type Tracker struct {
	clock clockwork.Clock

	lock   sync.Mutex
	active map[string]Session
}

// NewTracker returns a new Tracker.
func NewTracker(clock clockwork.Clock) *Tracker {
	return &Tracker{
		clock:  clock,
		active: map[string]Session{},
	}
}

// Begin marks `scope` as being synced. It returns false if a sync of the same
// scope is already in progress, in which case the caller shouldn't start
// another.
func (tracker *Tracker) Begin(scope Scope) (Session, bool) {
	tracker.lock.Lock()
	defer tracker.lock.Unlock()

	key := scope.Key()
	if _, ok := tracker.active[key]; ok {
		return Session{}, false
	}

	session := Session{
		Token:   uuid.New().String(),
		Key:     key,
		Started: tracker.clock.Now(),
	}
	tracker.active[key] = session
	return session, true
}

// End marks the sync started by `session` as complete. Ending a session that
// was already ended, or that was replaced, is a no-op.
func (tracker *Tracker) End(session Session) time.Duration {
	tracker.lock.Lock()
	defer tracker.lock.Unlock()

	curr, ok := tracker.active[session.Key]
	if !ok || curr.Token != session.Token {
		return 0
	}
	delete(tracker.active, session.Key)
	return tracker.clock.Since(curr.Started)
}

// Active returns the sessions that are in progress.
func (tracker *Tracker) Active() []Session {
	tracker.lock.Lock()
	defer tracker.lock.Unlock()

	var sessions []Session
	for _, session := range tracker.active {
		sessions = append(sessions, session)
	}
	return sessions
}
