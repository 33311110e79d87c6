// Package sessionstore holds the in-process registry of conversation
// sessions: an LRU with TTL eviction, plus the per-session dialog state
// that is not part of the durable tier (activation slots in flight,
// conversation-context defaults, per-turn scratch).
package sessionstore

import (
	"container/list"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convodesk/convoskills-go/spec"
)

// Activation is the state of one skill activation within a session.
// It lives from Activate until the skill completes or the session ends.
type Activation struct {
	SkillID string

	// Slots holds the slots in flight, keyed by name.
	Slots map[string]*spec.Slot

	// SlotOrder preserves definition order for turn results.
	SlotOrder []string

	// Prev maps slot name to the normalized value committed on the
	// previous turn; change handlers are edge-triggered against it.
	Prev map[string]string

	// Locals is the turn-local override tier. It also carries
	// activation-scoped scratch such as the eligibility memo.
	Locals map[string][]byte

	// Responses and Navigations accumulate within the current turn and
	// are drained into the TurnResult.
	Responses   []string
	Navigations []spec.Navigation

	Complete bool
	Metadata spec.CompletionMetadata
}

// Session is one conversation. Mu serializes turn processing: a session
// is handled by exactly one logical worker at a time.
type Session struct {
	ID string

	Mu sync.Mutex

	// Context is the conversation-context defaults tier (JSON values),
	// e.g. the order currently being viewed. Shared across skill
	// activations within the session.
	Context map[string][]byte

	Active *Activation

	closed bool
}

type Store struct {
	mu sync.Mutex

	ttl         time.Duration
	maxSessions int

	lru *list.List               // front=MRU
	m   map[string]*list.Element // id -> element(Value=*item)
}

type item struct {
	s        *Session
	lastUsed time.Time
}

const (
	defaultTTL = 24 * time.Hour
	defaultMax = 4096
)

func New() *Store {
	return &Store{
		ttl:         defaultTTL,
		maxSessions: defaultMax,
		lru:         list.New(),
		m:           map[string]*list.Element{},
	}
}

func (st *Store) SetTTL(ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	st.mu.Lock()
	st.ttl = ttl
	st.evictExpiredLocked(time.Now())
	st.mu.Unlock()
}

func (st *Store) SetMaxSessions(maxSessions int) {
	if maxSessions < 0 {
		maxSessions = 0
	}
	st.mu.Lock()
	st.maxSessions = maxSessions
	st.evictOverLimitLocked()
	st.mu.Unlock()
}

func (st *Store) NewSession() *Session {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)
	st.evictOverLimitLocked()

	id := uuid.Must(uuid.NewV7()).String()
	s := &Session{ID: id, Context: map[string][]byte{}}
	e := st.lru.PushFront(&item{s: s, lastUsed: now})
	st.m[id] = e

	st.evictOverLimitLocked()
	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	now := time.Now()
	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	e := st.m[id]
	if e == nil {
		return nil, false
	}
	it, _ := e.Value.(*item)
	if it == nil || it.s == nil || it.s.closed {
		st.deleteElemLocked(e)
		return nil, false
	}

	it.lastUsed = now
	st.lru.MoveToFront(e)
	return it.s, true
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if e := st.m[id]; e != nil {
		st.deleteElemLocked(e)
	}
}

func (st *Store) evictExpiredLocked(now time.Time) {
	if st.ttl <= 0 {
		return
	}
	for e := st.lru.Back(); e != nil; {
		prev := e.Prev()
		it, ok := e.Value.(*item)
		if !ok || it == nil || it.s == nil {
			st.deleteElemLocked(e)
			e = prev
			continue
		}
		if now.Sub(it.lastUsed) <= st.ttl {
			break
		}
		st.deleteElemLocked(e)
		e = prev
	}
}

func (st *Store) evictOverLimitLocked() {
	if st.maxSessions <= 0 {
		return
	}
	for st.lru.Len() > st.maxSessions {
		e := st.lru.Back()
		if e == nil {
			return
		}
		st.deleteElemLocked(e)
	}
}

func (st *Store) deleteElemLocked(e *list.Element) {
	it, _ := e.Value.(*item)
	if it != nil && it.s != nil {
		delete(st.m, it.s.ID)
		it.s.closed = true
	}
	st.lru.Remove(e)
}
