// Package session holds the in-progress wizard state of each chat.
//
// Sessions live in process memory only; a restart abandons every open wizard.
// Sessions never expire on their own: they are removed when the wizard saves
// a transaction or the user sends /cancel.
package session

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/maingberg-rgb/finansi/internal/models"
)

// Step is the wizard state a session is waiting in.
type Step string

const (
	StepType           Step = "TYPE"
	StepParentCategory Step = "PARENT_CATEGORY"
	StepSubCategory    Step = "SUB_CATEGORY"
	StepNewParentName  Step = "NEW_PARENT_NAME"
	StepNewSubName     Step = "NEW_SUB_NAME"
	StepConfirmNote    Step = "CONFIRM_NOTE"
	StepWaitForNote    Step = "WAIT_FOR_NOTE"
)

// ExpectsText reports whether the step is answered by a free-text message
// rather than a button press.
func (s Step) ExpectsText() bool {
	switch s {
	case StepNewParentName, StepNewSubName, StepWaitForNote:
		return true
	}
	return false
}

// Session is the state of one chat's wizard.
type Session struct {
	Step       Step
	Amount     decimal.Decimal
	Type       models.CategoryType
	ParentID   uint
	CategoryID uint
	AddedBy    string
}

// Store maps chat ids to sessions.
//
// Lock serializes handlers of the same chat: a caller holds the lock for the
// whole read-transition-write sequence. Different chats never contend.
type Store interface {
	// Get retrieves the session of a chat
	Get(chatID int64) (Session, bool)

	// Set stores the session of a chat, replacing any previous one
	Set(chatID int64, s Session)

	// Delete removes the session of a chat
	Delete(chatID int64)

	// Size returns the number of open sessions
	Size() int

	// Lock blocks until the caller owns the chat or ctx is done.
	Lock(ctx context.Context, chatID int64) (unlock func(), err error)
}

type chatLock struct {
	sem  *semaphore.Weighted
	refs int
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	locks    map[int64]*chatLock
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		locks:    make(map[int64]*chatLock),
	}
}

func (m *MemoryStore) Get(chatID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	return s, ok
}

func (m *MemoryStore) Set(chatID int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[chatID] = s
}

func (m *MemoryStore) Delete(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

func (m *MemoryStore) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) Lock(ctx context.Context, chatID int64) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[chatID]
	if !ok {
		l = &chatLock{sem: semaphore.NewWeighted(1)}
		m.locks[chatID] = l
	}
	l.refs++
	m.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		m.release(chatID, l)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.sem.Release(1)
			m.release(chatID, l)
		})
	}, nil
}

// release drops one reference and forgets the lock once nobody holds or waits on it.
func (m *MemoryStore) release(chatID int64, l *chatLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, chatID)
	}
}

// lockCount is the number of chats with a held or awaited lock.
func (m *MemoryStore) lockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
