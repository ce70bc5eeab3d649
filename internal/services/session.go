package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Sapan02206/VendorGo/internal/models"
)

// Step identifies where a vendor is in the onboarding conversation.
type Step string

const (
	StepWelcome         Step = "welcome"
	StepCollectName     Step = "collect_name"
	StepCollectCategory Step = "collect_category"
	StepCollectLocation Step = "collect_location"
	StepCollectProducts Step = "collect_products"
	StepConfirmProfile  Step = "confirm_profile"
	StepRenameShop      Step = "rename_shop"
	StepActive          Step = "active"
)

// ErrSessionNotFound is returned by a SessionStore when no state exists for
// an identity yet.
var ErrSessionNotFound = errors.New("session not found")

// DraftProfile is the in-progress vendor profile assembled during
// onboarding.
type DraftProfile struct {
	Name     string                `json:"name"`
	Category models.VendorCategory `json:"category"`
	Location string                `json:"location"`
	Products []ProductDraft        `json:"products"`
}

// HistoryEntry records one message for audit and debugging. History never
// drives control decisions.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Direction string    `json:"direction"` // "in" or "out"
	Text      string    `json:"text"`
}

// Session is the conversational state for one phone identity.
type Session struct {
	Identity   string         `json:"identity"`
	Step       Step           `json:"step"`
	Draft      DraftProfile   `json:"draft"`
	VendorRef  string         `json:"vendor_ref"` // set once onboarding completes
	RetryCount int            `json:"retry_count"`
	History    []HistoryEntry `json:"history"`
	CreatedAt  time.Time      `json:"created_at"`
	LastActive time.Time      `json:"last_active"`

	// terminated marks the session for removal instead of save, used by
	// shop deletion so "start" begins a fresh onboarding.
	terminated bool
}

// NewSession creates the initial state for a first-contact identity.
func NewSession(identity string) *Session {
	now := time.Now()
	return &Session{
		Identity:   identity,
		Step:       StepWelcome,
		CreatedAt:  now,
		LastActive: now,
	}
}

// Onboarded reports whether a persisted profile is bound to this session.
func (s *Session) Onboarded() bool {
	return s.VendorRef != ""
}

// Terminate marks the session for deletion once the current message
// finishes processing.
func (s *Session) Terminate() {
	s.terminated = true
}

// Record appends a message to the audit history.
func (s *Session) Record(direction, text string) {
	s.History = append(s.History, HistoryEntry{
		Timestamp: time.Now(),
		Direction: direction,
		Text:      text,
	})
}

// Transition moves the session to a new step and resets the per-step retry
// counter.
func (s *Session) Transition(step Step) {
	s.Step = step
	s.RetryCount = 0
}

// SessionStore persists session state keyed by identity.
type SessionStore interface {
	Load(identity string) (*Session, error)
	Save(session *Session) error
	Delete(identity string) error
	Count() (int, error)
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (m *MemorySessionStore) Load(identity string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[identity]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *MemorySessionStore) Save(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.Identity] = session
	return nil
}

func (m *MemorySessionStore) Delete(identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, identity)
	return nil
}

func (m *MemorySessionStore) Count() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// SessionManager owns exclusive access to sessions per identity: one
// message per identity is processed to completion at a time while
// unrelated identities proceed in parallel. Sessions are never expired.
type SessionManager struct {
	store SessionStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionManager creates a new session manager backed by the given
// store.
func NewSessionManager(store SessionStore) *SessionManager {
	return &SessionManager{
		store: store,
		locks: make(map[string]*sync.Mutex),
	}
}

func (sm *SessionManager) lockFor(identity string) *sync.Mutex {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	lock, exists := sm.locks[identity]
	if !exists {
		lock = &sync.Mutex{}
		sm.locks[identity] = lock
	}
	return lock
}

// WithSession runs fn while holding the identity's lock. The session is
// created on first contact, and saved (or deleted, if terminated) after fn
// returns without error.
func (sm *SessionManager) WithSession(identity string, fn func(*Session) error) error {
	lock := sm.lockFor(identity)
	lock.Lock()
	defer lock.Unlock()

	session, err := sm.store.Load(identity)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			return fmt.Errorf("load session for %s: %w", identity, err)
		}
		session = NewSession(identity)
		log.Printf("Session created for %s", identity)
	}

	session.LastActive = time.Now()

	if err := fn(session); err != nil {
		return err
	}

	if session.terminated {
		return sm.store.Delete(identity)
	}
	return sm.store.Save(session)
}

// ActiveSessionCount reports how many sessions exist (for monitoring).
func (sm *SessionManager) ActiveSessionCount() int {
	count, err := sm.store.Count()
	if err != nil {
		log.Printf("Failed to count sessions: %v", err)
		return 0
	}
	return count
}
