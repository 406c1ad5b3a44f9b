// Package session tracks each user's position in a multi-step conversation
// (deposit amount → proof, withdrawal amount → address, support message).
// State is in-memory and ephemeral: losing it on restart only costs the user a
// restarted flow, never correctness, because balances move exclusively through
// persisted approval requests.
package session

import "sync"

// Mode is the conversation step a user is currently in.
// Exactly one mode is active per user at any time.
type Mode int

const (
	ModeIdle Mode = iota
	ModeAwaitingDepositAmount
	ModeAwaitingDepositProof
	ModeAwaitingWithdrawAmount
	ModeAwaitingWithdrawAddress
	ModeAwaitingSupportMessage
)

// String returns a human-readable mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAwaitingDepositAmount:
		return "awaiting_deposit_amount"
	case ModeAwaitingDepositProof:
		return "awaiting_deposit_proof"
	case ModeAwaitingWithdrawAmount:
		return "awaiting_withdraw_amount"
	case ModeAwaitingWithdrawAddress:
		return "awaiting_withdraw_address"
	case ModeAwaitingSupportMessage:
		return "awaiting_support_message"
	default:
		return "unknown"
	}
}

// State is one user's conversation position plus the values captured mid-flow.
type State struct {
	Mode          Mode
	PendingAmount int64
}

// Store is a concurrency-safe in-memory session store keyed by user ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*State
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*State)}
}

// Get returns a copy of the user's session state; absent users are Idle.
func (s *Store) Get(userID int64) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.sessions[userID]; ok {
		return *st
	}
	return State{Mode: ModeIdle}
}

// SetMode moves the user into a new mode, preserving captured values.
func (s *Store) SetMode(userID int64, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		st = &State{}
		s.sessions[userID] = st
	}
	st.Mode = mode
}

// SetAmount stores the amount captured mid-flow and advances to mode.
func (s *Store) SetAmount(userID int64, amount int64, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[userID]
	if !ok {
		st = &State{}
		s.sessions[userID] = st
	}
	st.PendingAmount = amount
	st.Mode = mode
}

// Clear resets the user to Idle and drops all captured values.
// This is the only way out of a non-Idle mode besides completing the flow.
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
