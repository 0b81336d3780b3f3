package status

import (
	"fmt"
	"sync"
)

// State is the lifecycle state of one work item.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	// StateUnknown is returned for items that were never registered.
	StateUnknown State = "unknown"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Reason classifies why an attempt or an item failed.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonInvalidInput     Reason = "invalid_input"
	ReasonNotFound         Reason = "not_found"
	ReasonTransport        Reason = "transport"
	ReasonRateLimited      Reason = "rate_limited"
	ReasonServerError      Reason = "server_error"
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonUnclassifiedHTTP Reason = "unclassified_http"
	ReasonRetriesExhausted Reason = "retries_exhausted"
	ReasonAborted          Reason = "aborted"
)

// Retryable reports whether another attempt may follow a failure with
// this reason.
func (r Reason) Retryable() bool {
	switch r {
	case ReasonTransport, ReasonRateLimited, ReasonServerError,
		ReasonMalformedPayload, ReasonUnclassifiedHTTP:
		return true
	}
	return false
}

// ItemStatus is the current record for one work item.
type ItemStatus struct {
	Item     string
	State    State
	Reason   Reason // set only when State is StateFailed
	Attempts int
}

// ErrTerminal is returned by Store.Set when the slot already holds a
// terminal state.
type ErrTerminal struct {
	Item  string
	State State
}

func (e *ErrTerminal) Error() string {
	return fmt.Sprintf("status: item %q already terminal (%s)", e.Item, e.State)
}

// Store holds one status slot per work item.
//
// Register creates slots up front; after that, each slot is written only
// by the worker that owns the item and read by everyone else.
type Store struct {
	mu    sync.RWMutex
	slots map[string]ItemStatus
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{slots: make(map[string]ItemStatus)}
}

// Register creates a pending slot for each item. Items already present
// are left untouched.
func (s *Store) Register(items ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		if _, ok := s.slots[item]; !ok {
			s.slots[item] = ItemStatus{Item: item, State: StatePending}
		}
	}
}

// Set overwrites the slot for st.Item. Once a slot is terminal it is
// frozen: further writes return *ErrTerminal and leave the slot intact.
func (s *Store) Set(st ItemStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.slots[st.Item]; ok && cur.State.Terminal() {
		return &ErrTerminal{Item: st.Item, State: cur.State}
	}
	s.slots[st.Item] = st
	return nil
}

// Get returns the current record for item. Items never registered report
// StateUnknown.
func (s *Store) Get(item string) ItemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.slots[item]; ok {
		return st
	}
	return ItemStatus{Item: item, State: StateUnknown}
}

// Snapshot returns a copy of every slot. The copy is safe to read while
// workers keep writing.
func (s *Store) Snapshot() []ItemStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ItemStatus, 0, len(s.slots))
	for _, st := range s.slots {
		out = append(out, st)
	}
	return out
}

// AllTerminal reports whether every registered slot holds a terminal
// state. An empty store is trivially terminal.
func (s *Store) AllTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.slots {
		if !st.State.Terminal() {
			return false
		}
	}
	return true
}
