// Package txn implements the in-memory transaction registry: session
// affinity and the single-active-transaction-per-session invariant,
// enforced atomically under one lock.
package txn

import (
	"sync"

	"github.com/grafeodb/gwp/gqlerr"
)

// Mode is the transaction access mode.
type Mode int

const (
	ReadWrite Mode = iota
	ReadOnly
)

// State is a registered transaction's identity.
type State struct {
	SessionID string
	Mode      Mode
}

// Registry is the authoritative map of live transactions, keyed by
// transaction id.
type Registry struct {
	mu              sync.RWMutex
	transactions    map[string]State
	bySession       map[string]string // session_id -> tx_id, enforces single-active
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		transactions: make(map[string]State),
		bySession:    make(map[string]string),
	}
}

// Register inserts txID for sessionID. Fails with a Transaction "active
// transaction" error if sessionID already has an entry; the check and
// insert happen atomically under the registry's lock.
func (r *Registry) Register(txID, sessionID string, mode Mode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.bySession[sessionID]; exists {
		return gqlerr.TransactionActive(sessionID)
	}
	r.transactions[txID] = State{SessionID: sessionID, Mode: mode}
	r.bySession[sessionID] = txID
	return nil
}

// Remove deletes txID, returning its State. Fails with Transaction-not-found
// if absent.
func (r *Registry) Remove(txID string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.transactions[txID]
	if !ok {
		return State{}, gqlerr.TransactionNotFound(txID)
	}
	delete(r.transactions, txID)
	if r.bySession[s.SessionID] == txID {
		delete(r.bySession, s.SessionID)
	}
	return s, nil
}

// Validate checks that txID exists and belongs to sessionID.
func (r *Registry) Validate(txID, sessionID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.transactions[txID]
	if !ok {
		return gqlerr.TransactionNotFound(txID)
	}
	if s.SessionID != sessionID {
		return gqlerr.TransactionWrongSession(txID, sessionID)
	}
	return nil
}

// RemoveForSession removes any transaction belonging to sessionID (at most
// one, by invariant) and returns the removed ids, used on session close/reap.
func (r *Registry) RemoveForSession(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	txID, ok := r.bySession[sessionID]
	if !ok {
		return nil
	}
	delete(r.transactions, txID)
	delete(r.bySession, sessionID)
	return []string{txID}
}

// Exists reports whether txID is currently registered.
func (r *Registry) Exists(txID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.transactions[txID]
	return ok
}

// Count returns the number of currently registered transactions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transactions)
}
