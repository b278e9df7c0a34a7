// Package session implements the in-memory session registry: the
// authoritative map of live sessions, their mutable state, capacity
// enforcement, and idle reaping support.
package session

import (
	"sync"
	"time"

	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
)

// Property is a tagged variant mirroring the Configure oneof.
type Property struct {
	Kind          PropertyKind
	Schema        string
	Graph         string
	TimeZoneMins  int32
	ParamName     string
	ParamValue    gqltypes.Value
}

type PropertyKind int

const (
	PropertySchema PropertyKind = iota
	PropertyGraph
	PropertyTimeZone
	PropertyParameter
)

// ResetTarget selects what Reset clears.
type ResetTarget int

const (
	ResetAll ResetTarget = iota
	ResetSchema
	ResetGraph
	ResetTimeZone
	ResetParameters
)

// State is the mutable per-session state held by the registry.
type State struct {
	CurrentGraph        *string
	CurrentSchema       *string
	TimeZoneOffsetMins  int16
	Parameters          map[string]gqltypes.Value
	ActiveTransactionID *string
	LastActivity        time.Time
}

func newState(now time.Time) *State {
	return &State{
		Parameters:   make(map[string]gqltypes.Value),
		LastActivity: now,
	}
}

// Registry is the authoritative map of live sessions, guarded by a single
// reader/writer lock. Critical sections are short and never perform I/O or
// call into the backend while the lock is held.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*State
	maxSessions int // 0 means unlimited
}

// New creates an empty Registry. maxSessions <= 0 means unlimited.
func New(maxSessions int) *Registry {
	return &Registry{
		sessions:    make(map[string]*State),
		maxSessions: maxSessions,
	}
}

// Register inserts a new session with default state. Fails with a Session
// capacity error if maxSessions is set and would be exceeded.
func (r *Registry) Register(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		return gqlerr.SessionCapacity()
	}
	r.sessions[id] = newState(time.Now())
	return nil
}

// Remove deletes the session, reporting whether it existed.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Exists reports whether id is currently registered.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// Touch updates last_activity to now; a silent no-op if id is missing.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastActivity = time.Now()
	}
}

// Configure applies property to the session's local state. Fails with a
// Session-not-found error if the session is absent.
func (r *Registry) Configure(id string, prop Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return gqlerr.SessionNotFound(id)
	}
	switch prop.Kind {
	case PropertySchema:
		schema := prop.Schema
		s.CurrentSchema = &schema
	case PropertyGraph:
		graph := prop.Graph
		s.CurrentGraph = &graph
	case PropertyTimeZone:
		s.TimeZoneOffsetMins = int16(prop.TimeZoneMins)
	case PropertyParameter:
		s.Parameters[prop.ParamName] = prop.ParamValue
	}
	return nil
}

// Reset clears the selected target(s). Fails with Session-not-found if the
// session is absent.
func (r *Registry) Reset(id string, target ResetTarget) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return gqlerr.SessionNotFound(id)
	}
	switch target {
	case ResetAll:
		s.CurrentGraph = nil
		s.CurrentSchema = nil
		s.TimeZoneOffsetMins = 0
		s.Parameters = make(map[string]gqltypes.Value)
	case ResetSchema:
		s.CurrentSchema = nil
	case ResetGraph:
		s.CurrentGraph = nil
	case ResetTimeZone:
		s.TimeZoneOffsetMins = 0
	case ResetParameters:
		s.Parameters = make(map[string]gqltypes.Value)
	}
	return nil
}

// ActiveTransaction returns the session's active transaction id, if any.
func (r *Registry) ActiveTransaction(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok || s.ActiveTransactionID == nil {
		return "", false
	}
	return *s.ActiveTransactionID, true
}

// SetActiveTransaction sets or clears (txID == "") the session's active
// transaction pointer. Silent no-op if the session is absent, per the
// re-check-under-lock policy for the Configure-path race (see DESIGN.md).
func (r *Registry) SetActiveTransaction(id string, txID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return
	}
	if txID == "" {
		s.ActiveTransactionID = nil
		return
	}
	t := txID
	s.ActiveTransactionID = &t
}

// Snapshot returns a shallow copy of the session's state for read-only use
// (e.g. building a handshake response or a diagnostic dump). ok is false if
// the session does not exist.
func (r *Registry) Snapshot(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return State{}, false
	}
	return *s, true
}

// ReapIdle scans all sessions and removes any whose last activity predates
// now-maxIdle, returning their ids. The registry itself is only the sweep
// primitive; scheduling the sweep is the reaper's job (package server).
func (r *Registry) ReapIdle(maxIdle time.Duration) []string {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	defer r.mu.Unlock()
	var reaped []string
	for id, s := range r.sessions {
		if s.LastActivity.Before(cutoff) {
			reaped = append(reaped, id)
			delete(r.sessions, id)
		}
	}
	return reaped
}

// Count returns the number of currently registered sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
