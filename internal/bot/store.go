package bot

import (
	"fmt"
	"maps"
	"sync"

	"github.com/bnema/bncbot/internal/domain"
	"github.com/bnema/bncbot/internal/ports"
)

// Store owns the authoritative in-memory copy of the queue and user table
// and writes it through the repository after every mutation. All access goes
// through its mutex; handlers never hold references into the live maps.
type Store struct {
	mu    sync.RWMutex
	state domain.State
	repo  ports.StateRepository
}

func NewStore(repo ports.StateRepository) *Store {
	return &Store{state: domain.NewState(), repo: repo}
}

// Load replaces the in-memory state with the persisted one.
func (st *Store) Load() error {
	state, err := st.repo.Load()
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	st.mu.Lock()
	st.state = state
	st.mu.Unlock()
	return nil
}

// persist must be called with st.mu held.
func (st *Store) persist() error {
	if err := st.repo.Save(st.state.Clone()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Queue returns a copy of the request queue.
func (st *Store) Queue() map[string]string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return maps.Clone(st.state.Queue)
}

// Users returns a copy of the user table.
func (st *Store) Users() map[string]string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return maps.Clone(st.state.Users)
}

func (st *Store) QueueEntry(name string) (string, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	entry, ok := st.state.Queue[name]
	return entry, ok
}

func (st *Store) AddQueue(name, registeredTime string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Queue[name] = registeredTime
	return st.persist()
}

// TakeQueue removes the queue entry for name and returns it, in one step.
// Concurrent approvals of the same request race on this call; exactly one
// sees the entry.
func (st *Store) TakeQueue(name string) (string, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	entry, ok := st.state.Queue[name]
	if !ok {
		return "", false, nil
	}
	delete(st.state.Queue, name)
	return entry, true, st.persist()
}

func (st *Store) HasUser(name string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.state.Users[name]
	return ok
}

func (st *Store) SetUser(name, bindHost string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Users[name] = bindHost
	return st.persist()
}

// StageUser records a user discovered during resynchronization with its bind
// host still pending.
func (st *Store) StageUser(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Users[name] = ""
	return st.persist()
}

func (st *Store) RemoveUser(name string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.state.Users[name]; !ok {
		return nil
	}
	delete(st.state.Users, name)
	return st.persist()
}

// ResetUsers clears the user table ahead of a bulk resynchronization.
func (st *Store) ResetUsers() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.Users = map[string]string{}
	return st.persist()
}

// BindHostInUse reports whether any user already holds the address.
func (st *Store) BindHostInUse(host string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, assigned := range st.state.Users {
		if assigned == host {
			return true
		}
	}
	return false
}
