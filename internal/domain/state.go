package domain

// State is the durable BNC record set: the request queue and the user table.
// The session owns the single authoritative copy; the repository persists it
// after every mutation.
type State struct {
	// Queue maps a verified account identity to the registration timestamp
	// text captured when the request was admitted.
	Queue map[string]string
	// Users maps an account name to its allocated bind host. The empty
	// string marks an account whose bind host has not been recorded yet.
	Users map[string]string
}

// NewState returns an empty state with both maps allocated.
func NewState() State {
	return State{
		Queue: map[string]string{},
		Users: map[string]string{},
	}
}

// Clone returns a deep copy so callers can hand snapshots across goroutine
// boundaries without aliasing the live maps.
func (s State) Clone() State {
	out := State{
		Queue: make(map[string]string, len(s.Queue)),
		Users: make(map[string]string, len(s.Users)),
	}
	for k, v := range s.Queue {
		out.Queue[k] = v
	}
	for k, v := range s.Users {
		out.Users[k] = v
	}
	return out
}
