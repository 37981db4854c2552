package merge

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/skyhist/skypemerge/internal/bus"
)

// State represents a coordinator runtime state.
type State string

const (
	Idle     State = "IDLE"
	Scanning State = "SCANNING"
	Scanned  State = "SCANNED"
	Merging  State = "MERGING"
)

// validTransitions defines allowed state transitions. A scan that ends
// cancelled or without usable diffs falls back to Idle; a completed one
// parks in Scanned so its results can be merged without rescanning.
var validTransitions = map[State][]State{
	Idle:     {Scanning, Merging},
	Scanning: {Scanned, Idle},
	Scanned:  {Scanning, Merging, Idle},
	Merging:  {Idle},
}

// Machine tracks and enforces coordinator state transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Idle state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "merge.state_changed",
			Timestamp: time.Now(),
			Payload: StateChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StateChange is the payload for state change events.
type StateChange struct {
	From State
	To   State
}
