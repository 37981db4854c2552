package merge

import (
	"testing"

	"github.com/skyhist/skypemerge/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Idle {
		t.Errorf("initial state = %s, want IDLE", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		walk []State
	}{
		{[]State{Scanning, Scanned, Merging, Idle}},
		{[]State{Scanning, Idle}},
		{[]State{Merging, Idle}},
		{[]State{Scanning, Scanned, Scanning, Idle}},
		{[]State{Scanning, Scanned, Idle}},
	}
	for _, tt := range tests {
		m := NewMachine(nil)
		for _, to := range tt.walk {
			if err := m.Transition(to); err != nil {
				t.Errorf("walk %v: %v", tt.walk, err)
				break
			}
		}
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Scanned); err == nil {
		t.Error("Transition(IDLE -> SCANNED) should fail")
	}
	if m.Current() != Idle {
		t.Errorf("failed transition must not change state, got %s", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("merge.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Scanning); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "merge.state_changed" {
		t.Errorf("kind = %s, want merge.state_changed", evt.Kind)
	}
	change, ok := evt.Payload.(StateChange)
	if !ok {
		t.Fatalf("payload type = %T, want StateChange", evt.Payload)
	}
	if change.From != Idle || change.To != Scanning {
		t.Errorf("change = %+v, want IDLE -> SCANNING", change)
	}
}
