// Package focus tracks which fragment of the current reading list is
// highlighted for read-aloud navigation.
package focus

import "sync"

// Unfocused is the index value meaning nothing is highlighted.
const Unfocused = -1

// State is a snapshot of the navigator. Index is Unfocused or in [0, Count).
type State struct {
	Index int `json:"index"`
	Count int `json:"count"`
}

// Focused reports whether a fragment is highlighted.
func (s State) Focused() bool {
	return s.Index != Unfocused
}

// Navigator is the focus state machine. It has no terminal state.
type Navigator struct {
	mu    sync.Mutex
	state State
}

// NewNavigator returns an unfocused navigator over an empty list.
func NewNavigator() *Navigator {
	return &Navigator{state: State{Index: Unfocused}}
}

// Next moves focus forward, wrapping at the end. From unfocused it lands
// on the first fragment. It is a no-op on an empty list.
func (n *Navigator) Next() State {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state.Count == 0 {
		return n.state
	}
	if n.state.Index == Unfocused {
		n.state.Index = 0
	} else {
		n.state.Index = (n.state.Index + 1) % n.state.Count
	}
	return n.state
}

// Prev moves focus backward, wrapping at the start. From unfocused it lands
// on the last fragment. It is a no-op on an empty list.
func (n *Navigator) Prev() State {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.state.Count == 0 {
		return n.state
	}
	if n.state.Index == Unfocused {
		n.state.Index = n.state.Count - 1
	} else {
		n.state.Index = (n.state.Index - 1 + n.state.Count) % n.state.Count
	}
	return n.state
}

// Sync applies a newly published list length. An empty list forces
// Unfocused; an index past the new end is clamped to 0.
func (n *Navigator) Sync(count int) State {
	n.mu.Lock()
	defer n.mu.Unlock()

	if count <= 0 {
		n.state = State{Index: Unfocused, Count: 0}
		return n.state
	}
	n.state.Count = count
	if n.state.Index >= count {
		n.state.Index = 0
	}
	return n.state
}

// State returns the current snapshot.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}
