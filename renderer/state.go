package renderer

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a Renderer.
type State int

const (
	Loading State = iota
	Ready
	Running
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrIllegalTransition is returned for lifecycle calls the current state
// does not allow, such as resuming a running session.
var ErrIllegalTransition = errors.New("illegal state transition")

var transitions = map[State][]State{
	Loading: {Ready, Failed},
	Ready:   {Running, Stopped, Failed},
	Running: {Stopped, Failed},
	Stopped: {Running, Failed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition moves r to state to, or reports why it cannot.
func (r *Renderer) transition(to State) error {
	if !canTransition(r.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, r.state, to)
	}
	r.state = to
	return nil
}
