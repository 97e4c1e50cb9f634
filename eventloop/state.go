package eventloop

import "sync/atomic"

// State represents the current lifecycle stage of a [Loop].
//
// Transitions:
//
//	StateIdle -> StateRunning         [Run]
//	StateRunning -> StateSleeping     [poll, no pending work]
//	StateSleeping -> StateRunning     [dispatch wakes the loop]
//	StateRunning/StateSleeping -> StateTerminating   [Stop/Close]
//	StateTerminating -> StateTerminated              [drain complete]
//
// A single atomic word, mutated exclusively via compare-and-swap so
// callers never observe a transition half-applied.
type State uint32

const (
	StateIdle State = iota
	StateRunning
	StateSleeping
	StateTerminating
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateTerminating:
		return "terminating"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

type atomicState struct {
	v atomic.Uint32
}

func newAtomicState() *atomicState {
	s := &atomicState{}
	s.v.Store(uint32(StateIdle))
	return s
}

func (s *atomicState) Load() State { return State(s.v.Load()) }

func (s *atomicState) Store(state State) { s.v.Store(uint32(state)) }

func (s *atomicState) TryTransition(from, to State) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}
