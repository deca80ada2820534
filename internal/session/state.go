package session

import (
	"errors"
	"fmt"
)

// State is the lifecycle phase of the browser session.
type State int

const (
	StateUnstarted State = iota
	StateAwaitingLogin
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "UNSTARTED"
	case StateAwaitingLogin:
		return "AWAITING_LOGIN"
	case StateReady:
		return "READY"
	case StateClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrIllegalTransition is returned when an operation would move the session backwards.
var ErrIllegalTransition = errors.New("illegal session state transition")

// Ready never goes back to AwaitingLogin; Closed is terminal.
var validTransitions = map[State][]State{
	StateUnstarted:     {StateAwaitingLogin, StateClosed},
	StateAwaitingLogin: {StateReady, StateClosed},
	StateReady:         {StateClosed},
	StateClosed:        {},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
