package session

import "github.com/dmitrijs2005/gophstore/internal/client/models"

// Status is the verification state of the stored token. Exactly one holds
// at any time.
type Status int

const (
	StatusUnknown Status = iota
	StatusVerifying
	StatusAuthenticated
	StatusUnauthenticated
	StatusVerificationFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusVerifying:
		return "verifying"
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusVerificationFailed:
		return "verification-failed"
	default:
		return "invalid"
	}
}

// State is what the guard knows about the session. Reason is set only in
// StatusVerificationFailed, Role only in StatusAuthenticated.
type State struct {
	Status Status
	Reason string
	Role   models.Role
}

// Event is an input of Reduce.
type Event interface {
	isEvent()
}

// Mounted starts a verification round.
type Mounted struct {
	HasToken bool
}

// Verified means the backend accepted the token.
type Verified struct {
	Role models.Role
}

// Rejected means the backend answered the verification with a non-2xx status.
type Rejected struct {
	StatusCode int
}

// TransportFailed means the verification got no answer at all.
type TransportFailed struct {
	Reason string
}

// Expired means a later call was refused with 401 after the session had
// been verified.
type Expired struct{}

func (Mounted) isEvent()         {}
func (Verified) isEvent()        {}
func (Rejected) isEvent()        {}
func (TransportFailed) isEvent() {}
func (Expired) isEvent()         {}

// Effect is a side effect the guard must run after a transition.
type Effect int

const (
	EffectVerify Effect = iota + 1
	EffectClearToken
	EffectRedirect
	EffectScheduleRedirect
)

func (e Effect) String() string {
	switch e {
	case EffectVerify:
		return "verify"
	case EffectClearToken:
		return "clear-token"
	case EffectRedirect:
		return "redirect"
	case EffectScheduleRedirect:
		return "schedule-redirect"
	default:
		return "invalid"
	}
}

// Effects are run in order.
type Effects []Effect

func (es Effects) Has(e Effect) bool {
	for _, x := range es {
		if x == e {
			return true
		}
	}
	return false
}

// Reduce is the transition function of the guard. It is pure: unknown
// (state, event) pairs return the state unchanged and no effects.
func Reduce(s State, ev Event) (State, Effects) {
	switch e := ev.(type) {
	case Mounted:
		if s.Status != StatusUnknown {
			break
		}
		if !e.HasToken {
			return State{Status: StatusUnauthenticated}, Effects{EffectRedirect}
		}
		return State{Status: StatusVerifying}, Effects{EffectVerify}

	case Verified:
		if s.Status == StatusVerifying {
			return State{Status: StatusAuthenticated, Role: e.Role}, nil
		}

	case Rejected:
		if s.Status == StatusVerifying {
			return State{Status: StatusUnauthenticated}, Effects{EffectClearToken, EffectRedirect}
		}

	case TransportFailed:
		if s.Status == StatusVerifying {
			return State{Status: StatusVerificationFailed, Reason: e.Reason}, Effects{EffectScheduleRedirect}
		}

	case Expired:
		if s.Status == StatusAuthenticated {
			return State{Status: StatusUnauthenticated}, Effects{EffectClearToken, EffectRedirect}
		}
	}
	return s, nil
}
