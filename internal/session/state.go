// Package session tracks the signed-in user and keeps the token store in step
// with it.
//
// Register and Login never set the user: a profile only appears after
// RestoreSession resolves with the tokens Login stored.
package session

import (
	"github.com/and161185/storefront/internal/lifecycle"
	"github.com/and161185/storefront/internal/model"
)

// Kind names a session operation.
type Kind int

const (
	KindRegister Kind = iota
	KindLogin
	KindRestore
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindRegister:
		return "register"
	case KindLogin:
		return "login"
	case KindRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// State is the session slice.
type State struct {
	User  *model.User
	Ops   [kindCount]lifecycle.Op
	Error string
}

// Initial returns a signed-out state.
func Initial() State { return State{} }

// Op returns the lifecycle of kind.
func (s State) Op(k Kind) lifecycle.Op { return s.Ops[k] }

// Loading reports whether any session request is in flight.
func (s State) Loading() bool {
	for _, op := range s.Ops {
		if op.Loading() {
			return true
		}
	}
	return false
}

// SignedIn reports whether a profile is loaded.
func (s State) SignedIn() bool { return s.User != nil }

// Event is a session state transition.
type Event interface{ EventName() string }

type (
	Pending struct {
		Token uint64
		Kind  Kind
	}
	Fulfilled struct {
		Token uint64
		Kind  Kind
		User  *model.User // set only for KindRestore
	}
	Rejected struct {
		Token uint64
		Kind  Kind
		Err   error
	}
	LoggedOut struct{}
)

func (e Pending) EventName() string   { return "session/" + e.Kind.String() + "/pending" }
func (e Fulfilled) EventName() string { return "session/" + e.Kind.String() + "/fulfilled" }
func (e Rejected) EventName() string  { return "session/" + e.Kind.String() + "/rejected" }
func (LoggedOut) EventName() string   { return "session/logout" }

// Reduce is the pure session transition function.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Pending:
		if s.Ops[e.Kind].Superseded(e.Token) {
			return s
		}
		s.Ops[e.Kind] = s.Ops[e.Kind].Begin(e.Token)
		s.Error = ""

	case Fulfilled:
		if !s.Ops[e.Kind].Accepts(e.Token) {
			return s
		}
		s.Ops[e.Kind] = s.Ops[e.Kind].Fulfill(e.Token)
		if e.Kind == KindRestore && e.User != nil {
			u := *e.User
			s.User = &u
		}

	case Rejected:
		if !s.Ops[e.Kind].Accepts(e.Token) {
			return s
		}
		s.Ops[e.Kind] = s.Ops[e.Kind].Reject(e.Token, e.Err)
		s.Error = s.Ops[e.Kind].Err
		s.User = nil

	case LoggedOut:
		// in-flight login and restore must not resurrect the session
		s.Ops[KindLogin] = s.Ops[KindLogin].Reset()
		s.Ops[KindRestore] = s.Ops[KindRestore].Reset()
		s.User = nil
		s.Error = ""
	}
	return s
}
