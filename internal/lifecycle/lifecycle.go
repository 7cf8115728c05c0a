// Package lifecycle tracks the request lifecycle of asynchronous operations.
//
// Every dispatched intent receives a token from Tokens. An Op only accepts the
// resolution carrying its latest token, so a slow, superseded request can never
// overwrite the result of the one issued after it.
package lifecycle

import (
	"sync/atomic"

	"github.com/and161185/storefront/internal/errs"
)

// Status is the state of one logical operation.
type Status int

const (
	Idle Status = iota
	Pending
	Fulfilled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Op is the lifecycle of one operation kind. The zero value is Idle.
type Op struct {
	Status Status
	Err    string // set only while Rejected
	Latest uint64 // token of the most recently dispatched intent
}

// Loading reports whether a request is in flight.
func (o Op) Loading() bool { return o.Status == Pending }

// Accepts reports whether a resolution with token is the current one.
func (o Op) Accepts(token uint64) bool { return o.Status == Pending && token == o.Latest }

// Superseded reports whether a newer intent than token has already begun.
func (o Op) Superseded(token uint64) bool { return token < o.Latest }

// Begin enters Pending for token and clears any previous error. A token older
// than Latest leaves o unchanged.
func (o Op) Begin(token uint64) Op {
	if o.Superseded(token) {
		return o
	}
	return Op{Status: Pending, Latest: token}
}

// Reset returns to Idle, remembering Latest so older intents stay superseded.
func (o Op) Reset() Op { return Op{Latest: o.Latest} }

// Fulfill completes the op if token is current; otherwise it returns o unchanged.
func (o Op) Fulfill(token uint64) Op {
	if !o.Accepts(token) {
		return o
	}
	return Op{Status: Fulfilled, Latest: token}
}

// Reject fails the op if token is current; otherwise it returns o unchanged.
func (o Op) Reject(token uint64, err error) Op {
	if !o.Accepts(token) {
		return o
	}
	return Op{Status: Rejected, Err: errs.Message(err), Latest: token}
}

// Tokens issues monotonically increasing request tokens. Safe for concurrent use.
type Tokens struct{ n atomic.Uint64 }

// Next returns a fresh token, never zero.
func (t *Tokens) Next() uint64 { return t.n.Add(1) }
