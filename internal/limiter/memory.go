package limiter

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

// Memory is an in-process limiter for single-instance servers and tests.
type Memory struct {
	Policy

	mu  sync.Mutex
	m   map[string]*entry
	now func() time.Time
}

// NewMemory constructs an in-memory limiter.
func NewMemory(p Policy) *Memory {
	return &Memory{Policy: p, m: map[string]*entry{}, now: time.Now}
}

func key(email string, ipHash []byte) string { return email + "\x00" + string(ipHash) }

func (l *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.m[key(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := l.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (l *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.m, key(email, ipHash))
	return nil
}

func (l *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(email, ipHash)
	e, ok := l.m[k]
	if !ok {
		e = &entry{}
		l.m[k] = e
	}
	if now.Sub(e.updatedAt) > l.Window {
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now
	if e.fails < l.MaxFails {
		return false, 0, nil
	}
	e.blockedUntil = now.Add(l.BlockFor)
	return true, l.BlockFor, nil
}
