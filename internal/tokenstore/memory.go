package tokenstore

import (
	"sync"

	"github.com/and161185/storefront/internal/model"
)

// Memory keeps the pair for the lifetime of the process.
type Memory struct {
	mu     sync.Mutex
	tokens *model.UserToken
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Set(tokens model.UserToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = &tokens
	return nil
}

func (m *Memory) Get() (*model.UserToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil, nil
	}
	t := *m.tokens
	return &t, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}
