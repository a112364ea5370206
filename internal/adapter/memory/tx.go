package memory

import (
	"context"
	"sync"
)

// TxManager stands in for trm.Manager when rides and profiles live in memory.
// Do calls run one at a time and must not nest.
type TxManager struct {
	mu sync.Mutex
}

func NewTxManager() *TxManager {
	return &TxManager{}
}

func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx)
}
