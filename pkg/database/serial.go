package database

import (
	"context"
	"sync"
)

// SerialTxRunner runs fn without a database transaction, one call at a time within this
// process. It backs standalone development servers without a replica set, and tests.
// Writes made before fn fails are not rolled back.
type SerialTxRunner struct {
	mu sync.Mutex
}

// WithTransaction runs fn while holding the runner's lock
func (s *SerialTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

var _ TxRunner = (*SerialTxRunner)(nil)
