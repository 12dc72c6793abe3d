package service

import (
	"context"
	"sync"
	"time"

	dErrors "orgportal/pkg/domain-errors"
)

// StoreTx provides a transactional boundary for workflow mutations.
// Implementations may wrap a database transaction or an in-memory lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const defaultTxTimeout = 5 * time.Second

// Snapshotter captures a store's current state and hands back a restore
// function. The in-memory transaction runner uses it to undo partial writes
// when the transaction body fails.
type Snapshotter interface {
	Snapshot() (restore func())
}

// inMemoryStoreTx serializes mutations for in-memory stores and rolls the
// participating stores back to their pre-transaction state on error.
// Serializing every submit/decide also closes the allocator's
// scan-then-insert race without relying on database constraints.
type inMemoryStoreTx struct {
	mu      sync.Mutex
	timeout time.Duration
	stores  []Snapshotter
}

// NewInMemoryStoreTx creates a mutex-based transaction runner. Every store
// the transaction body may write to must be passed in, or its writes survive
// a failed transaction.
func NewInMemoryStoreTx(stores ...Snapshotter) StoreTx {
	return &inMemoryStoreTx{stores: stores}
}

func (t *inMemoryStoreTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	restores := make([]func(), 0, len(t.stores))
	for _, s := range t.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
