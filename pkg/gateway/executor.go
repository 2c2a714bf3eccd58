package gateway

import (
	"context"
	"time"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// Executor submits a prepared batch to the store as one unordered bulk insert
type Executor struct {
	store   domain.DocumentStore
	timeout time.Duration
}

// NewExecutor creates an executor; a zero timeout leaves the deadline to the caller's context
func NewExecutor(store domain.DocumentStore, timeout time.Duration) *Executor {
	return &Executor{store: store, timeout: timeout}
}

// Execute performs the bulk insert. It never retries.
func (e *Executor) Execute(ctx context.Context, collection string, docs []domain.PreparedDocument) (domain.BulkWriteResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.store.BulkInsert(ctx, collection, docs)
}
