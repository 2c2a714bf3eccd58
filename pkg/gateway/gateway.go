package gateway

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

const defaultPublishTimeout = 5 * time.Second

// WriteResult describes a successfully reconciled write
type WriteResult struct {
	Collection string
	Inserted   []domain.InsertedRecord
	Conflicts  int
	Skipped    int
	CreatedAt  time.Time
}

// Records returns the caller's original records that were newly persisted
func (r *WriteResult) Records() []domain.Record {
	records := make([]domain.Record, len(r.Inserted))
	for i, inserted := range r.Inserted {
		records[i] = inserted.Record
	}
	return records
}

// Gateway runs the write pipeline: auth, preparation, bulk write, reconciliation
type Gateway struct {
	gate           *AuthGate
	executor       *Executor
	reconciler     *Reconciler
	publisher      domain.Publisher
	publishTimeout time.Duration
	writeTimeout   time.Duration
	now            func() time.Time
	publishWg      sync.WaitGroup
}

// Option configures a Gateway
type Option func(*Gateway)

// WithPublisher announces inserted records after each successful write
func WithPublisher(p domain.Publisher) Option {
	return func(g *Gateway) {
		g.publisher = p
	}
}

// WithPublishTimeout bounds how long a write waits on the publisher
func WithPublishTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.publishTimeout = d
	}
}

// WithWriteTimeout sets the deadline applied to each bulk write
func WithWriteTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.writeTimeout = d
	}
}

// WithClock overrides the source of batch timestamps
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.now = now
	}
}

// New creates a gateway writing to store, using isConflict to recognise uniqueness conflicts
func New(gate *AuthGate, store domain.DocumentStore, isConflict domain.ConflictFunc, options ...Option) *Gateway {
	g := &Gateway{
		gate:           gate,
		reconciler:     NewReconciler(isConflict),
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
	for _, option := range options {
		option(g)
	}
	g.executor = NewExecutor(store, g.writeTimeout)
	return g
}

// Write authorizes the request and inserts its eligible records.
// It returns ErrUnauthorized, ErrForbidden or a *WriteRejectedError on failure.
func (g *Gateway) Write(ctx context.Context, req domain.WriteRequest) (*WriteResult, error) {
	if err := g.gate.Check(req.Token, req.Collection); err != nil {
		return nil, err
	}

	createdAt := g.now().UTC()
	batch := Prepare(req.Records, req.IDField, createdAt)
	result := &WriteResult{
		Collection: req.Collection,
		Inserted:   []domain.InsertedRecord{},
		Skipped:    batch.Skipped,
		CreatedAt:  createdAt,
	}
	if batch.Skipped > 0 {
		log.Printf("DEBUG: Dropped %d record(s) without string field '%s' for collection '%s'",
			batch.Skipped, req.IDField, req.Collection)
	}

	if batch.Len() == 0 {
		return result, nil
	}

	bulkResult, err := g.executor.Execute(ctx, req.Collection, batch.Documents)
	outcome := g.reconciler.Reconcile(batch.Len(), bulkResult, err)
	if outcome.Kind == Rejected {
		return nil, &WriteRejectedError{Collection: req.Collection, Cause: outcome.Cause}
	}

	for _, index := range outcome.Inserted {
		result.Inserted = append(result.Inserted, batch.Records[index])
	}
	result.Conflicts = len(outcome.Conflicts)

	g.publish(ctx, result)
	return result, nil
}

// publish hands inserted records to the publisher in the background.
// It is best effort; failures never change the write result.
func (g *Gateway) publish(ctx context.Context, result *WriteResult) {
	if g.publisher == nil || len(result.Inserted) == 0 {
		return
	}
	collection, createdAt := result.Collection, result.CreatedAt
	records := append([]domain.InsertedRecord(nil), result.Inserted...)

	g.publishWg.Add(1)
	go func() {
		defer g.publishWg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.publishTimeout)
		defer cancel()
		if err := g.publisher.Publish(ctx, collection, createdAt, records); err != nil {
			log.Printf("WARN: Failed to publish %d inserted record(s) for collection '%s': %v",
				len(records), collection, err)
		}
	}()
}

// Flush waits for in-flight publishes. Call it before closing the publisher.
func (g *Gateway) Flush() {
	g.publishWg.Wait()
}
