package domain

import (
	"context"
	"fmt"
)

// ItemStatus is the fate of a single document inside a bulk write
type ItemStatus int

const (
	ItemInserted ItemStatus = iota
	ItemConflict
	ItemFailed
)

func (s ItemStatus) String() string {
	switch s {
	case ItemInserted:
		return "inserted"
	case ItemConflict:
		return "conflict"
	case ItemFailed:
		return "failed"
	default:
		return fmt.Sprintf("ItemStatus(%d)", int(s))
	}
}

// WriteCause is a store-specific failure code with its message
type WriteCause struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c WriteCause) String() string {
	return fmt.Sprintf("code %d: %s", c.Code, c.Message)
}

// ItemOutcome reports what happened to the document at Index of a submitted batch
type ItemOutcome struct {
	Index  int
	Status ItemStatus
	Cause  WriteCause
}

// BulkWriteResult lists per-item outcomes of one bulk insert.
// Positions missing from Outcomes are treated as inserted.
type BulkWriteResult struct {
	Outcomes []ItemOutcome
}

// Failures returns the outcomes that did not end in an insert
func (r BulkWriteResult) Failures() []ItemOutcome {
	var failures []ItemOutcome
	for _, outcome := range r.Outcomes {
		if outcome.Status != ItemInserted {
			failures = append(failures, outcome)
		}
	}
	return failures
}

// ConflictFunc reports whether a failure cause is a uniqueness conflict
type ConflictFunc func(cause WriteCause) bool

// DocumentStore defines the interface for the backing document store.
// BulkInsert must attempt every document even after an individual failure.
// A non-nil error means the batch failed in a way that cannot be attributed
// to individual documents (connectivity, timeouts, write concern).
type DocumentStore interface {
	BulkInsert(ctx context.Context, collection string, docs []PreparedDocument) (BulkWriteResult, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
