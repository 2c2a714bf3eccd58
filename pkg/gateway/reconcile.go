package gateway

import (
	"fmt"
	"sort"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// OutcomeKind is the verdict on a bulk write
type OutcomeKind int

const (
	AllInserted OutcomeKind = iota
	PartiallyInserted
	Rejected
)

func (k OutcomeKind) String() string {
	switch k {
	case AllInserted:
		return "all_inserted"
	case PartiallyInserted:
		return "partially_inserted"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// WriteOutcome is the reconciled result of a bulk write.
// Inserted and Conflicts hold positions into the submitted batch, ascending.
type WriteOutcome struct {
	Kind      OutcomeKind
	Inserted  []int
	Conflicts []int
	Cause     error
}

// Reconciler decides which documents of a failed bulk write were persisted
type Reconciler struct {
	isConflict domain.ConflictFunc
}

// NewReconciler creates a reconciler using the store's conflict predicate
func NewReconciler(isConflict domain.ConflictFunc) *Reconciler {
	return &Reconciler{isConflict: isConflict}
}

// Reconcile classifies the outcome of submitting `submitted` documents.
// Conflicts are benign: the inserted set is every position that did not fail.
// Any other failure rejects the whole batch, even if some documents were written.
func (r *Reconciler) Reconcile(submitted int, result domain.BulkWriteResult, err error) WriteOutcome {
	if err != nil {
		return WriteOutcome{Kind: Rejected, Cause: err}
	}

	failed := make(map[int]struct{})
	var conflicts []int
	var failures []domain.ItemOutcome

	for _, item := range result.Failures() {
		if item.Index < 0 || item.Index >= submitted {
			return WriteOutcome{
				Kind:  Rejected,
				Cause: fmt.Errorf("store reported outcome for index %d outside batch of %d", item.Index, submitted),
			}
		}
		// every report is classified; the index is only counted once
		_, seen := failed[item.Index]
		failed[item.Index] = struct{}{}

		if !r.conflict(item) {
			failures = append(failures, item)
		} else if !seen {
			conflicts = append(conflicts, item.Index)
		}
	}

	if len(failures) > 0 {
		return WriteOutcome{Kind: Rejected, Cause: &ItemFailureError{Failures: failures}}
	}

	inserted := make([]int, 0, submitted-len(failed))
	for i := 0; i < submitted; i++ {
		if _, isFailed := failed[i]; !isFailed {
			inserted = append(inserted, i)
		}
	}
	sort.Ints(conflicts)

	kind := AllInserted
	if len(failed) > 0 {
		kind = PartiallyInserted
	}
	return WriteOutcome{Kind: kind, Inserted: inserted, Conflicts: conflicts}
}

func (r *Reconciler) conflict(item domain.ItemOutcome) bool {
	switch item.Status {
	case domain.ItemConflict:
		return true
	case domain.ItemFailed:
		return r.isConflict != nil && r.isConflict(item.Cause)
	default:
		return false
	}
}
