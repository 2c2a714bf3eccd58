// Package memory implements an in-process document store with optional
// snapshot and journal persistence.
package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// Failure codes reported by the store. They mirror MongoDB's numbering so
// callers can treat both backends alike.
const (
	CodeDuplicateKey     = 11000
	CodeDocumentTooLarge = 10334
)

const defaultMaxDocumentBytes = 16 << 20

// IsConflict reports whether cause is a duplicate key failure
func IsConflict(cause domain.WriteCause) bool {
	return cause.Code == CodeDuplicateKey
}

// Collection holds the documents of one collection keyed by _id
type Collection struct {
	Name         string
	Documents    map[string]domain.PreparedDocument
	LastModified time.Time
	Dirty        bool
}

func newCollection(name string) *Collection {
	return &Collection{
		Name:      name,
		Documents: make(map[string]domain.PreparedDocument),
	}
}

// StoreStats holds counters exposed for diagnostics
type StoreStats struct {
	DocumentsInserted    int64
	ConflictsRejected    int64
	JournalEntries       int64
	CheckpointsPerformed int64
	LastCheckpoint       time.Time
	RecoveryTime         time.Duration
}

// Store is an in-memory domain.DocumentStore
type Store struct {
	mu          sync.RWMutex
	collections map[string]*Collection

	// Per-collection locks serialise writers without blocking other collections
	collectionLocks map[string]*sync.Mutex
	locksMu         sync.Mutex

	// Configuration
	snapshotFile       string
	journalDir         string
	durability         DurabilityLevel
	checkpointInterval time.Duration
	maxDocumentBytes   int

	journal *Journal
	lsn     int64 // last LSN restored by recovery

	// checkpointMu excludes writers while a checkpoint captures state
	checkpointMu sync.RWMutex

	// Background workers
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once

	stats   StoreStats
	statsMu sync.RWMutex
}

// NewStore creates an empty store without touching the disk
func NewStore(options ...StoreOption) *Store {
	s := &Store{
		collections:      make(map[string]*Collection),
		collectionLocks:  make(map[string]*sync.Mutex),
		maxDocumentBytes: defaultMaxDocumentBytes,
		stopChan:         make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Open creates a store, restores persisted state and starts background workers
func Open(options ...StoreOption) (*Store, error) {
	s := NewStore(options...)
	if err := s.recover(); err != nil {
		return nil, fmt.Errorf("failed to recover memory store: %w", err)
	}
	if s.journalDir != "" {
		journal, err := OpenJournal(s.journalDir, s.durability, s.lastLSN())
		if err != nil {
			return nil, err
		}
		s.journal = journal
	}
	s.StartBackgroundWorkers()
	return s, nil
}

// getOrCreateCollectionLock gets or creates the writer lock for a collection
func (s *Store) getOrCreateCollectionLock(collName string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, exists := s.collectionLocks[collName]
	if !exists {
		lock = &sync.Mutex{}
		s.collectionLocks[collName] = lock
	}
	return lock
}

// getOrCreateCollection returns the named collection, creating it on first write
func (s *Store) getOrCreateCollection(collName string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, exists := s.collections[collName]
	if !exists {
		coll = newCollection(collName)
		s.collections[collName] = coll
	}
	return coll
}

// BulkInsert implements domain.DocumentStore. Every document is attempted;
// duplicates and oversized documents fail individually.
func (s *Store) BulkInsert(ctx context.Context, collName string, docs []domain.PreparedDocument) (domain.BulkWriteResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.BulkWriteResult{}, err
	}
	if collName == "" {
		return domain.BulkWriteResult{}, fmt.Errorf("collection name cannot be empty")
	}

	s.checkpointMu.RLock()
	defer s.checkpointMu.RUnlock()

	lock := s.getOrCreateCollectionLock(collName)
	lock.Lock()
	defer lock.Unlock()

	coll := s.getOrCreateCollection(collName)

	result := domain.BulkWriteResult{Outcomes: make([]domain.ItemOutcome, len(docs))}
	accepted := make([]domain.PreparedDocument, 0, len(docs))
	pending := make(map[string]struct{}, len(docs))
	conflicts := 0

	for i, doc := range docs {
		outcome := domain.ItemOutcome{Index: i, Status: domain.ItemInserted}

		_, stored := coll.Documents[doc.ID]
		_, inBatch := pending[doc.ID]
		switch {
		case stored || inBatch:
			outcome.Status = domain.ItemFailed
			outcome.Cause = domain.WriteCause{
				Code:    CodeDuplicateKey,
				Message: fmt.Sprintf("E11000 duplicate key error collection: %s index: _id_ dup key: { _id: %q }", collName, doc.ID),
			}
			conflicts++
		default:
			if size, err := encodedSize(doc); err != nil {
				outcome.Status = domain.ItemFailed
				outcome.Cause = domain.WriteCause{Code: CodeDocumentTooLarge, Message: fmt.Sprintf("failed to encode document: %v", err)}
			} else if size > s.maxDocumentBytes {
				outcome.Status = domain.ItemFailed
				outcome.Cause = domain.WriteCause{
					Code:    CodeDocumentTooLarge,
					Message: fmt.Sprintf("document %q is %d bytes, limit is %d", doc.ID, size, s.maxDocumentBytes),
				}
			} else {
				pending[doc.ID] = struct{}{}
				accepted = append(accepted, doc)
			}
		}
		result.Outcomes[i] = outcome
	}

	if len(accepted) > 0 && s.journal != nil {
		if _, err := s.journal.Append(collName, accepted); err != nil {
			return domain.BulkWriteResult{}, fmt.Errorf("failed to write journal entry: %w", err)
		}
		s.updateStats(func(st *StoreStats) { st.JournalEntries++ })
	}

	s.mu.Lock()
	for _, doc := range accepted {
		coll.Documents[doc.ID] = doc
	}
	if len(accepted) > 0 {
		coll.Dirty = true
		coll.LastModified = time.Now()
	}
	s.mu.Unlock()

	s.updateStats(func(st *StoreStats) {
		st.DocumentsInserted += int64(len(accepted))
		st.ConflictsRejected += int64(conflicts)
	})

	return result, nil
}

// GetById returns a stored envelope
func (s *Store) GetById(collName, id string) (domain.PreparedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, exists := s.collections[collName]
	if !exists {
		return domain.PreparedDocument{}, fmt.Errorf("collection %s does not exist", collName)
	}
	doc, exists := coll.Documents[id]
	if !exists {
		return domain.PreparedDocument{}, fmt.Errorf("document with id %s not found in collection %s", id, collName)
	}
	return doc, nil
}

// Count returns the number of documents in a collection
func (s *Store) Count(collName string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if coll, exists := s.collections[collName]; exists {
		return len(coll.Documents)
	}
	return 0
}

// CollectionNames returns every collection name, sorted
func (s *Store) CollectionNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Ping implements domain.DocumentStore
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close stops background workers, writes a final checkpoint and closes the journal
func (s *Store) Close(ctx context.Context) error {
	s.StopBackgroundWorkers()

	var err error
	if s.snapshotFile != "" {
		if cerr := s.Checkpoint(); cerr != nil {
			err = fmt.Errorf("final checkpoint failed: %w", cerr)
		}
	}
	if s.journal != nil {
		if jerr := s.journal.Close(); jerr != nil && err == nil {
			err = jerr
		}
	}
	if err == nil {
		log.Printf("INFO: Memory store closed (%d collections)", len(s.CollectionNames()))
	}
	return err
}

// Durability returns the journal durability level
func (s *Store) Durability() DurabilityLevel {
	return s.durability
}

// Stats returns a copy of the store counters
func (s *Store) Stats() StoreStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Store) updateStats(updater func(*StoreStats)) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	updater(&s.stats)
}

func encodedSize(doc domain.PreparedDocument) (int, error) {
	data, err := msgpack.Marshal(doc)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}
