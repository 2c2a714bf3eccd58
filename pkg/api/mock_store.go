package api

import (
	"context"
	"fmt"
	"sync"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// Failure codes reported by MockDocumentStore
const (
	MockCodeDuplicate = 11000
	MockCodeRejected  = 10334
)

// MockDocumentStore provides a mock implementation of domain.DocumentStore for testing
type MockDocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]domain.PreparedDocument
	rejectIDs   map[string]bool
	batchErr    error
	pingErr     error
	insertCalls int
	submitted   []domain.PreparedDocument
}

// NewMockDocumentStore creates a new mock document store
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		collections: make(map[string]map[string]domain.PreparedDocument),
		rejectIDs:   make(map[string]bool),
	}
}

// MockIsConflict is the conflict predicate matching MockDocumentStore
func MockIsConflict(cause domain.WriteCause) bool {
	return cause.Code == MockCodeDuplicate
}

// Seed stores a document without counting as an insert call
func (m *MockDocumentStore) Seed(collName, id string, record domain.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection(collName)[id] = domain.PreparedDocument{ID: id, Data: record}
}

// RejectID makes every insert of id fail with a non-conflict cause
func (m *MockDocumentStore) RejectID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectIDs[id] = true
}

// FailBatches makes every BulkInsert fail as a whole with err
func (m *MockDocumentStore) FailBatches(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchErr = err
}

// FailPing makes Ping return err
func (m *MockDocumentStore) FailPing(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// BulkInsert attempts every document, reporting duplicates and rejected ids per item
func (m *MockDocumentStore) BulkInsert(ctx context.Context, collName string, docs []domain.PreparedDocument) (domain.BulkWriteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	m.submitted = append(m.submitted, docs...)
	if m.batchErr != nil {
		return domain.BulkWriteResult{}, m.batchErr
	}

	coll := m.collection(collName)
	var result domain.BulkWriteResult
	for i, doc := range docs {
		if _, exists := coll[doc.ID]; exists {
			result.Outcomes = append(result.Outcomes, domain.ItemOutcome{
				Index:  i,
				Status: domain.ItemFailed,
				Cause:  domain.WriteCause{Code: MockCodeDuplicate, Message: fmt.Sprintf("duplicate key %s", doc.ID)},
			})
			continue
		}
		if m.rejectIDs[doc.ID] {
			result.Outcomes = append(result.Outcomes, domain.ItemOutcome{
				Index:  i,
				Status: domain.ItemFailed,
				Cause:  domain.WriteCause{Code: MockCodeRejected, Message: fmt.Sprintf("document %s too large", doc.ID)},
			})
			continue
		}
		coll[doc.ID] = doc
	}
	return result, nil
}

// Ping implements domain.DocumentStore
func (m *MockDocumentStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingErr
}

// Close implements domain.DocumentStore
func (m *MockDocumentStore) Close(ctx context.Context) error {
	return nil
}

// GetInsertCalls returns the number of BulkInsert calls
func (m *MockDocumentStore) GetInsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.insertCalls
}

// GetSubmittedIDs returns the ids of every document handed to BulkInsert
func (m *MockDocumentStore) GetSubmittedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, len(m.submitted))
	for i, doc := range m.submitted {
		ids[i] = doc.ID
	}
	return ids
}

// GetCollectionCount returns the number of documents stored in a collection
func (m *MockDocumentStore) GetCollectionCount(collName string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections[collName])
}

func (m *MockDocumentStore) collection(collName string) map[string]domain.PreparedDocument {
	coll, exists := m.collections[collName]
	if !exists {
		coll = make(map[string]domain.PreparedDocument)
		m.collections[collName] = coll
	}
	return coll
}
