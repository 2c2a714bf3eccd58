package gateway

import (
	"time"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// PreparedBatch holds the envelopes to submit and, index-aligned, the records they came from
type PreparedBatch struct {
	Documents []domain.PreparedDocument
	Records   []domain.InsertedRecord
	Skipped   int
}

// Len returns the number of eligible records
func (b *PreparedBatch) Len() int {
	return len(b.Documents)
}

// Prepare wraps every record holding a string under idField in a storage envelope.
// Records without one are dropped. All envelopes share createdAt.
func Prepare(records []domain.Record, idField string, createdAt time.Time) *PreparedBatch {
	batch := &PreparedBatch{
		Documents: make([]domain.PreparedDocument, 0, len(records)),
		Records:   make([]domain.InsertedRecord, 0, len(records)),
	}

	for _, record := range records {
		id, ok := record.IDOf(idField)
		if !ok {
			batch.Skipped++
			continue
		}
		batch.Documents = append(batch.Documents, domain.PreparedDocument{
			ID:        id,
			Data:      record,
			CreatedAt: createdAt,
		})
		batch.Records = append(batch.Records, domain.InsertedRecord{ID: id, Record: record})
	}

	return batch
}
