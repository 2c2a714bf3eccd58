package domain

import (
	"context"
	"time"
)

// Publisher announces records that were newly persisted
type Publisher interface {
	Publish(ctx context.Context, collection string, createdAt time.Time, records []InsertedRecord) error
	Close() error
}
