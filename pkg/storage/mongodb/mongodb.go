package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// Server error codes reported for unique index violations
const (
	CodeDuplicateKey       = 11000
	CodeDuplicateKeyLegacy = 11001
	CodeDuplicateKeyUpdate = 12582
)

const defaultConnectTimeout = 10 * time.Second

// IsConflict reports whether a write error is a duplicate key violation
func IsConflict(cause domain.WriteCause) bool {
	switch cause.Code {
	case CodeDuplicateKey, CodeDuplicateKeyLegacy, CodeDuplicateKeyUpdate:
		return true
	default:
		return false
	}
}

// Store writes envelopes into collections of a single MongoDB database.
// The client pools connections and is shared by every request.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri and verifies the deployment is reachable
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Printf("INFO: Connected to MongoDB database %s", dbName)
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// BulkInsert implements domain.DocumentStore with a single unordered InsertMany
func (s *Store) BulkInsert(ctx context.Context, collection string, docs []domain.PreparedDocument) (domain.BulkWriteResult, error) {
	if len(docs) == 0 {
		return domain.BulkWriteResult{}, nil
	}

	batch := make([]interface{}, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}

	_, err := s.db.Collection(collection).InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	return resultFromError(err)
}

// resultFromError turns an InsertMany error into per-item outcomes. Only a
// bulk write exception without a write concern error maps to items; anything
// else failed the batch as a whole.
func resultFromError(err error) (domain.BulkWriteResult, error) {
	if err == nil {
		return domain.BulkWriteResult{}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return domain.BulkWriteResult{}, err
	}
	if bwe.WriteConcernError != nil {
		return domain.BulkWriteResult{}, fmt.Errorf("write concern not satisfied: %w", err)
	}
	if len(bwe.WriteErrors) == 0 {
		return domain.BulkWriteResult{}, err
	}

	result := domain.BulkWriteResult{Outcomes: make([]domain.ItemOutcome, 0, len(bwe.WriteErrors))}
	for _, we := range bwe.WriteErrors {
		result.Outcomes = append(result.Outcomes, domain.ItemOutcome{
			Index:  we.Index,
			Status: domain.ItemFailed,
			Cause:  domain.WriteCause{Code: we.Code, Message: we.Message},
		})
	}
	return result, nil
}

// Ping implements domain.DocumentStore
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close implements domain.DocumentStore
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongodb: %w", err)
	}
	return nil
}
