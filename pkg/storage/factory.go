package storage

import (
	"context"
	"fmt"

	"github.com/adfharrison1/json-updates/pkg/config"
	"github.com/adfharrison1/json-updates/pkg/domain"
	"github.com/adfharrison1/json-updates/pkg/storage/memory"
	"github.com/adfharrison1/json-updates/pkg/storage/mongodb"
	"github.com/adfharrison1/json-updates/pkg/storage/sqlite"
)

// Open creates the DocumentStore selected by cfg.Backend together with the
// predicate that recognises its uniqueness conflicts.
//
// Supported backends:
//
//	"mongo"  - MongoDB database MONGO_DB_NAME at MONGO_URI (default)
//	"sqlite" - SQLite database at SQLITE_PATH
//	"memory" - in-memory, optionally persisted by snapshot and journal
func Open(ctx context.Context, cfg *config.Config) (domain.DocumentStore, domain.ConflictFunc, error) {
	switch cfg.Backend {
	case config.BackendMongo, "":
		store, err := mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		return store, mongodb.IsConflict, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, sqlite.IsConflict, nil
	case config.BackendMemory:
		store, err := memory.Open(memoryOptions(cfg)...)
		if err != nil {
			return nil, nil, err
		}
		return store, memory.IsConflict, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %q (supported: mongo, sqlite, memory)", cfg.Backend)
	}
}

func memoryOptions(cfg *config.Config) []memory.StoreOption {
	var options []memory.StoreOption
	if cfg.MemorySnapshotFile != "" {
		options = append(options, memory.WithSnapshotFile(cfg.MemorySnapshotFile))
	}
	if cfg.MemoryJournalDir != "" {
		options = append(options, memory.WithJournalDir(cfg.MemoryJournalDir))
	}
	if cfg.MemoryJournalSync {
		options = append(options, memory.WithDurability(memory.DurabilityFull))
	}
	if cfg.MemoryCheckpointInterval > 0 {
		options = append(options, memory.WithCheckpointInterval(cfg.MemoryCheckpointInterval))
	}
	if cfg.MemoryMaxDocumentBytes > 0 {
		options = append(options, memory.WithMaxDocumentBytes(cfg.MemoryMaxDocumentBytes))
	}
	return options
}
