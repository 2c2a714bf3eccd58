package memory

import "time"

// DurabilityLevel controls when journal writes reach the disk
type DurabilityLevel int

const (
	DurabilityOS   DurabilityLevel = iota // Leave flushing to the OS page cache (default)
	DurabilityFull                        // fsync after every journal entry
)

// StoreOption configures the memory store
type StoreOption func(*Store)

// WithSnapshotFile enables checkpoints to the given file
func WithSnapshotFile(path string) StoreOption {
	return func(s *Store) {
		s.snapshotFile = path
	}
}

// WithJournalDir enables the write journal in dir
func WithJournalDir(dir string) StoreOption {
	return func(s *Store) {
		s.journalDir = dir
	}
}

// WithDurability sets the journal durability level
func WithDurability(level DurabilityLevel) StoreOption {
	return func(s *Store) {
		s.durability = level
	}
}

// WithCheckpointInterval enables the background checkpoint worker
func WithCheckpointInterval(interval time.Duration) StoreOption {
	return func(s *Store) {
		s.checkpointInterval = interval
	}
}

// WithMaxDocumentBytes limits the encoded size of a single document
func WithMaxDocumentBytes(n int) StoreOption {
	return func(s *Store) {
		s.maxDocumentBytes = n
	}
}
