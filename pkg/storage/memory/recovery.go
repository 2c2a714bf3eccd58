package memory

import (
	"fmt"
	"log"
	"time"
)

// recover restores the latest snapshot and replays newer journal entries
func (s *Store) recover() error {
	start := time.Now()
	defer func() {
		s.updateStats(func(st *StoreStats) {
			st.RecoveryTime = time.Since(start)
		})
	}()

	restored := 0
	if s.snapshotFile != "" {
		snapshot, err := ReadSnapshot(s.snapshotFile)
		if err != nil {
			return fmt.Errorf("failed to load snapshot: %w", err)
		}
		if snapshot != nil {
			for name, docs := range snapshot.Collections {
				coll := newCollection(name)
				for _, doc := range docs {
					doc.CreatedAt = doc.CreatedAt.UTC()
					coll.Documents[doc.ID] = doc
				}
				s.collections[name] = coll
				restored += len(docs)
			}
			s.lsn = snapshot.LSN
			log.Printf("INFO: Restored %d documents in %d collections from snapshot %s (LSN %d)",
				restored, len(snapshot.Collections), s.snapshotFile, snapshot.LSN)
		}
	}

	if s.journalDir == "" {
		return nil
	}

	entries, err := ReadJournal(s.journalDir)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	replayed := 0
	for _, entry := range entries {
		if entry.LSN <= s.lsn {
			continue
		}
		coll, exists := s.collections[entry.Collection]
		if !exists {
			coll = newCollection(entry.Collection)
			s.collections[entry.Collection] = coll
		}
		for _, doc := range entry.Documents {
			if _, stored := coll.Documents[doc.ID]; stored {
				continue
			}
			doc.CreatedAt = doc.CreatedAt.UTC()
			coll.Documents[doc.ID] = doc
		}
		coll.Dirty = true
		coll.LastModified = time.Unix(0, entry.Timestamp)
		s.lsn = entry.LSN
		replayed++
	}

	if replayed > 0 {
		log.Printf("INFO: Replayed %d journal entries from %s in %v", replayed, s.journalDir, time.Since(start))
	}
	return nil
}

func (s *Store) lastLSN() int64 {
	return s.lsn
}
