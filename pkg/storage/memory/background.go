package memory

import (
	"log"
	"time"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// Checkpoint writes every collection to the snapshot file and truncates the
// journal. It is a no-op without a snapshot file or when nothing changed.
func (s *Store) Checkpoint() error {
	if s.snapshotFile == "" {
		return nil
	}

	// Exclude writers so the snapshot and the journal agree on the LSN
	s.checkpointMu.Lock()
	defer s.checkpointMu.Unlock()

	start := time.Now()
	snapshot := NewSnapshotData()
	snapshot.CreatedAt = start.UTC()
	snapshot.LSN = s.lsn
	if s.journal != nil {
		snapshot.LSN = s.journal.LastLSN()
	}

	s.mu.RLock()
	dirty := 0
	for name, coll := range s.collections {
		if coll.Dirty {
			dirty++
		}
		docs := make([]domain.PreparedDocument, 0, len(coll.Documents))
		for _, doc := range coll.Documents {
			docs = append(docs, doc)
		}
		snapshot.Collections[name] = docs
	}
	s.mu.RUnlock()

	if dirty == 0 {
		log.Printf("DEBUG: No dirty collections to checkpoint")
		return nil
	}

	if err := WriteSnapshot(s.snapshotFile, snapshot); err != nil {
		return err
	}

	s.mu.Lock()
	for _, coll := range s.collections {
		coll.Dirty = false
	}
	s.lsn = snapshot.LSN
	s.mu.Unlock()

	if s.journal != nil {
		if err := s.journal.Truncate(); err != nil {
			log.Printf("WARN: Failed to truncate journal after checkpoint: %v", err)
		}
	}

	s.updateStats(func(st *StoreStats) {
		st.CheckpointsPerformed++
		st.LastCheckpoint = time.Now()
	})
	log.Printf("INFO: Checkpoint completed - %d collections (%d dirty) at LSN %d in %v",
		len(snapshot.Collections), dirty, snapshot.LSN, time.Since(start))
	return nil
}

// StartBackgroundWorkers starts the periodic checkpoint worker
func (s *Store) StartBackgroundWorkers() {
	if s.checkpointInterval <= 0 || s.snapshotFile == "" {
		return
	}

	s.backgroundWg.Add(1)
	go func() {
		defer s.backgroundWg.Done()
		ticker := time.NewTicker(s.checkpointInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Checkpoint(); err != nil {
					log.Printf("ERROR: Background checkpoint failed: %v", err)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// StopBackgroundWorkers stops background workers
func (s *Store) StopBackgroundWorkers() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.backgroundWg.Wait()
}
