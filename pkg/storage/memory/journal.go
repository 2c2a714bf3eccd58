package memory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

// JournalEntry records one accepted batch
type JournalEntry struct {
	LSN        int64                     `json:"lsn"` // Log Sequence Number
	Timestamp  int64                     `json:"timestamp"`
	Collection string                    `json:"collection"`
	Documents  []domain.PreparedDocument `json:"documents"`
}

// Journal is an append-only log of accepted batches. Each line is
// "<crc32 hex> <json entry>".
type Journal struct {
	dir        string
	durability DurabilityLevel
	nextLSN    int64
	file       *os.File
	mu         sync.Mutex
}

// OpenJournal prepares a journal in dir whose next entry follows lastLSN
func OpenJournal(dir string, durability DurabilityLevel, lastLSN int64) (*Journal, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &Journal{
		dir:        dir,
		durability: durability,
		nextLSN:    lastLSN + 1,
	}, nil
}

// Append writes an entry for docs and returns its LSN
func (j *Journal) Append(collection string, docs []domain.PreparedDocument) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	entry := JournalEntry{
		LSN:        j.nextLSN,
		Timestamp:  time.Now().UnixNano(),
		Collection: collection,
		Documents:  docs,
	}

	line, err := encodeEntry(&entry)
	if err != nil {
		return 0, err
	}

	if err := j.ensureFile(); err != nil {
		return 0, err
	}

	if _, err := j.file.Write(line); err != nil {
		return 0, fmt.Errorf("failed to write to journal file: %w", err)
	}

	if j.durability == DurabilityFull {
		if err := j.file.Sync(); err != nil {
			return 0, fmt.Errorf("failed to sync journal file: %w", err)
		}
	}

	j.nextLSN++
	return entry.LSN, nil
}

// LastLSN returns the sequence number of the last appended entry
func (j *Journal) LastLSN() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.nextLSN - 1
}

// Truncate closes the current file and removes every journal file.
// Callers must have persisted everything up to LastLSN first.
func (j *Journal) Truncate() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.closeFile(); err != nil {
		return err
	}

	files, err := journalFiles(j.dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove journal file %s: %w", f, err)
		}
	}
	return nil
}

// Close closes the journal
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeFile()
}

func (j *Journal) closeFile() error {
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	if err != nil {
		return fmt.Errorf("failed to close journal file: %w", err)
	}
	return nil
}

func (j *Journal) ensureFile() error {
	if j.file != nil {
		return nil
	}

	// Name files by their first LSN so lexical order is replay order
	filename := filepath.Join(j.dir, fmt.Sprintf("journal_%020d.log", j.nextLSN))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create journal file: %w", err)
	}
	j.file = file
	return nil
}

// ReadJournal returns every entry in dir in LSN order. A torn final line
// (no trailing newline) is skipped; any other corruption is an error.
func ReadJournal(dir string) ([]*JournalEntry, error) {
	files, err := journalFiles(dir)
	if err != nil {
		return nil, err
	}

	var entries []*JournalEntry
	for _, filename := range files {
		fileEntries, err := readJournalFile(filename)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}

	sort.SliceStable(entries, func(a, b int) bool { return entries[a].LSN < entries[b].LSN })
	return entries, nil
}

func readJournalFile(filename string) ([]*JournalEntry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal file: %w", err)
	}
	defer file.Close()

	var entries []*JournalEntry
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			if len(bytes.TrimSpace(line)) > 0 {
				log.Printf("WARN: Skipping torn journal entry at end of %s", filename)
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading journal file: %w", err)
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry, err := decodeEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func journalFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "journal_*.log"))
	if err != nil {
		return nil, fmt.Errorf("failed to list journal files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func encodeEntry(entry *JournalEntry) ([]byte, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal journal entry: %w", err)
	}
	line := make([]byte, 0, len(payload)+10)
	line = append(line, fmt.Sprintf("%08x ", crc32.ChecksumIEEE(payload))...)
	line = append(line, payload...)
	return append(line, '\n'), nil
}

func decodeEntry(line []byte) (*JournalEntry, error) {
	sep := bytes.IndexByte(line, ' ')
	if sep < 0 {
		return nil, fmt.Errorf("malformed journal line")
	}
	expected, err := strconv.ParseUint(string(line[:sep]), 16, 32)
	if err != nil {
		return nil, fmt.Errorf("malformed journal checksum: %w", err)
	}

	payload := line[sep+1:]
	if crc32.ChecksumIEEE(payload) != uint32(expected) {
		return nil, fmt.Errorf("checksum verification failed")
	}

	var entry JournalEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal journal entry: %w", err)
	}
	return &entry, nil
}
