// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package audit

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

const (
	// entryPrefix namespaces audit entries in the key space.
	entryPrefix = "audent:"

	// writeQueueSize bounds the number of entries waiting for the writer.
	writeQueueSize = 64
)

// ErrTrailClosed is returned when writing to a closed trail.
var ErrTrailClosed = errors.New("audit trail closed")

// Stats summarizes the audit trail contents.
type Stats struct {
	TotalQueries      int       `json:"total_queries"`
	TotalChunks       int       `json:"total_chunks_retrieved"`
	AvgChunksPerQuery float64   `json:"avg_chunks_per_query"`
	FirstQuery        time.Time `json:"first_query"`
	LastQuery         time.Time `json:"last_query"`
}

// Trail is an append-only query log backed by BadgerDB. Writes are
// funneled through a single goroutine so concurrent queries serialize
// without locking; Log never blocks on disk I/O beyond queue pressure.
type Trail struct {
	db      *badger.DB
	entries chan Entry
	done    chan struct{}
	logger  *slog.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
	seq     uint64
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens (or creates) an audit trail at the given directory.
func Open(path string) (*Trail, error) {
	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}

	return open(badger.DefaultOptions(path))
}

// OpenInMemory opens an ephemeral audit trail for tests and development.
func OpenInMemory() (*Trail, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Trail, error) {
	logger := slog.Default().With("component", "audit")
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	t := &Trail{
		db:      db,
		entries: make(chan Entry, writeQueueSize),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go t.writeLoop()

	return t, nil
}

// Log queues an entry for persistence. It blocks only when the write
// queue is full, never on disk I/O. Returns ErrTrailClosed after Close.
func (t *Trail) Log(entry Entry) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrTrailClosed
	}
	t.pending.Add(1)
	t.entries <- entry
	t.mu.Unlock()
	return nil
}

// writeLoop is the single writer: it drains the entry channel and
// persists each entry under a time-ordered key.
func (t *Trail) writeLoop() {
	defer close(t.done)

	for entry := range t.entries {
		if err := t.persist(entry); err != nil {
			t.logger.Error("error persisting audit entry", "query", entry.Query, "err", err)
		}
		t.pending.Done()
	}
}

func (t *Trail) persist(entry Entry) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	t.seq++
	key := makeEntryKey(entry.Timestamp, t.seq)

	return t.db.Update(func(tx *badger.Txn) error {
		return tx.Set(key, value)
	})
}

// makeEntryKey builds a key that sorts lexicographically by timestamp.
// Format: prefix + timestamp + sequence; the sequence breaks ties
// between entries logged within the same microsecond.
func makeEntryKey(timestamp time.Time, seq uint64) []byte {
	prefixBytes := []byte(entryPrefix)
	buf := make([]byte, len(prefixBytes)+16)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// Recent returns up to n entries, newest first. Entries still queued
// for the writer are not visible; call Flush first when exact contents
// matter.
func (t *Trail) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	var entries []Entry
	err := t.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(entryPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the last possible key.
		seek := append([]byte(entryPrefix), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for it.Seek(seek); it.Valid() && len(entries) < n; it.Next() {
			var entry Entry
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &entry)
			})
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats walks the trail and summarizes it.
func (t *Trail) Stats() (Stats, error) {
	var stats Stats

	err := t.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(entryPrefix)
		it := tx.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(entryPrefix)); it.Valid(); it.Next() {
			var entry Entry
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &entry)
			})
			if err != nil {
				return err
			}

			stats.TotalQueries++
			stats.TotalChunks += entry.NumChunks
			if stats.FirstQuery.IsZero() {
				stats.FirstQuery = entry.Timestamp
			}
			stats.LastQuery = entry.Timestamp
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}

	if stats.TotalQueries > 0 {
		stats.AvgChunksPerQuery = float64(stats.TotalChunks) / float64(stats.TotalQueries)
	}
	return stats, nil
}

// Flush blocks until every queued entry has been persisted.
func (t *Trail) Flush() {
	t.pending.Wait()
}

// Close drains pending writes and closes the database.
func (t *Trail) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.entries)
	t.mu.Unlock()

	<-t.done
	return t.db.Close()
}
