// Package store archives completed solves in a badger database so the
// command-line history and the HTTP service can list past results.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gitrdm/lsysinfer/pkg/infer"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("store: closed")

var prefix = []byte("solve/")

// Record is one archived solve.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Depth     int             `json:"depth"`
	Histogram infer.Histogram `json:"histogram"`
	Status    string          `json:"status"`
	Cost      int             `json:"cost,omitempty"`
	// Payload is the encoded result record.
	Payload string        `json:"payload"`
	Engine  string        `json:"engine"`
	Elapsed time.Duration `json:"elapsed"`
}

// Store is a badger-backed archive of Records keyed by time.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	log logrus.FieldLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{})   { l.log.Errorf(format, args...) }
func (l badgerLogger) Warningf(format string, args ...interface{}) { l.log.Warnf(format, args...) }
func (l badgerLogger) Infof(format string, args ...interface{})    { l.log.Debugf(format, args...) }
func (l badgerLogger) Debugf(format string, args ...interface{})   { l.log.Debugf(format, args...) }

// Open opens the archive at path, creating the directory if needed. An
// empty path opens an in-memory archive. A nil log disables badger's own
// logging.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if log != nil {
		opts = opts.WithLogger(badgerLogger{log: log.WithField("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func key(r Record) []byte {
	k := make([]byte, 0, len(prefix)+8+16)
	k = append(k, prefix...)
	k = binary.BigEndian.AppendUint64(k, uint64(r.Timestamp.UnixNano()))
	return append(k, r.ID[:]...)
}

// NewRecord builds the archive entry for a solve. The payload is the
// encoded result record supplied by the caller.
func NewRecord(h infer.Histogram, res infer.Result, payload string) Record {
	return Record{
		ID:        uuid.New(),
		Timestamp: time.Now().UTC(),
		Depth:     res.Depth,
		Histogram: append(infer.Histogram(nil), h...),
		Status:    res.Status.String(),
		Cost:      res.Cost,
		Payload:   payload,
		Engine:    res.Engine,
		Elapsed:   res.Elapsed,
	}
}

// Append stores r. A zero ID or timestamp is filled in.
func (s *Store) Append(ctx context.Context, r Record) (Record, error) {
	if s.db == nil {
		return r, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return r, err
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("store: encode: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(r), data)
	})
	if err != nil {
		return r, fmt.Errorf("store: append: %w", err)
	}
	return r, nil
}

// List returns up to limit records, newest first. A limit of 0 returns
// every record.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the last key with the prefix.
		seek := append(append([]byte(nil), prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Record
			err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &r)
			})
			if err != nil {
				return fmt.Errorf("store: decode %x: %w", it.Item().Key(), err)
			}
			out = append(out, r)
			if limit > 0 && len(out) == limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	all, err := s.List(ctx, 0)
	if err != nil {
		return Record{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, fmt.Errorf("store: record %s: %w", id, badger.ErrKeyNotFound)
}
