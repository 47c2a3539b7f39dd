// This package stores delivered batches in SQLite.
//
// [Storage] keeps encoded batches in a single table. [Sink] encodes batches with a
// [codec.Codec] and pushes them to a Storage.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teenjuna/sendbuf/internal"
)

var (
	// ErrClosed is returned by Storage methods when the storage has been closed.
	ErrClosed = errors.New("storage is closed")
)

const (
	memory = ":memory:"
)

// Storage is a table of delivered batches backed by SQLite.
type Storage struct {
	cfg *Config
	db  *sql.DB
}

// New creates a new Storage with the provided configuration functions.
//
// Default configuration:
//   - File: ":memory:" (in-memory database)
//   - Durable: false
//
// Returns an error if the SQLite database cannot be opened or initialized.
func New(configFuncs ...ConfigFunc) (*Storage, error) {
	cfg := &Config{}
	cfg.File(memory)
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}

	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := setup(db); err != nil {
		return nil, errors.Join(fmt.Errorf("setup: %w", err), db.Close())
	}

	storage := Storage{
		cfg: cfg,
		db:  db,
	}

	return &storage, nil
}

// Push inserts a new batch into the storage.
//
// The data is encoded bytes of the batch, and size is the number of items in the batch. Returns a
// unique BatchID that can be used to identify this batch.
//
// Returns [ErrClosed] if the storage has been closed.
func (s *Storage) Push(ctx context.Context, data []byte, size int) (BatchID, error) {
	id := internal.NewID()
	_, err := s.db.ExecContext(
		ctx,
		`
		insert into batch (
			id,
			data,
			size,
			pushed_at
		) values (
			:id,
			:data,
			:size,
			:pushed_at
		)
		`,
		sql.Named("id", id),
		sql.Named("data", data),
		sql.Named("size", size),
		sql.Named("pushed_at", toTimestamp(time.Now())),
	)
	if err != nil {
		return "", closed(err)
	}

	return id, nil
}

// Batches returns up to limit batches, oldest first.
//
// Returns [ErrClosed] if the storage has been closed.
func (s *Storage) Batches(ctx context.Context, limit int) ([]Batch, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`
		select id, data, size, pushed_at
		from batch
		order by seq asc
		limit :limit
		`,
		sql.Named("limit", limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", closed(err))
	}
	defer rows.Close()

	batches := make([]Batch, 0)

	for rows.Next() {
		var (
			b        Batch
			pushedAt int64
		)
		if err := rows.Scan(
			&b.ID,
			&b.Data,
			&b.Size,
			&pushedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		b.PushedAt = fromTimestamp(pushedAt)

		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	return batches, nil
}

// Delete permanently removes one or more batches from the storage.
func (s *Storage) Delete(ctx context.Context, ids ...BatchID) error {
	_, err := s.db.ExecContext(
		ctx,
		`
		delete from batch
		where
			id in (
				select value from json_each(:ids)
			)
		`,
		sql.Named("ids", jsonIDs(ids)),
	)
	return closed(err)
}

// Stats returns current storage statistics.
func (s *Storage) Stats(ctx context.Context) (*Stats, error) {
	var (
		batches      int
		items        int
		lastPushedAt int64
	)
	err := s.db.QueryRowContext(
		ctx,
		`
		select
			coalesce(count(*), 0) as batches,
			coalesce(sum(size), 0) as items,
			coalesce(max(pushed_at), 0) as last_pushed_at
		from
			batch
		`,
	).Scan(
		&batches,
		&items,
		&lastPushedAt,
	)
	if err != nil {
		return nil, closed(err)
	}

	stats := Stats{
		Batches:      batches,
		Items:        items,
		LastPushedAt: fromTimestamp(lastPushedAt),
	}

	return &stats, nil
}

// Close closes the underlying SQLite database.
//
// After closing, all methods on Storage will return [ErrClosed].
func (s *Storage) Close() error {
	return s.db.Close()
}

// Batch represents a stored batch of items.
type Batch struct {
	// ID is the unique identifier of this batch.
	ID BatchID
	// Data is the encoded batch content.
	Data []byte
	// Size is the number of items in the batch.
	Size int
	// PushedAt is the time when the batch was pushed.
	PushedAt time.Time
}

type BatchID = string

// Stats represents statistics about the storage.
type Stats struct {
	// Batches is the total number of batches in storage.
	Batches int
	// Items is the total number of items across all batches.
	Items int
	// LastPushedAt is the time when the latest batch was pushed.
	LastPushedAt time.Time
}

func open(cfg *Config) (*sql.DB, error) {
	var (
		file   = cfg.file
		params = url.Values{}
	)
	params.Add("_txlock", "immediate")
	params.Add("_timeout", "5000") // 5s
	if file == memory {
		file = internal.NewID()
		params.Add("mode", "memory")
		params.Add("cache", "shared")
	} else {
		params.Add("_journal", "wal")
		if cfg.durable {
			params.Add("_sync", "full")
		} else {
			params.Add("_sync", "normal")
		}
	}

	db, err := sql.Open("sqlite3", "file:"+file+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(0)
	db.SetConnMaxLifetime(0)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

func setup(db *sql.DB) error {
	// Batch order is the insertion order, kept by the autoincrement seq.
	if _, err := db.Exec(
		`
		create table if not exists batch (
			seq       integer primary key autoincrement,
			id        text not null unique,
			data      blob not null,
			size      int not null,
			pushed_at int not null
		) strict
		`,
	); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	return nil
}

func closed(err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return ErrClosed
	}
	return err
}

func jsonIDs(ids []BatchID) string {
	jsonIDs, _ := json.Marshal(ids)
	return string(jsonIDs)
}

func toTimestamp(time time.Time) int64 {
	return time.UnixNano()
}

func fromTimestamp(timestamp int64) time.Time {
	return time.Unix(0, timestamp)
}
