// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists expectation rows in BadgerDB.
//
// BadgerDB gives us embedded, transactional, per-row atomic storage with
// low-latency access, which is all the scoring engine needs: it never
// joins, it fetches child sets by inject id and filters in memory.
//
// Key layout:
//
//	exp:<expectationID>              → JSON row
//	inject:<injectID>:<expectationID> → (empty, index entry)
//
// Optimistic concurrency: every row carries a Version. Save rejects a
// write whose Version no longer matches the stored row, surfacing
// engine.ErrConflict so the caller can retry the whole operation.
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianRange/services/scoring/datatypes"
	"github.com/AleutianAI/AleutianRange/services/scoring/engine"
)

const (
	expPrefix    = "exp:"
	injectPrefix = "inject:"
)

// Config holds configuration for the expectation store.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	// Default: true for production, false for testing.
	SyncWrites bool

	// Logger is the logger for BadgerDB operations.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns production defaults: durable writes at the given
// path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns configuration for tests: no disk I/O, no sync.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is the BadgerDB-backed expectation store. It implements
// engine.Store.
//
// Thread Safety: safe for concurrent use; Badger transactions provide
// per-row isolation.
type Store struct {
	db *badger.DB
}

var _ engine.Store = (*Store)(nil)

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open creates and opens the expectation store.
//
// # Inputs
//
//   - cfg: Store configuration. Path is required unless InMemory is true.
//
// # Outputs
//
//   - *Store: The opened store. Caller must Close() when done.
//   - error: Non-nil if the path is invalid or the database cannot open.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns one expectation row by id.
func (s *Store) Get(ctx context.Context, id string) (datatypes.Expectation, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Expectation{}, err
	}
	var row datatypes.Expectation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(expKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &row)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datatypes.Expectation{}, fmt.Errorf("%w: %s", engine.ErrNotFound, id)
	}
	if err != nil {
		return datatypes.Expectation{}, fmt.Errorf("get expectation %s: %w", id, err)
	}
	return row, nil
}

// Insert bulk-creates rows and their inject index entries. Rows receive
// Version 1; an existing id is rejected because this store never
// overwrites on insert.
func (s *Store) Insert(ctx context.Context, expectations []datatypes.Expectation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for i := range expectations {
			expectations[i].Version = 1
			row := expectations[i]
			if _, err := txn.Get(expKey(row.ID)); err == nil {
				return fmt.Errorf("%w: expectation %s already exists", engine.ErrInvalidState, row.ID)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			if err := writeRow(txn, row); err != nil {
				return err
			}
			if err := txn.Set(injectKey(row.InjectID, row.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert expectations: %w", err)
	}
	return nil
}

// Save persists a mutated row, enforcing optimistic versioning.
//
// # Description
//
// The write happens in one transaction: re-read the stored row, compare
// versions, bump, write. A mismatched version, or a Badger transaction
// conflict with a concurrent writer, surfaces as engine.ErrConflict.
//
// # Outputs
//
//   - datatypes.Expectation: The saved row with its new version.
//   - error: engine.ErrNotFound, engine.ErrConflict, or a storage error.
func (s *Store) Save(ctx context.Context, e datatypes.Expectation) (datatypes.Expectation, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Expectation{}, err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(expKey(e.ID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", engine.ErrNotFound, e.ID)
		}
		if err != nil {
			return err
		}
		var stored datatypes.Expectation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		}); err != nil {
			return err
		}
		if stored.Version != e.Version {
			return fmt.Errorf("%w: expectation %s version %d (stored %d)",
				engine.ErrConflict, e.ID, e.Version, stored.Version)
		}
		e.Version++
		return writeRow(txn, e)
	})
	if errors.Is(err, badger.ErrConflict) {
		return datatypes.Expectation{}, fmt.Errorf("%w: expectation %s", engine.ErrConflict, e.ID)
	}
	if err != nil {
		return datatypes.Expectation{}, err
	}
	return e, nil
}

// FindByInject returns all rows for one inject, via the index prefix.
func (s *Store) FindByInject(ctx context.Context, injectID string) ([]datatypes.Expectation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []datatypes.Expectation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(injectPrefix + injectID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			expID := string(it.Item().Key()[len(prefix):])
			item, err := txn.Get(expKey(expID))
			if err != nil {
				return fmt.Errorf("resolve index entry %s: %w", expID, err)
			}
			var row datatypes.Expectation
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find expectations for inject %s: %w", injectID, err)
	}
	return rows, nil
}

// FindByInjects returns all rows across the given injects.
func (s *Store) FindByInjects(ctx context.Context, injectIDs []string) ([]datatypes.Expectation, error) {
	var rows []datatypes.Expectation
	for _, id := range injectIDs {
		injectRows, err := s.FindByInject(ctx, id)
		if err != nil {
			return nil, err
		}
		rows = append(rows, injectRows...)
	}
	return rows, nil
}

// FindByInjectAndType returns one inject's rows filtered to a type. This
// is the child-set fetch for propagation.
func (s *Store) FindByInjectAndType(ctx context.Context, injectID string, t datatypes.ExpectationType) ([]datatypes.Expectation, error) {
	rows, err := s.FindByInject(ctx, injectID)
	if err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out, nil
}

// PendingPastDeadline scans for rows that are still pending with an
// elapsed deadline, up to limit rows (0 means no limit). Used by the
// expiration sweeper.
func (s *Store) PendingPastDeadline(ctx context.Context, now time.Time, limit int) ([]datatypes.Expectation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rows []datatypes.Expectation
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(expPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(rows) >= limit {
				return nil
			}
			var row datatypes.Expectation
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			if row.Score == nil && !now.Before(row.ExpiresAt) {
				rows = append(rows, row)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pending expectations: %w", err)
	}
	return rows, nil
}

func writeRow(txn *badger.Txn, row datatypes.Expectation) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal expectation %s: %w", row.ID, err)
	}
	return txn.Set(expKey(row.ID), data)
}

func expKey(id string) []byte {
	return []byte(expPrefix + id)
}

func injectKey(injectID, expID string) []byte {
	return []byte(injectPrefix + injectID + ":" + expID)
}
