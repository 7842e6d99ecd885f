//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides SQLite-based checkpoint storage implementation
// for graph execution state persistence and recovery.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // Register the sqlite3 driver.

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/metric"
)

const (
	backendName = "sqlite"

	sqliteCreateCheckpoints = "CREATE TABLE IF NOT EXISTS checkpoints (" +
		"thread_id TEXT NOT NULL, " +
		"seq INTEGER NOT NULL, " +
		"checkpoint_id TEXT NOT NULL, " +
		"parent_id TEXT NOT NULL DEFAULT '', " +
		"node TEXT NOT NULL, " +
		"step INTEGER NOT NULL, " +
		"source TEXT NOT NULL, " +
		"state BLOB NOT NULL, " +
		"created_at INTEGER NOT NULL, " +
		"PRIMARY KEY (thread_id, seq)" +
		")"

	sqliteNextSeq = "SELECT COALESCE(MAX(seq), 0) + 1 FROM checkpoints WHERE thread_id = ?"

	sqliteInsertCheckpoint = "INSERT INTO checkpoints (" +
		"thread_id, seq, checkpoint_id, parent_id, node, step, source, state, created_at) " +
		"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

	sqliteSelectColumns = "SELECT thread_id, seq, checkpoint_id, parent_id, node, step, source, state, created_at " +
		"FROM checkpoints WHERE thread_id = ? "

	sqliteSelectAsc    = sqliteSelectColumns + "ORDER BY seq ASC"
	sqliteSelectLatest = sqliteSelectColumns + "ORDER BY seq DESC LIMIT 1"

	sqliteDeleteThread = "DELETE FROM checkpoints WHERE thread_id = ?"
)

// Saver is a SQLite-backed implementation of CheckpointSaver.
// It expects an initialized *sql.DB and will create the required schema.
// Writes to one thread are serialised by a per-thread lock and run in a
// transaction, so sequence numbers stay gap-free.
type Saver struct {
	db    *sql.DB
	locks sync.Map // thread id -> *sync.Mutex
}

// NewSaver creates a new saver using the provided DB.
// The DB must use a SQLite driver. The constructor creates tables if needed.
func NewSaver(db *sql.DB) (*Saver, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if _, err := db.Exec(sqliteCreateCheckpoints); err != nil {
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	return &Saver{db: db}, nil
}

// Open opens (or creates) the database file at path with WAL journaling and
// a busy timeout, and returns a saver that owns it.
func Open(path string) (*Saver, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d", path, 5000)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY
	// between threads.
	db.SetMaxOpenConns(1)
	s, err := NewSaver(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Saver) lock(threadID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(threadID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Put stores the checkpoint and assigns it MAX(seq)+1 within a transaction.
func (s *Saver) Put(ctx context.Context, threadID string, cp *graph.Checkpoint) (seq int64, err error) {
	defer func() { metric.RecordCheckpoint(ctx, backendName, err) }()
	if threadID == "" {
		return 0, graph.ErrThreadIDRequired
	}
	if cp == nil {
		return 0, errors.New("checkpoint is nil")
	}
	mu := s.lock(threadID)
	mu.Lock()
	defer mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = tx.QueryRowContext(ctx, sqliteNextSeq, threadID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	state := []byte(cp.State)
	if state == nil {
		state = []byte("null")
	}
	if _, err = tx.ExecContext(ctx, sqliteInsertCheckpoint,
		threadID, seq, cp.ID, cp.ParentID, cp.Node, cp.Step, cp.Source,
		state, cp.CreatedAt.UnixNano(),
	); err != nil {
		return 0, fmt.Errorf("insert checkpoint: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

// List returns the thread's checkpoints in ascending order.
func (s *Saver) List(ctx context.Context, threadID string) ([]*graph.Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelectAsc, threadID)
	if err != nil {
		return nil, fmt.Errorf("select checkpoints: %w", err)
	}
	defer rows.Close()
	var out []*graph.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return out, nil
}

// Latest returns the newest checkpoint of a thread.
func (s *Saver) Latest(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	cp, err := scanCheckpoint(s.db.QueryRowContext(ctx, sqliteSelectLatest, threadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, graph.ErrCheckpointNotFound
	}
	return cp, err
}

// DeleteThread removes all checkpoints for a thread.
func (s *Saver) DeleteThread(ctx context.Context, threadID string) error {
	mu := s.lock(threadID)
	mu.Lock()
	defer mu.Unlock()
	if _, err := s.db.ExecContext(ctx, sqliteDeleteThread, threadID); err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	return nil
}

// Close closes the underlying DB.
func (s *Saver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row scanner) (*graph.Checkpoint, error) {
	var (
		cp        graph.Checkpoint
		state     []byte
		createdAt int64
	)
	if err := row.Scan(&cp.ThreadID, &cp.Seq, &cp.ID, &cp.ParentID, &cp.Node,
		&cp.Step, &cp.Source, &state, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}
	cp.State = state
	cp.CreatedAt = time.Unix(0, createdAt).UTC()
	return &cp, nil
}
