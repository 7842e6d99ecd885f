//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides in-memory checkpoint storage implementation
// for graph execution state persistence and recovery.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/metric"
)

const backendName = "memory"

// Saver provides an in-memory implementation of CheckpointSaver.
// This is suitable for testing and single-process use; nothing survives a
// restart.
type Saver struct {
	mu      sync.Mutex
	threads map[string]*thread
	// maxCheckpointsPerThread limits the number of retained checkpoints per
	// thread; 0 keeps everything.
	maxCheckpointsPerThread int
	closed                  bool
}

// thread guards one thread's checkpoints with its own lock.
type thread struct {
	mu      sync.RWMutex
	seq     int64
	entries []*graph.Checkpoint
}

// NewSaver creates a new in-memory checkpoint saver.
func NewSaver() *Saver {
	return &Saver{
		threads: make(map[string]*thread),
	}
}

// WithMaxCheckpointsPerThread bounds the checkpoints kept per thread; the
// oldest ones are dropped first. Sequence numbers keep increasing, so List
// of a trimmed thread no longer starts at seq 1 and graph.LoadMessages
// only sees the retained snapshots: earlier runs of a reused thread drop
// out of the history merge. Latest, and therefore Resume, is unaffected.
func (s *Saver) WithMaxCheckpointsPerThread(max int) *Saver {
	s.maxCheckpointsPerThread = max
	return s
}

var errClosed = errors.New("inmemory: saver is closed")

func (s *Saver) thread(threadID string, create bool) (*thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	t, ok := s.threads[threadID]
	if !ok && create {
		t = &thread{}
		s.threads[threadID] = t
	}
	return t, nil
}

// Put stores a copy of the checkpoint and assigns its sequence number.
func (s *Saver) Put(ctx context.Context, threadID string, cp *graph.Checkpoint) (seq int64, err error) {
	defer func() { metric.RecordCheckpoint(ctx, backendName, err) }()
	if threadID == "" {
		return 0, graph.ErrThreadIDRequired
	}
	if cp == nil {
		return 0, fmt.Errorf("inmemory: checkpoint is nil")
	}
	t, err := s.thread(threadID, true)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	stored := cp.Clone()
	stored.ThreadID = threadID
	stored.Seq = t.seq
	t.entries = append(t.entries, stored)
	if s.maxCheckpointsPerThread > 0 && len(t.entries) > s.maxCheckpointsPerThread {
		t.entries = append([]*graph.Checkpoint(nil), t.entries[len(t.entries)-s.maxCheckpointsPerThread:]...)
	}
	return t.seq, nil
}

// List returns copies of the thread's checkpoints in ascending order.
func (s *Saver) List(_ context.Context, threadID string) ([]*graph.Checkpoint, error) {
	t, err := s.thread(threadID, false)
	if err != nil || t == nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*graph.Checkpoint, 0, len(t.entries))
	for _, cp := range t.entries {
		out = append(out, cp.Clone())
	}
	return out, nil
}

// Latest returns a copy of the newest checkpoint.
func (s *Saver) Latest(_ context.Context, threadID string) (*graph.Checkpoint, error) {
	t, err := s.thread(threadID, false)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, graph.ErrCheckpointNotFound
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.entries) == 0 {
		return nil, graph.ErrCheckpointNotFound
	}
	return t.entries[len(t.entries)-1].Clone(), nil
}

// DeleteThread removes all checkpoints for a thread.
func (s *Saver) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	delete(s.threads, threadID)
	return nil
}

// Close drops all data; later calls fail.
func (s *Saver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.threads = nil
	return nil
}
