//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package checkpointtest holds the behaviour every graph.CheckpointSaver
// backend must share. Backends call Run from their own tests.
package checkpointtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
)

// Factory returns a fresh, empty saver. The suite closes it.
type Factory func(t *testing.T) graph.CheckpointSaver

// Run runs the shared saver suite.
func Run(t *testing.T, newSaver Factory) {
	t.Run("Empty", func(t *testing.T) { testEmpty(t, newSaver(t)) })
	t.Run("PutListLatest", func(t *testing.T) { testPutListLatest(t, newSaver(t)) })
	t.Run("Copies", func(t *testing.T) { testCopies(t, newSaver(t)) })
	t.Run("ThreadIsolation", func(t *testing.T) { testIsolation(t, newSaver(t)) })
	t.Run("ConcurrentPut", func(t *testing.T) { testConcurrentPut(t, newSaver(t)) })
	t.Run("DeleteThread", func(t *testing.T) { testDelete(t, newSaver(t)) })
}

func newCheckpoint(node string, step int, state string) *graph.Checkpoint {
	source := graph.CheckpointSourceLoop
	if step < 0 {
		source = graph.CheckpointSourceInput
	}
	return graph.NewCheckpoint("", "", node, step, source, []byte(state))
}

func testEmpty(t *testing.T, s graph.CheckpointSaver) {
	defer s.Close()
	ctx := context.Background()
	list, err := s.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = s.Latest(ctx, "nobody")
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
	_, err = s.Put(ctx, "", newCheckpoint(graph.Start, -1, `{}`))
	assert.ErrorIs(t, err, graph.ErrThreadIDRequired)
}

func testPutListLatest(t *testing.T, s graph.CheckpointSaver) {
	defer s.Close()
	ctx := context.Background()

	first := newCheckpoint(graph.Start, -1, `{"task":"t"}`)
	second := newCheckpoint("planner", 0, `{"task":"t","replans":1}`)
	second.ParentID = first.ID
	third := newCheckpoint("runner", 1, `{"task":"t","replans":1,"route":"runner"}`)
	third.ParentID = second.ID

	for i, cp := range []*graph.Checkpoint{first, second, third} {
		seq, err := s.Put(ctx, "thread-a", cp)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), seq)
	}

	list, err := s.List(ctx, "thread-a")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, want := range []*graph.Checkpoint{first, second, third} {
		got := list[i]
		assert.Equal(t, int64(i+1), got.Seq)
		assert.Equal(t, "thread-a", got.ThreadID)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.ParentID, got.ParentID)
		assert.Equal(t, want.Node, got.Node)
		assert.Equal(t, want.Step, got.Step)
		assert.Equal(t, want.Source, got.Source)
		assert.JSONEq(t, string(want.State), string(got.State))
		assert.Equal(t, want.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
	}

	latest, err := s.Latest(ctx, "thread-a")
	require.NoError(t, err)
	assert.Equal(t, third.ID, latest.ID)
	assert.Equal(t, int64(3), latest.Seq)
}

func testCopies(t *testing.T, s graph.CheckpointSaver) {
	defer s.Close()
	ctx := context.Background()
	cp := newCheckpoint("planner", 0, `{"a":1}`)
	_, err := s.Put(ctx, "thread-c", cp)
	require.NoError(t, err)

	cp.State[2] = 'b'
	cp.Node = "changed"

	got, err := s.Latest(ctx, "thread-c")
	require.NoError(t, err)
	assert.Equal(t, "planner", got.Node)
	assert.JSONEq(t, `{"a":1}`, string(got.State))

	got.State[2] = 'z'
	again, err := s.Latest(ctx, "thread-c")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again.State))
}

func testIsolation(t *testing.T, s graph.CheckpointSaver) {
	defer s.Close()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Put(ctx, "thread-x", newCheckpoint("n", i, `{}`))
		require.NoError(t, err)
	}
	seq, err := s.Put(ctx, "thread-y", newCheckpoint("n", 0, `{}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	x, err := s.List(ctx, "thread-x")
	require.NoError(t, err)
	assert.Len(t, x, 3)
	y, err := s.List(ctx, "thread-y")
	require.NoError(t, err)
	assert.Len(t, y, 1)
}

func testConcurrentPut(t *testing.T, s graph.CheckpointSaver) {
	defer s.Close()
	ctx := context.Background()
	const (
		threads    = 3
		writers    = 4
		perWriter  = 10
		perThread  = writers * perWriter
		stateBytes = `{"k":"v"}`
	)
	var wg sync.WaitGroup
	errs := make(chan error, threads*perThread)
	for th := 0; th < threads; th++ {
		threadID := fmt.Sprintf("thread-%d", th)
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					if _, err := s.Put(ctx, threadID, newCheckpoint("n", i, stateBytes)); err != nil {
						errs <- err
					}
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for th := 0; th < threads; th++ {
		list, err := s.List(ctx, fmt.Sprintf("thread-%d", th))
		require.NoError(t, err)
		require.Len(t, list, perThread)
		seqs := make([]int, 0, len(list))
		for _, cp := range list {
			seqs = append(seqs, int(cp.Seq))
		}
		assert.True(t, sort.IntsAreSorted(seqs), "list must be ascending")
		for i, seq := range seqs {
			assert.Equal(t, i+1, seq, "sequence numbers must be gap-free")
		}
	}
}

func testDelete(t *testing.T, s graph.CheckpointSaver) {
	defer s.Close()
	ctx := context.Background()
	_, err := s.Put(ctx, "thread-d", newCheckpoint("n", 0, `{}`))
	require.NoError(t, err)
	_, err = s.Put(ctx, "thread-keep", newCheckpoint("n", 0, `{}`))
	require.NoError(t, err)

	require.NoError(t, s.DeleteThread(ctx, "thread-d"))
	_, err = s.Latest(ctx, "thread-d")
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)
	list, err := s.List(ctx, "thread-d")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.Latest(ctx, "thread-keep")
	assert.NoError(t, err)
	assert.NoError(t, s.DeleteThread(ctx, "never-existed"))
}
