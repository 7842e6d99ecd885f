//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph/checkpoint/checkpointtest"
)

func TestSaver(t *testing.T) {
	checkpointtest.Run(t, func(t *testing.T) graph.CheckpointSaver {
		mr := miniredis.RunT(t)
		s, err := Open(context.Background(), "redis://"+mr.Addr())
		require.NoError(t, err)
		return s
	})
}

func TestNewSaver_NilClient(t *testing.T) {
	_, err := NewSaver(nil)
	assert.Error(t, err)
}

func TestSaver_KeyPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s, err := NewSaver(client, WithKeyPrefix("test"), WithTTL(time.Minute))
	require.NoError(t, err)
	_, err = s.Put(context.Background(), "t1", graph.NewCheckpoint("t1", "", "planner", 0, graph.CheckpointSourceLoop, []byte(`{}`)))
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:checkpoints:t1"))
	assert.Equal(t, time.Minute, mr.TTL("test:checkpoints:t1"))

	mr.FastForward(2 * time.Minute)
	_, err = s.Latest(context.Background(), "t1")
	assert.ErrorIs(t, err, graph.ErrCheckpointNotFound)

	// The saver does not own a client it was handed.
	require.NoError(t, s.Close())
	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestSaver_CorruptEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	s, err := NewSaver(client)
	require.NoError(t, err)

	_, err = mr.Push("ctxagent:checkpoints:bad", "not json")
	require.NoError(t, err)
	_, err = s.List(context.Background(), "bad")
	assert.Error(t, err)
	_, err = s.Latest(context.Background(), "bad")
	assert.Error(t, err)
}
