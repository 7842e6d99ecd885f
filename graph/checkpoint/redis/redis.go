//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides a redis-backed checkpoint saver. Each thread is a
// redis list; a checkpoint's sequence number is its position in the list
// plus one, so RPUSH hands out gap-free numbers atomically.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	storage "trpc.group/trpc-go/trpc-ctxagent-go/storage/redis"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/metric"
)

const (
	backendName      = "redis"
	defaultKeyPrefix = "ctxagent"
)

// Option configures the saver.
type Option func(*Saver)

// WithKeyPrefix sets the key prefix. Keys look like
// "<prefix>:checkpoints:<thread id>".
func WithKeyPrefix(prefix string) Option {
	return func(s *Saver) {
		s.prefix = prefix
	}
}

// WithTTL expires a thread's checkpoints ttl after its last write.
// Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Saver) {
		s.ttl = ttl
	}
}

// Saver stores checkpoints in redis.
type Saver struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	owned  bool
}

// NewSaver wraps an existing client. Close does not close it.
func NewSaver(client redis.UniversalClient, opts ...Option) (*Saver, error) {
	if client == nil {
		return nil, errors.New("redis: client is nil")
	}
	s := &Saver{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open connects to target (a redis:// URL or a registered instance name)
// and returns a saver that owns the client.
func Open(ctx context.Context, target string, opts ...Option) (*Saver, error) {
	client, err := storage.NewClient(ctx, target)
	if err != nil {
		return nil, err
	}
	s, err := NewSaver(client, opts...)
	if err != nil {
		client.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

func (s *Saver) key(threadID string) string {
	return fmt.Sprintf("%s:checkpoints:%s", s.prefix, threadID)
}

// Put appends the checkpoint to the thread's list.
func (s *Saver) Put(ctx context.Context, threadID string, cp *graph.Checkpoint) (seq int64, err error) {
	defer func() { metric.RecordCheckpoint(ctx, backendName, err) }()
	if threadID == "" {
		return 0, graph.ErrThreadIDRequired
	}
	if cp == nil {
		return 0, errors.New("redis: checkpoint is nil")
	}
	stored := cp.Clone()
	stored.ThreadID = threadID
	stored.Seq = 0
	if stored.State == nil {
		stored.State = json.RawMessage("null")
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("redis: marshal checkpoint: %w", err)
	}
	key := s.key(threadID)
	var push *redis.IntCmd
	if _, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		push = pipe.RPush(ctx, key, payload)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	}); err != nil {
		return 0, fmt.Errorf("redis: put checkpoint: %w", err)
	}
	return push.Val(), nil
}

// List returns the thread's checkpoints in ascending order.
func (s *Saver) List(ctx context.Context, threadID string) ([]*graph.Checkpoint, error) {
	raw, err := s.client.LRange(ctx, s.key(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list checkpoints: %w", err)
	}
	out := make([]*graph.Checkpoint, 0, len(raw))
	for i, item := range raw {
		cp, err := decode(threadID, int64(i+1), item)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

// Latest returns the newest checkpoint of a thread.
func (s *Saver) Latest(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	key := s.key(threadID)
	var (
		length *redis.IntCmd
		last   *redis.StringCmd
	)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		length = pipe.LLen(ctx, key)
		last = pipe.LIndex(ctx, key, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: latest checkpoint: %w", err)
	}
	if length.Val() == 0 {
		return nil, graph.ErrCheckpointNotFound
	}
	return decode(threadID, length.Val(), last.Val())
}

// DeleteThread removes all checkpoints for a thread.
func (s *Saver) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.client.Del(ctx, s.key(threadID)).Err(); err != nil {
		return fmt.Errorf("redis: delete thread: %w", err)
	}
	return nil
}

// Close closes the client when the saver opened it.
func (s *Saver) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

func decode(threadID string, seq int64, item string) (*graph.Checkpoint, error) {
	var cp graph.Checkpoint
	if err := json.Unmarshal([]byte(item), &cp); err != nil {
		return nil, fmt.Errorf("redis: decode checkpoint %d: %w", seq, err)
	}
	cp.ThreadID = threadID
	cp.Seq = seq
	return &cp, nil
}
