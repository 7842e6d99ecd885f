//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

const (
	// CheckpointSourceInput indicates the checkpoint was created from input.
	CheckpointSourceInput = "input"
	// CheckpointSourceLoop indicates the checkpoint was created from inside the loop.
	CheckpointSourceLoop = "loop"
)

// Checkpoint is an immutable snapshot of a thread's state taken after a
// node completed (or, for the first one, when the input was received).
type Checkpoint struct {
	// ID is the unique identifier for this checkpoint.
	ID string `json:"id"`
	// ThreadID is the thread the checkpoint belongs to.
	ThreadID string `json:"thread_id"`
	// Seq is assigned by the saver: 1 for the first checkpoint of a
	// thread, then increasing by one.
	Seq int64 `json:"seq"`
	// ParentID is the ID of the previous checkpoint of the thread.
	ParentID string `json:"parent_id,omitempty"`
	// Node is the node that just completed, or Start for input checkpoints.
	Node string `json:"node"`
	// Step is -1 for input, 0+ for loop steps.
	Step int `json:"step"`
	// Source is CheckpointSourceInput or CheckpointSourceLoop.
	Source string `json:"source"`
	// State is the JSON-encoded thread state.
	State json.RawMessage `json:"state"`
	// CreatedAt is when the checkpoint was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewCheckpoint creates a checkpoint with a fresh ID.
func NewCheckpoint(threadID, parentID, node string, step int, source string, state []byte) *Checkpoint {
	return &Checkpoint{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		ParentID:  parentID,
		Node:      node,
		Step:      step,
		Source:    source,
		State:     append(json.RawMessage(nil), state...),
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a copy that shares no memory with c.
func (c *Checkpoint) Clone() *Checkpoint {
	if c == nil {
		return nil
	}
	clone := *c
	clone.State = append(json.RawMessage(nil), c.State...)
	return &clone
}

// CheckpointSaver defines the interface for checkpoint storage implementations.
// Writes for the same thread are serialised by the implementation.
type CheckpointSaver interface {
	// Put stores a copy of the checkpoint under threadID and returns the
	// sequence number assigned to it.
	Put(ctx context.Context, threadID string, cp *Checkpoint) (int64, error)
	// List returns the checkpoints of a thread in ascending sequence order.
	List(ctx context.Context, threadID string) ([]*Checkpoint, error)
	// Latest returns the newest checkpoint, or ErrCheckpointNotFound.
	Latest(ctx context.Context, threadID string) (*Checkpoint, error)
	// DeleteThread removes all checkpoints for a thread.
	DeleteThread(ctx context.Context, threadID string) error
	// Close releases resources held by the saver.
	Close() error
}

// LoadMessages decodes the message log of every checkpoint of a thread, in
// checkpoint order.
func LoadMessages(ctx context.Context, saver CheckpointSaver, schema *StateSchema,
	threadID string) ([][]model.Message, error) {
	cps, err := saver.List(ctx, threadID)
	if err != nil {
		return nil, err
	}
	out := make([][]model.Message, 0, len(cps))
	for _, cp := range cps {
		state, err := schema.Decode(cp.State)
		if err != nil {
			return nil, err
		}
		out = append(out, state.Messages())
	}
	return out, nil
}
