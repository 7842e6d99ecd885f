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
	"time"
)

// NodeInfo describes the node a callback runs around.
type NodeInfo struct {
	ThreadID  string
	NodeID    string
	Step      int
	StartedAt time.Time
}

// BeforeNodeCallback runs before a node. A non-nil update replaces the
// node's own result and the node is not called. An error fails the step.
type BeforeNodeCallback func(ctx context.Context, info *NodeInfo, state State) (State, error)

// AfterNodeCallback runs after a node, also when it failed (nodeErr). A
// non-nil update replaces the one the node produced; it cannot clear
// nodeErr.
type AfterNodeCallback func(ctx context.Context, info *NodeInfo, state State,
	update State, nodeErr error) (State, error)

// OnNodeErrorCallback observes a failed step.
type OnNodeErrorCallback func(ctx context.Context, info *NodeInfo, state State, err error)

// NodeCallbacks holds the callbacks run around every node, in
// registration order. A nil *NodeCallbacks runs nothing.
type NodeCallbacks struct {
	BeforeNode  []BeforeNodeCallback
	AfterNode   []AfterNodeCallback
	OnNodeError []OnNodeErrorCallback
}

// NewNodeCallbacks creates an empty set.
func NewNodeCallbacks() *NodeCallbacks {
	return &NodeCallbacks{}
}

// RegisterBeforeNode appends cb.
func (c *NodeCallbacks) RegisterBeforeNode(cb BeforeNodeCallback) *NodeCallbacks {
	c.BeforeNode = append(c.BeforeNode, cb)
	return c
}

// RegisterAfterNode appends cb.
func (c *NodeCallbacks) RegisterAfterNode(cb AfterNodeCallback) *NodeCallbacks {
	c.AfterNode = append(c.AfterNode, cb)
	return c
}

// RegisterOnNodeError appends cb.
func (c *NodeCallbacks) RegisterOnNodeError(cb OnNodeErrorCallback) *NodeCallbacks {
	c.OnNodeError = append(c.OnNodeError, cb)
	return c
}

// before returns the first non-nil update a callback supplies.
func (c *NodeCallbacks) before(ctx context.Context, info *NodeInfo, state State) (State, error) {
	if c == nil {
		return nil, nil
	}
	for _, cb := range c.BeforeNode {
		update, err := cb(ctx, info, state)
		if err != nil || update != nil {
			return update, err
		}
	}
	return nil, nil
}

// after threads update through every callback.
func (c *NodeCallbacks) after(ctx context.Context, info *NodeInfo, state State,
	update State, nodeErr error) (State, error) {
	if c == nil {
		return update, nil
	}
	for _, cb := range c.AfterNode {
		replaced, err := cb(ctx, info, state, update, nodeErr)
		if err != nil {
			return nil, err
		}
		if replaced != nil {
			update = replaced
		}
	}
	return update, nil
}

func (c *NodeCallbacks) onError(ctx context.Context, info *NodeInfo, state State, err error) {
	if c == nil {
		return
	}
	for _, cb := range c.OnNodeError {
		cb(ctx, info, state, err)
	}
}
