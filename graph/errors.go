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
	"errors"
	"fmt"
)

// Errors.
var (
	ErrInvalidGraph       = errors.New("invalid graph")
	ErrUnmappedLabel      = errors.New("routing label not in path map")
	ErrThreadIDRequired   = errors.New("thread id is required")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrNoCheckpointSaver  = errors.New("no checkpoint saver configured")
	ErrMaxStepsExceeded   = errors.New("maximum execution steps exceeded")
	ErrInvalidNodeResult  = errors.New("node returned an invalid result")
	ErrInvalidState       = errors.New("state does not match schema")
)

// RoutingError reports a routing function that returned a label its path
// map does not contain. It is fatal for the run.
type RoutingError struct {
	From  string
	Label string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("node %s routed to label %q: %v", e.From, e.Label, ErrUnmappedLabel)
}

// Unwrap returns ErrUnmappedLabel.
func (e *RoutingError) Unwrap() error {
	return ErrUnmappedLabel
}

// NodeError wraps the failure of a single node execution.
type NodeError struct {
	NodeID string
	Step   int
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (step %d): %v", e.NodeID, e.Step, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
