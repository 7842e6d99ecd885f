//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package event provides the events streamed while a graph runs.
package event

import (
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

// Event is a single observation emitted by the graph executor.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`
	// ThreadID is the thread the event belongs to.
	ThreadID string `json:"thread_id"`
	// Author is the node or component that produced the event.
	Author string `json:"author"`
	// Object is the kind of event, e.g. "graph.node.start".
	Object string `json:"object"`
	// Step is the executor step the event refers to.
	Step int `json:"step"`
	// Timestamp is the timestamp of the event.
	Timestamp time.Time `json:"timestamp"`
	// Messages holds the messages a node appended during its step.
	Messages []model.Message `json:"messages,omitempty"`
	// State is a snapshot of the thread state after the step.
	State map[string]any `json:"state,omitempty"`
	// Error is the error text of a failed run.
	Error string `json:"error,omitempty"`
	// Err is the original error of a failed run, for errors.Is/As.
	Err error `json:"-"`
	// Done marks the last event of a run.
	Done bool `json:"done"`
}

// Option is a function that can be used to configure the Event.
type Option func(*Event)

// WithObject sets the object for the event.
func WithObject(o string) Option {
	return func(e *Event) {
		e.Object = o
	}
}

// WithStep sets the step number.
func WithStep(step int) Option {
	return func(e *Event) {
		e.Step = step
	}
}

// WithMessages attaches the messages produced during the step.
func WithMessages(msgs []model.Message) Option {
	return func(e *Event) {
		e.Messages = msgs
	}
}

// WithState attaches a state snapshot.
func WithState(state map[string]any) Option {
	return func(e *Event) {
		e.State = state
	}
}

// WithError marks the event as failed and done.
func WithError(err error) Option {
	return func(e *Event) {
		if err == nil {
			return
		}
		e.Err = err
		e.Error = err.Error()
		e.Done = true
	}
}

// WithDone marks the event as the last one of the run.
func WithDone() Option {
	return func(e *Event) {
		e.Done = true
	}
}

// New creates a new Event with generated ID and timestamp.
func New(threadID, author string, opts ...Option) *Event {
	e := &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		ThreadID:  threadID,
		Author:    author,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsError reports whether the event carries a failure.
func (e *Event) IsError() bool {
	return e != nil && e.Err != nil
}

// Clone creates a copy of the event. Messages are deep-copied, the state
// map is copied one level deep.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Messages != nil {
		clone.Messages = make([]model.Message, len(e.Messages))
		for i, m := range e.Messages {
			clone.Messages[i] = m.Clone()
		}
	}
	if e.State != nil {
		clone.State = make(map[string]any, len(e.State))
		for k, v := range e.State {
			clone.State[k] = v
		}
	}
	return &clone
}
