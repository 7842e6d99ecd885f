//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"trpc.group/trpc-go/trpc-ctxagent-go/event"
)

func TestNewRunOptions(t *testing.T) {
	var seen []string
	opts := NewRunOptions(
		WithThreadID("thread-1"),
		WithEventHandler(func(e *event.Event) { seen = append(seen, e.Object) }),
	)
	assert.Equal(t, "thread-1", opts.ThreadID)
	opts.EventHandler(&event.Event{Object: "x"})
	assert.Equal(t, []string{"x"}, seen)

	assert.Equal(t, RunOptions{}, NewRunOptions())
}
