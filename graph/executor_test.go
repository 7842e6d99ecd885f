//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package graph_test

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/event"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/graph/checkpoint/inmemory"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

const keyCount = "count"

func counterSchema() *graph.StateSchema {
	return graph.MessagesStateSchema().AddField(keyCount, graph.StateField{
		Type:    reflect.TypeOf(0),
		Default: func() any { return 0 },
	})
}

func increment(ctx context.Context, state graph.State) (any, error) {
	n := state[keyCount].(int) + 1
	return graph.State{
		keyCount:               n,
		graph.StateKeyMessages: model.NewAssistantMessage("tick"),
	}, nil
}

// loopGraph increments until count reaches limit.
func loopGraph(t *testing.T, limit int) *graph.Graph {
	t.Helper()
	return graph.NewStateGraph(counterSchema()).
		AddNode("inc", increment).
		SetEntryPoint("inc").
		AddConditionalEdges("inc", func(ctx context.Context, state graph.State) (string, error) {
			if state[keyCount].(int) >= limit {
				return "done", nil
			}
			return "again", nil
		}, map[string]string{"again": "inc", "done": graph.End}, graph.WithLabels("again", "done")).
		MustCompile()
}

func collect(ch <-chan *event.Event) []*event.Event {
	var out []*event.Event
	for evt := range ch {
		out = append(out, evt)
	}
	return out
}

func TestExecute_EventsAndCheckpoints(t *testing.T) {
	saver := inmemory.NewSaver()
	exec, err := graph.NewExecutor(loopGraph(t, 2), graph.WithCheckpointSaver(saver))
	require.NoError(t, err)
	assert.Same(t, saver, exec.Saver())

	ch, err := exec.Execute(context.Background(), graph.State{
		graph.StateKeyMessages: model.NewUserMessage("go"),
	}, "thread-1")
	require.NoError(t, err)
	events := collect(ch)

	objects := make([]string, 0, len(events))
	for _, evt := range events {
		objects = append(objects, evt.Object)
		assert.Equal(t, "thread-1", evt.ThreadID)
	}
	assert.Equal(t, []string{
		graph.ObjectTypeGraphNodeStart, graph.ObjectTypeGraphNodeComplete,
		graph.ObjectTypeGraphNodeStart, graph.ObjectTypeGraphNodeComplete,
		graph.ObjectTypeGraphExecutionComplete,
	}, objects)

	complete := events[1]
	assert.Equal(t, "inc", complete.Author)
	assert.Equal(t, 0, complete.Step)
	require.Len(t, complete.Messages, 1)
	assert.Equal(t, "tick", complete.Messages[0].Content)

	final := events[len(events)-1]
	assert.True(t, final.Done)
	assert.Equal(t, graph.AuthorGraphExecutor, final.Author)
	assert.Equal(t, 2, final.State[keyCount])
	assert.Len(t, graph.State(final.State).Messages(), 3)

	cps, err := saver.List(context.Background(), "thread-1")
	require.NoError(t, err)
	require.Len(t, cps, 3)
	assert.Equal(t, graph.Start, cps[0].Node)
	assert.Equal(t, -1, cps[0].Step)
	assert.Equal(t, graph.CheckpointSourceInput, cps[0].Source)
	assert.Empty(t, cps[0].ParentID)
	for i, cp := range cps[1:] {
		assert.Equal(t, "inc", cp.Node)
		assert.Equal(t, i, cp.Step)
		assert.Equal(t, graph.CheckpointSourceLoop, cp.Source)
		assert.Equal(t, cps[i].ID, cp.ParentID)
	}

	history, err := graph.LoadMessages(context.Background(), saver, exec.Graph().Schema(), "thread-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Each snapshot extends the previous one.
	for i := 1; i < len(history); i++ {
		require.Greater(t, len(history[i]), len(history[i-1]))
		assert.Equal(t, history[i-1], history[i][:len(history[i-1])])
	}
}

func TestExecute_RequiresThreadID(t *testing.T) {
	exec, err := graph.NewExecutor(loopGraph(t, 1))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), nil, "")
	assert.ErrorIs(t, err, graph.ErrThreadIDRequired)
}

func TestExecute_InvalidInitialState(t *testing.T) {
	exec, err := graph.NewExecutor(loopGraph(t, 1))
	require.NoError(t, err)
	_, err = exec.Execute(context.Background(), graph.State{keyCount: "zero"}, "t")
	assert.ErrorIs(t, err, graph.ErrInvalidState)
}

func TestInvoke_MaxSteps(t *testing.T) {
	exec, err := graph.NewExecutor(loopGraph(t, 1000), graph.WithMaxSteps(5))
	require.NoError(t, err)
	_, err = exec.Invoke(context.Background(), nil, "t")
	assert.ErrorIs(t, err, graph.ErrMaxStepsExceeded)
}

func TestInvoke_UnmappedLabel(t *testing.T) {
	g := graph.NewStateGraph(counterSchema()).
		AddNode("a", noop).
		SetEntryPoint("a").
		AddConditionalEdges("a", route("surprise"), map[string]string{"ok": graph.End}).
		MustCompile()
	exec, err := graph.NewExecutor(g)
	require.NoError(t, err)

	_, err = exec.Invoke(context.Background(), nil, "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, graph.ErrUnmappedLabel)
	var routingErr *graph.RoutingError
	require.ErrorAs(t, err, &routingErr)
	assert.Equal(t, "a", routingErr.From)
	assert.Equal(t, "surprise", routingErr.Label)
}

func TestInvoke_NodeFailures(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		fn   graph.NodeFunc
		want error
	}{
		{name: "error", fn: func(ctx context.Context, s graph.State) (any, error) { return nil, boom }, want: boom},
		{name: "bad result", fn: func(ctx context.Context, s graph.State) (any, error) { return 42, nil }, want: graph.ErrInvalidNodeResult},
		{name: "bad field type", fn: func(ctx context.Context, s graph.State) (any, error) {
			return map[string]any{keyCount: "x"}, nil
		}, want: graph.ErrInvalidState},
		{name: "panic", fn: func(ctx context.Context, s graph.State) (any, error) { panic("kaboom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph.NewStateGraph(counterSchema()).
				AddNode("n", tt.fn).SetEntryPoint("n").SetFinishPoint("n").MustCompile()
			exec, err := graph.NewExecutor(g)
			require.NoError(t, err)

			ch, err := exec.Execute(context.Background(), nil, "t")
			require.NoError(t, err)
			events := collect(ch)
			last := events[len(events)-1]
			require.True(t, last.IsError())
			assert.Equal(t, graph.ObjectTypeGraphExecutionError, last.Object)
			assert.True(t, last.Done)

			var nodeErr *graph.NodeError
			require.ErrorAs(t, last.Err, &nodeErr)
			assert.Equal(t, "n", nodeErr.NodeID)
			assert.Equal(t, 0, nodeErr.Step)
			if tt.want != nil {
				assert.ErrorIs(t, last.Err, tt.want)
			} else {
				assert.Contains(t, last.Error, "kaboom")
			}
		})
	}
}

func TestExecute_NodeGetsCopyOfState(t *testing.T) {
	g := graph.NewStateGraph(counterSchema()).
		AddNode("mutate", func(ctx context.Context, s graph.State) (any, error) {
			s[keyCount] = 99
			return nil, nil
		}).
		SetEntryPoint("mutate").SetFinishPoint("mutate").MustCompile()
	exec, err := graph.NewExecutor(g)
	require.NoError(t, err)
	final, err := exec.Invoke(context.Background(), nil, "t")
	require.NoError(t, err)
	assert.Equal(t, 0, final[keyCount])
}

func TestExecute_Cancellation(t *testing.T) {
	started := make(chan struct{})
	g := graph.NewStateGraph(counterSchema()).
		AddNode("slow", func(ctx context.Context, s graph.State) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}).
		SetEntryPoint("slow").SetFinishPoint("slow").MustCompile()
	saver := inmemory.NewSaver()
	exec, err := graph.NewExecutor(g, graph.WithCheckpointSaver(saver))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := exec.Execute(ctx, nil, "t")
	require.NoError(t, err)
	<-started
	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := graph.Drain(ctx, ch)
		done <- err
	}()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancellation")
	}

	// Only the input checkpoint was written.
	cps, err := saver.List(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, graph.CheckpointSourceInput, cps[0].Source)
}

func TestExecute_Callbacks(t *testing.T) {
	var before, after, failed atomic.Int32
	callbacks := graph.NewNodeCallbacks().
		RegisterBeforeNode(func(ctx context.Context, info *graph.NodeInfo, s graph.State) (graph.State, error) {
			before.Add(1)
			assert.Equal(t, "t", info.ThreadID)
			if info.NodeID == "skipped" {
				return graph.State{"skipped": true}, nil
			}
			return nil, nil
		}).
		RegisterAfterNode(func(ctx context.Context, info *graph.NodeInfo, s graph.State,
			update graph.State, nodeErr error) (graph.State, error) {
			after.Add(1)
			return nil, nil
		}).
		RegisterOnNodeError(func(ctx context.Context, info *graph.NodeInfo, s graph.State, err error) {
			failed.Add(1)
		})

	g := graph.NewStateGraph(counterSchema()).
		AddNode("skipped", func(ctx context.Context, s graph.State) (any, error) {
			return nil, errors.New("must not run")
		}).
		AddNode("inc", increment).
		SetEntryPoint("skipped").
		AddEdge("skipped", "inc").
		SetFinishPoint("inc").
		MustCompile()
	exec, err := graph.NewExecutor(g, graph.WithNodeCallbacks(callbacks))
	require.NoError(t, err)

	final, err := exec.Invoke(context.Background(), nil, "t")
	require.NoError(t, err)
	assert.Equal(t, true, final["skipped"])
	assert.Equal(t, 1, final[keyCount])
	assert.Equal(t, int32(2), before.Load())
	assert.Equal(t, int32(2), after.Load())
	assert.Equal(t, int32(0), failed.Load())
}

func TestExecute_AfterCallbackKeepsNodeError(t *testing.T) {
	var failed atomic.Int32
	callbacks := graph.NewNodeCallbacks().
		RegisterAfterNode(func(ctx context.Context, info *graph.NodeInfo, s graph.State,
			update graph.State, nodeErr error) (graph.State, error) {
			return nil, nil
		}).
		RegisterOnNodeError(func(ctx context.Context, info *graph.NodeInfo, s graph.State, err error) {
			failed.Add(1)
		})
	boom := errors.New("boom")
	g := graph.NewStateGraph(counterSchema()).
		AddNode("n", func(ctx context.Context, s graph.State) (any, error) { return nil, boom }).
		SetEntryPoint("n").SetFinishPoint("n").MustCompile()
	exec, err := graph.NewExecutor(g, graph.WithNodeCallbacks(callbacks))
	require.NoError(t, err)
	_, err = exec.Invoke(context.Background(), nil, "t")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), failed.Load())
}

func TestNewExecutor_Invalid(t *testing.T) {
	_, err := graph.NewExecutor(nil)
	assert.ErrorIs(t, err, graph.ErrInvalidGraph)
}
