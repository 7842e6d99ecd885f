//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package contextagent

import (
	"context"
	"fmt"

	"github.com/zeebo/blake3"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

type fingerprint [32]byte

// messageFingerprint hashes everything that identifies a message.
func messageFingerprint(m model.Message) fingerprint {
	h := blake3.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(string(m.Role))
	write(m.Content)
	write(m.ToolID)
	write(m.ToolName)
	for _, c := range m.ToolCalls {
		write(c.ID)
		write(c.Function.Name)
		h.Write(c.Function.Arguments)
		h.Write([]byte{0})
	}
	var out fingerprint
	copy(out[:], h.Sum(nil))
	return out
}

// extends reports whether msgs starts with every message of prefix, in
// the same positions.
func extends(msgs, prefix []model.Message) bool {
	if len(prefix) > len(msgs) {
		return false
	}
	for i := range prefix {
		if messageFingerprint(prefix[i]) != messageFingerprint(msgs[i]) {
			return false
		}
	}
	return true
}

// mergeMessages lays the earlier runs of a thread in front of the in-flight
// log. Within a run every snapshot extends the previous one, so each run
// contributes only its last snapshot, and the snapshots the in-flight log
// already extends are dropped. Messages are matched by position; repeats
// inside one log are kept.
func mergeMessages(history [][]model.Message, inFlight []model.Message) []model.Message {
	var runs [][]model.Message
	for _, snapshot := range history {
		if n := len(runs); n > 0 && extends(snapshot, runs[n-1]) {
			runs[n-1] = snapshot
			continue
		}
		runs = append(runs, snapshot)
	}
	if n := len(runs); n > 0 && extends(inFlight, runs[n-1]) {
		runs = runs[:n-1]
	}
	var out []model.Message
	for _, run := range append(runs, inFlight) {
		for _, m := range run {
			out = append(out, m.Clone())
		}
	}
	return out
}

// historyMergeNode widens the context with the thread's checkpoint history.
// The result goes to merged_context; the message log is not touched.
func (a *Agent) historyMergeNode(ctx context.Context, state graph.State) (any, error) {
	threadID := stateString(state, StateKeyThreadID)
	history, err := graph.LoadMessages(ctx, a.saver, a.graph.Schema(), threadID)
	if err != nil {
		return nil, fmt.Errorf("load history of thread %s: %w", threadID, err)
	}
	merged := mergeMessages(history, state.Messages())
	log.Debugf("history merge: %d snapshots, %d messages merged", len(history), len(merged))
	if merged == nil {
		merged = []model.Message{}
	}
	return graph.State{StateKeyMergedContext: merged}, nil
}
