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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-ctxagent-go/graph"
)

func TestRouteFromPlanner(t *testing.T) {
	label, err := routeFromPlanner(context.Background(), graph.State{StateKeyRoute: RouteHistory})
	require.NoError(t, err)
	assert.Equal(t, LabelHistory, label)

	label, err = routeFromPlanner(context.Background(), graph.State{})
	require.NoError(t, err)
	assert.Equal(t, "", label)
}

func TestRouteFromEvaluator(t *testing.T) {
	route := routeFromEvaluator(3)
	tests := []struct {
		verdict Verdict
		replans int
		want    string
	}{
		{VerdictGood, 1, LabelGood},
		{VerdictNormal, 5, LabelNormal},
		{VerdictBad, 1, LabelBad},
		{VerdictBad, 2, LabelBad},
		{VerdictBad, 3, LabelGiveUp},
		{VerdictBad, 4, LabelGiveUp},
		{VerdictUnset, 1, ""},
		{Verdict("meh"), 1, "meh"},
	}
	for _, tt := range tests {
		got, err := route(context.Background(), graph.State{
			StateKeyVerdict: tt.verdict,
			StateKeyReplans: tt.replans,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "verdict %q replans %d", tt.verdict, tt.replans)
	}
}
