//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package dispatch executes the tool calls of a model response one after
// another and turns every outcome, including failures, into a tool message.
package dispatch

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/zeebo/blake3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	itelemetry "trpc.group/trpc-go/trpc-ctxagent-go/internal/telemetry"
	"trpc.group/trpc-go/trpc-ctxagent-go/log"
	"trpc.group/trpc-go/trpc-ctxagent-go/model"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/metric"
	"trpc.group/trpc-go/trpc-ctxagent-go/telemetry/trace"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
)

// DefaultMaxOutputBytes caps the content of a single tool message.
const DefaultMaxOutputBytes = 32 * 1024

const truncatedMarker = "\n[output truncated]"

// ToolSource is the read-only view of the tools a dispatcher may call.
// *tool.Registry satisfies it.
type ToolSource interface {
	Get(name string) (tool.CallableTool, bool)
	Names() []string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMaxOutputBytes sets the truncation limit for tool output. Values <= 0
// disable truncation.
func WithMaxOutputBytes(n int) Option {
	return func(d *Dispatcher) {
		d.maxOutputBytes = n
	}
}

// Dispatcher runs tool calls sequentially against a ToolSource.
type Dispatcher struct {
	tools          ToolSource
	schemas        map[string]*jsonschema.Schema
	maxOutputBytes int
}

// failure is the content written for every call that did not succeed.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// New compiles the input schema of every tool and returns a dispatcher.
func New(tools ToolSource, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		tools:          tools,
		schemas:        make(map[string]*jsonschema.Schema),
		maxOutputBytes: DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		opt(d)
	}
	if tools == nil {
		return d, nil
	}
	for _, name := range tools.Names() {
		t, _ := tools.Get(name)
		s, err := compileSchema(name, t.Declaration().InputSchema)
		if err != nil {
			return nil, fmt.Errorf("dispatch: tool %s schema: %w", name, err)
		}
		d.schemas[name] = s
	}
	return d, nil
}

// Dispatch executes calls in order and returns exactly one tool message per
// call, in the same order.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []model.ToolCall) []model.Message {
	out := make([]model.Message, 0, len(calls))
	for _, call := range calls {
		out = append(out, d.dispatchOne(ctx, call))
	}
	return out
}

func (d *Dispatcher) dispatchOne(ctx context.Context, call model.ToolCall) model.Message {
	name := call.Function.Name
	callID := call.ID
	if strings.TrimSpace(callID) == "" {
		callID = "call_" + shortHash(name, call.Function.Arguments)
	}

	ctx, span := trace.Tracer.Start(ctx, itelemetry.NewExecuteToolSpanName(name))
	defer span.End()
	span.SetAttributes(
		attribute.String(itelemetry.KeyToolName, name),
		attribute.String(itelemetry.KeyToolCallID, callID),
	)

	content, err := d.execute(ctx, name, call.Function.Arguments)
	if err != nil {
		log.Warnf("tool %s (call %s) failed: %v", name, callID, err)
		span.SetStatus(codes.Error, err.Error())
		content = encodeFailure(err)
	}
	metric.RecordToolCall(ctx, name, err == nil)
	return model.NewToolMessage(callID, name, d.truncate(content))
}

func (d *Dispatcher) execute(ctx context.Context, name string, rawArgs []byte) (content string, err error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("canceled before execution: %w", err)
	}
	if d.tools == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	t, ok := d.tools.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}

	args := rawArgs
	if len(strings.TrimSpace(string(args))) == 0 {
		args = []byte("{}")
	}
	var decoded any
	if err := json.Unmarshal(args, &decoded); err != nil {
		return "", fmt.Errorf("invalid tool arguments JSON: %w", err)
	}
	if s := d.schemas[name]; s != nil {
		if err := s.Validate(decoded); err != nil {
			return "", fmt.Errorf("tool arguments schema validation failed: %w", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			content = ""
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	result, err := t.Call(ctx, args)
	if err != nil {
		return "", err
	}
	return encodeResult(result)
}

func encodeResult(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case nil:
		return "null", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(b), nil
}

func encodeFailure(err error) string {
	b, mErr := json.Marshal(failure{Success: false, Error: err.Error()})
	if mErr != nil {
		return `{"success":false,"error":"unencodable error"}`
	}
	return string(b)
}

func (d *Dispatcher) truncate(s string) string {
	if d.maxOutputBytes <= 0 || len(s) <= d.maxOutputBytes {
		return s
	}
	cut := d.maxOutputBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedMarker
}

func compileSchema(name string, s *tool.Schema) (*jsonschema.Schema, error) {
	raw := []byte(`{"type":"object"}`)
	if s != nil {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	url := name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return c.Compile(url)
}

func shortHash(name string, args []byte) string {
	h := blake3.New()
	_, _ = h.Write([]byte(name))
	_, _ = h.Write(args)
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
