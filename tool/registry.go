//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"errors"
	"fmt"
	"sort"
)

// Registry errors.
var (
	ErrDuplicateTool = errors.New("tool: duplicate tool name")
	ErrInvalidTool   = errors.New("tool: invalid tool")
)

// Registry is a read-only set of callable tools keyed by name.
// It is safe for concurrent use because nothing mutates it after NewRegistry.
type Registry struct {
	tools map[string]CallableTool
	names []string
}

// NewRegistry collects tools into a registry. Tools without a declaration or
// name, and tools sharing a name, are rejected.
func NewRegistry(tools ...CallableTool) (*Registry, error) {
	r := &Registry{tools: make(map[string]CallableTool, len(tools))}
	for _, t := range tools {
		if t == nil {
			return nil, fmt.Errorf("%w: nil tool", ErrInvalidTool)
		}
		decl := t.Declaration()
		if decl == nil || decl.Name == "" {
			return nil, fmt.Errorf("%w: missing name", ErrInvalidTool)
		}
		if _, ok := r.tools[decl.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTool, decl.Name)
		}
		r.tools[decl.Name] = t
		r.names = append(r.names, decl.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error.
func MustNewRegistry(tools ...CallableTool) *Registry {
	r, err := NewRegistry(tools...)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (CallableTool, bool) {
	if r == nil {
		return nil, false
	}
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted tool names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.tools)
}

// Declarations returns the tool declarations in name order.
func (r *Registry) Declarations() []*Declaration {
	if r == nil {
		return nil
	}
	out := make([]*Declaration, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name].Declaration())
	}
	return out
}

// Tools returns a fresh map suitable for a model request. Callers may mutate
// the returned map without affecting the registry.
func (r *Registry) Tools() map[string]Tool {
	if r == nil {
		return nil
	}
	out := make(map[string]Tool, len(r.tools))
	for name, t := range r.tools {
		out[name] = t
	}
	return out
}
