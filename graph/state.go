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
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"trpc.group/trpc-go/trpc-ctxagent-go/model"
)

// StateKeyMessages is the key of the message log.
const StateKeyMessages = "messages"

// State represents the state that flows through the graph.
type State map[string]any

// Clone creates a copy of the state. Values are shared; reducers never
// mutate a value in place.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	return clone
}

// Messages returns the message log, or nil when absent.
func (s State) Messages() []model.Message {
	msgs, _ := s[StateKeyMessages].([]model.Message)
	return msgs
}

// StateReducer is a function that determines how state updates are merged.
// It takes existing and new values and returns the merged result.
type StateReducer func(existing, update any) any

// StateField defines a field in the state schema with its type and reducer.
type StateField struct {
	Type     reflect.Type
	Reducer  StateReducer
	Default  func() any
	Required bool
}

// StateSchema defines the structure and behavior of graph state.
// It is built once before Compile and read-only afterwards.
type StateSchema struct {
	Fields map[string]StateField
}

// NewStateSchema creates a new state schema.
func NewStateSchema() *StateSchema {
	return &StateSchema{
		Fields: make(map[string]StateField),
	}
}

// AddField adds a field to the state schema.
func (s *StateSchema) AddField(name string, field StateField) *StateSchema {
	if field.Reducer == nil {
		field.Reducer = DefaultReducer
	}
	s.Fields[name] = field
	return s
}

// Initial returns a state holding every field's default value.
func (s *StateSchema) Initial() State {
	state := make(State, len(s.Fields))
	for name, field := range s.Fields {
		if field.Default != nil {
			state[name] = field.Default()
		}
	}
	return state
}

// ApplyUpdate applies a state update using the defined reducers and returns
// a new state. currentState is not modified.
func (s *StateSchema) ApplyUpdate(currentState State, update State) State {
	result := currentState.Clone()
	for key, updateValue := range update {
		field, exists := s.Fields[key]
		if !exists {
			result[key] = updateValue
			continue
		}
		currentValue, hasCurrentValue := result[key]
		if !hasCurrentValue && field.Default != nil {
			currentValue = field.Default()
		}
		result[key] = field.Reducer(currentValue, updateValue)
	}
	return result
}

// Validate validates a state against the schema.
func (s *StateSchema) Validate(state State) error {
	for _, name := range s.fieldNames() {
		field := s.Fields[name]
		value, exists := state[name]
		if field.Required && !exists {
			return fmt.Errorf("%w: required field %s is missing", ErrInvalidState, name)
		}
		if exists && value != nil && field.Type != nil {
			valueType := reflect.TypeOf(value)
			if !valueType.AssignableTo(field.Type) {
				return fmt.Errorf("%w: field %s has wrong type: expected %v, got %v",
					ErrInvalidState, name, field.Type, valueType)
			}
		}
	}
	return nil
}

// Encode serializes a state to JSON for checkpointing.
func (s *StateSchema) Encode(state State) ([]byte, error) {
	b, err := json.Marshal(map[string]any(state))
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}

// Decode restores a state encoded with Encode. Fields declared in the schema
// come back with their declared Go type; unknown keys decode generically.
func (s *StateSchema) Decode(data []byte) (State, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	state := make(State, len(raw))
	for key, value := range raw {
		field, ok := s.Fields[key]
		if !ok || field.Type == nil {
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return nil, fmt.Errorf("decode state field %s: %w", key, err)
			}
			state[key] = v
			continue
		}
		ptr := reflect.New(field.Type)
		if err := json.Unmarshal(value, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("decode state field %s: %w", key, err)
		}
		state[key] = ptr.Elem().Interface()
	}
	return state, nil
}

func (s *StateSchema) fieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Common reducer functions.

// DefaultReducer overwrites the existing value with the update.
func DefaultReducer(existing, update any) any {
	return update
}

// AppendReducer appends update to existing slice.
func AppendReducer(existing, update any) any {
	existingSlice, _ := existing.([]any)
	updateSlice, ok := update.([]any)
	if !ok {
		return update
	}
	out := make([]any, 0, len(existingSlice)+len(updateSlice))
	out = append(out, existingSlice...)
	return append(out, updateSlice...)
}

// MessageReducer appends to the message log. The update may be a single
// model.Message or a []model.Message; the result is always a fresh slice,
// so earlier snapshots of the log are never changed.
func MessageReducer(existing, update any) any {
	existingMsgs, _ := existing.([]model.Message)
	var add []model.Message
	switch u := update.(type) {
	case nil:
	case model.Message:
		add = []model.Message{u}
	case []model.Message:
		add = u
	default:
		return update
	}
	out := make([]model.Message, 0, len(existingMsgs)+len(add))
	out = append(out, existingMsgs...)
	for _, m := range add {
		out = append(out, m.Clone())
	}
	return out
}

// MessagesStateSchema creates a state schema with an append-only message log.
func MessagesStateSchema() *StateSchema {
	return NewStateSchema().AddField(StateKeyMessages, StateField{
		Type:    reflect.TypeOf([]model.Message{}),
		Reducer: MessageReducer,
		Default: func() any { return []model.Message{} },
	})
}
