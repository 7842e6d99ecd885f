//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// StructuredOutputType identifies the kind of structured output requested.
type StructuredOutputType string

// StructuredOutputJSONSchema asks the model for a JSON object matching a schema.
const StructuredOutputJSONSchema StructuredOutputType = "json_schema"

// StructuredOutput constrains a model response to a JSON schema.
type StructuredOutput struct {
	Type       StructuredOutputType `json:"type"`
	JSONSchema *JSONSchemaConfig    `json:"json_schema,omitempty"`
}

// JSONSchemaConfig is the schema half of a structured output request.
type JSONSchemaConfig struct {
	Name        string         `json:"name"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict"`
	Description string         `json:"description,omitempty"`
}

// EnumField is one enumerated property of an enum output object.
type EnumField struct {
	Name        string
	Description string
	Values      []string
}

// TextField is one free-form string property of an enum output object.
type TextField struct {
	Name        string
	Description string
}

// NewEnumOutput builds a strict JSON schema output whose object has the given
// enumerated properties and optional free-text properties. All properties are
// required and no other properties are allowed.
func NewEnumOutput(name, description string, enums []EnumField, texts ...TextField) *StructuredOutput {
	props := make(map[string]any, len(enums)+len(texts))
	required := make([]string, 0, len(enums)+len(texts))
	for _, f := range enums {
		props[f.Name] = map[string]any{
			"type":        "string",
			"description": f.Description,
			"enum":        slices.Clone(f.Values),
		}
		required = append(required, f.Name)
	}
	for _, f := range texts {
		props[f.Name] = map[string]any{
			"type":        "string",
			"description": f.Description,
		}
		required = append(required, f.Name)
	}
	return &StructuredOutput{
		Type: StructuredOutputJSONSchema,
		JSONSchema: &JSONSchemaConfig{
			Name:        name,
			Description: description,
			Strict:      true,
			Schema: map[string]any{
				"type":                 "object",
				"properties":           props,
				"required":             required,
				"additionalProperties": false,
			},
		},
	}
}

// DecodeStructured decodes the JSON object in content into v. Models that
// wrap JSON in a markdown fence are tolerated.
func DecodeStructured(content string, v any) error {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode structured output: %w", err)
	}
	return nil
}
