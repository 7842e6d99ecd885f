//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package model provides interfaces for working with LLMs.
package model

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned by Generate when the model closes its response
// channel without delivering a complete message.
var ErrEmptyResponse = errors.New("model: empty response")

// Model is the interface for all language models.
//
// Error Handling Strategy:
// This interface uses a dual-layer error handling approach:
//
// 1. Function-level errors (returned as `error`):
//   - System-level failures that prevent communication
//   - Examples: nil request, network issues, invalid parameters
//
// 2. Response-level errors (Response.Error field):
//   - API-level errors returned by the model service
//   - Examples: API rate limits, content filtering, model errors
//
// Usage pattern:
//
//	responseChan, err := model.GenerateContent(ctx, request)
//	if err != nil {
//	    return fmt.Errorf("failed to generate content: %w", err)
//	}
//	for response := range responseChan {
//	    if response.Error != nil {
//	        return response.Error
//	    }
//	    // Process successful response...
//	}
type Model interface {
	// GenerateContent generates content from the given request.
	//
	// Returns:
	// - A channel of Response objects for streaming results
	// - An error for system-level failures (prevents communication)
	//
	// The Response objects may contain their own Error field for API-level errors.
	GenerateContent(ctx context.Context, request *Request) (<-chan *Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info contains basic information about a Model.
type Info struct {
	Name string
}

// Generate drains the response channel of m and returns the final assistant
// message. Partial (streaming) chunks are skipped; the first API-level error
// is returned as an error.
func Generate(ctx context.Context, m Model, req *Request) (*Message, error) {
	if m == nil {
		return nil, errors.New("model: nil model")
	}
	ch, err := m.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Info().Name, err)
	}
	var final *Message
	for rsp := range ch {
		if rsp == nil {
			continue
		}
		if rsp.Error != nil {
			// Drain so the producer goroutine can exit.
			for range ch {
			}
			return nil, fmt.Errorf("model %s: %w", m.Info().Name, rsp.Error)
		}
		if rsp.IsPartial || len(rsp.Choices) == 0 {
			continue
		}
		msg := rsp.Choices[0].Message
		if msg.Role == "" {
			msg.Role = RoleAssistant
		}
		final = &msg
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if final == nil {
		return nil, fmt.Errorf("model %s: %w", m.Info().Name, ErrEmptyResponse)
	}
	return final, nil
}
