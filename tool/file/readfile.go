//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package file

import (
	"context"
	"fmt"
	"os"
	"strings"

	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/function"
)

// readFileRequest represents the input for the read file operation.
type readFileRequest struct {
	FilePath  string `json:"file_path" jsonschema:"description=The path of the file to read, relative to the base directory."`
	StartLine *int   `json:"start_line,omitempty" jsonschema:"description=The 1-based line number to start reading from."`
	NumLines  *int   `json:"num_lines,omitempty" jsonschema:"description=The maximum number of lines to read."`
}

// readFileResponse represents the output from the read file operation.
type readFileResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"file_path"`
	Content  string `json:"content,omitempty"`
	Size     int    `json:"size"`
	Error    string `json:"error,omitempty"`
}

func (rsp *readFileResponse) fail(format string, args ...any) (*readFileResponse, error) {
	rsp.Success = false
	rsp.Error = fmt.Sprintf(format, args...)
	return rsp, nil
}

// readFile performs the read file operation.
func (f *ToolSet) readFile(_ context.Context, req readFileRequest) (*readFileResponse, error) {
	rsp := &readFileResponse{FilePath: req.FilePath}
	if req.FilePath == "" {
		return rsp.fail("file_path cannot be empty")
	}
	if req.StartLine != nil && *req.StartLine <= 0 {
		return rsp.fail("start line must be greater than 0, which is %v", *req.StartLine)
	}
	if req.NumLines != nil && *req.NumLines <= 0 {
		return rsp.fail("number of lines must be greater than 0, which is %v", *req.NumLines)
	}
	filePath, err := f.resolvePath(req.FilePath)
	if err != nil {
		return rsp.fail("%v", err)
	}
	stat, err := os.Stat(filePath)
	if err != nil {
		return rsp.fail("cannot access file '%s': %v", req.FilePath, err)
	}
	if stat.IsDir() {
		return rsp.fail("target path '%s' is a directory, not a file", req.FilePath)
	}
	if stat.Size() > f.maxFileSize {
		return rsp.fail("file size %d exceeds max file size %d", stat.Size(), f.maxFileSize)
	}
	contents, err := os.ReadFile(filePath)
	if err != nil {
		return rsp.fail("cannot read file: %v", err)
	}
	rsp.Success = true
	if req.StartLine == nil && req.NumLines == nil {
		rsp.Content = string(contents)
		rsp.Size = len(contents)
		return rsp, nil
	}

	lines := strings.Split(string(contents), "\n")
	totalLines := len(lines)
	startLine, numLines := 1, totalLines
	if req.StartLine != nil {
		startLine = *req.StartLine
	}
	if req.NumLines != nil {
		numLines = *req.NumLines
	}
	if startLine > totalLines {
		return rsp.fail("start line is out of range, start line: %d, total lines: %d", startLine, totalLines)
	}
	endLine := min(startLine+numLines-1, totalLines)
	rsp.Content = strings.Join(lines[startLine-1:endLine], "\n")
	rsp.Size = len(rsp.Content)
	return rsp, nil
}

// readFileTool returns a callable tool for reading file.
func (f *ToolSet) readFileTool() tool.CallableTool {
	return function.NewFunctionTool(
		f.readFile,
		function.WithName("read_file"),
		function.WithDescription("Reads the contents of the file at 'file_path'. "+
			"The path is relative to the base directory (e.g., 'subdir/file.txt'). "+
			"Optional 'start_line' and 'num_lines' select a range of lines. "+
			"Returns {success, content, file_path, size}, or {success: false, error} on failure."),
	)
}
