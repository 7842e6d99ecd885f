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
	"io/fs"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/function"
)

// searchFilesRequest represents the input for the search files operation.
type searchFilesRequest struct {
	Directory string `json:"directory" jsonschema:"description=The directory to search, relative to the base directory."`
	Pattern   string `json:"pattern,omitempty" jsonschema:"description=Optional file name wildcard such as '*.go' or 'main?.ts'."`
}

// searchFilesResponse represents the output from the search files operation.
type searchFilesResponse struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Count   int      `json:"count"`
	Error   string   `json:"error,omitempty"`
}

// searchFiles lists the files under the directory whose base name matches the
// pattern, case-insensitively. Count is the total before truncation.
func (f *ToolSet) searchFiles(_ context.Context, req searchFilesRequest) (*searchFilesResponse, error) {
	rsp := &searchFilesResponse{Files: []string{}}
	fail := func(format string, args ...any) (*searchFilesResponse, error) {
		rsp.Error = fmt.Sprintf(format, args...)
		return rsp, nil
	}
	pattern := strings.ToLower(req.Pattern)
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return fail("invalid pattern '%s'", req.Pattern)
	}
	root, err := f.resolvePath(req.Directory)
	if err != nil {
		return fail("%v", err)
	}
	stat, err := os.Stat(root)
	if err != nil {
		return fail("cannot access directory '%s': %v", req.Directory, err)
	}
	if !stat.IsDir() {
		return fail("target path '%s' is a file, not a directory", req.Directory)
	}

	err = walkFiles(root, func(path string, d fs.DirEntry) error {
		if pattern != "" {
			ok, err := doublestar.Match(pattern, strings.ToLower(d.Name()))
			if err != nil || !ok {
				return nil
			}
		}
		rsp.Count++
		if len(rsp.Files) < f.maxSearchResults {
			rsp.Files = append(rsp.Files, f.relative(path))
		}
		return nil
	})
	if err != nil {
		return fail("searching '%s': %v", req.Directory, err)
	}
	rsp.Success = true
	return rsp, nil
}

// searchFilesTool returns a callable tool for searching files.
func (f *ToolSet) searchFilesTool() tool.CallableTool {
	return function.NewFunctionTool(
		f.searchFiles,
		function.WithName("search_files"),
		function.WithDescription("Searches 'directory' recursively for files whose name matches the optional "+
			"wildcard 'pattern' ('*' matches any run of characters, '?' a single character; case-insensitive). "+
			fmt.Sprintf("Hidden directories and node_modules are skipped. At most %d paths are listed; ", f.maxSearchResults)+
			"'count' reports the total number of matches."),
	)
}
