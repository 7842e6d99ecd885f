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
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
	"trpc.group/trpc-go/trpc-ctxagent-go/tool/function"
)

// grepCodeRequest represents the input for the grep code operation.
type grepCodeRequest struct {
	Pattern   string `json:"pattern" jsonschema:"description=Regular expression to search for, matched case-insensitively per line."`
	FilePath  string `json:"file_path,omitempty" jsonschema:"description=Optional single file to search, relative to the base directory."`
	Directory string `json:"directory,omitempty" jsonschema:"description=Optional directory to search recursively when file_path is empty."`
}

// grepMatch is a single matching line.
type grepMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
}

// grepCodeResponse represents the output from the grep code operation.
type grepCodeResponse struct {
	Success bool         `json:"success"`
	Results []*grepMatch `json:"results"`
	Count   int          `json:"count"`
	Error   string       `json:"error,omitempty"`
}

// grepCode searches one file, or every text file under a directory, for lines
// matching the pattern. Count is the total before truncation.
func (f *ToolSet) grepCode(_ context.Context, req grepCodeRequest) (*grepCodeResponse, error) {
	rsp := &grepCodeResponse{Results: []*grepMatch{}}
	fail := func(format string, args ...any) (*grepCodeResponse, error) {
		rsp.Error = fmt.Sprintf(format, args...)
		return rsp, nil
	}
	if req.Pattern == "" {
		return fail("pattern cannot be empty")
	}
	re, err := regexp.Compile("(?i)" + req.Pattern)
	if err != nil {
		return fail("invalid pattern '%s': %v", req.Pattern, err)
	}

	if req.FilePath != "" {
		path, err := f.resolvePath(req.FilePath)
		if err != nil {
			return fail("%v", err)
		}
		stat, err := os.Stat(path)
		if err != nil {
			return fail("cannot access file '%s': %v", req.FilePath, err)
		}
		if stat.IsDir() {
			return fail("target path '%s' is a directory, not a file", req.FilePath)
		}
		if err := f.grepFile(path, re, rsp); err != nil {
			return fail("cannot read file '%s': %v", req.FilePath, err)
		}
		rsp.Success = true
		return rsp, nil
	}

	root, err := f.resolvePath(req.Directory)
	if err != nil {
		return fail("%v", err)
	}
	err = walkFiles(root, func(path string, d fs.DirEntry) error {
		if !isTextFile(d.Name()) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > f.maxFileSize {
			return nil
		}
		// Unreadable files are skipped.
		_ = f.grepFile(path, re, rsp)
		return nil
	})
	if err != nil {
		return fail("searching '%s': %v", req.Directory, err)
	}
	rsp.Success = true
	return rsp, nil
}

func (f *ToolSet) grepFile(path string, re *regexp.Regexp, rsp *grepCodeResponse) error {
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	rel := f.relative(path)
	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), int(f.maxFileSize)+1)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := scanner.Text()
		if !re.MatchString(line) {
			continue
		}
		rsp.Count++
		if len(rsp.Results) < f.maxGrepResults {
			rsp.Results = append(rsp.Results, &grepMatch{
				File:    rel,
				Line:    lineNum,
				Content: strings.TrimSpace(line),
			})
		}
	}
	return scanner.Err()
}

// grepCodeTool returns a callable tool for searching code.
func (f *ToolSet) grepCodeTool() tool.CallableTool {
	return function.NewFunctionTool(
		f.grepCode,
		function.WithName("grep_code"),
		function.WithDescription("Searches text for a regular expression, like grep -i. "+
			"Searches 'file_path' when given, otherwise every text file under 'directory' "+
			"(the base directory when empty), skipping hidden directories and node_modules. "+
			fmt.Sprintf("Returns at most %d {file, line, content} results; 'count' reports the total.", f.maxGrepResults)),
	)
}
