//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package file provides the read-only file tools the runner node binds:
// read_file, search_files and grep_code. All paths resolve under a base
// directory. Every tool reports failure inside its result
// ({"success": false, "error": ...}) instead of returning an error.
package file

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"trpc.group/trpc-go/trpc-ctxagent-go/tool"
)

const (
	// defaultBaseDir is the default base directory for file operations.
	defaultBaseDir = "."
	// defaultMaxFileSize is the default maximum file size to read, which is 1MB.
	defaultMaxFileSize = 1024 * 1024
	// defaultMaxSearchResults caps the files listed by search_files.
	defaultMaxSearchResults = 50
	// defaultMaxGrepResults caps the lines returned by grep_code.
	defaultMaxGrepResults = 100
)

// textExtensions are the extensions grep_code treats as text. Files without
// an extension are searched too.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".json": true, ".xml": true, ".html": true, ".css": true, ".vue": true,
	".py": true, ".java": true, ".cpp": true, ".c": true, ".go": true, ".rs": true,
	".php": true, ".rb": true, ".swift": true, ".kt": true, ".sql": true,
	".yaml": true, ".yml": true, ".toml": true, ".sh": true,
}

// Option is a functional option for configuring the file tool set.
type Option func(*ToolSet)

// WithBaseDir sets the base directory for file operations, default is the current directory.
func WithBaseDir(baseDir string) Option {
	return func(f *ToolSet) {
		f.baseDir = baseDir
	}
}

// WithMaxFileSize sets the maximum file size to read, default is 1MB.
func WithMaxFileSize(s int64) Option {
	return func(f *ToolSet) {
		f.maxFileSize = s
	}
}

// WithMaxSearchResults caps the number of files search_files lists, default is 50.
func WithMaxSearchResults(n int) Option {
	return func(f *ToolSet) {
		f.maxSearchResults = n
	}
}

// WithMaxGrepResults caps the number of lines grep_code returns, default is 100.
func WithMaxGrepResults(n int) Option {
	return func(f *ToolSet) {
		f.maxGrepResults = n
	}
}

// ToolSet bundles the file tools sharing one base directory.
type ToolSet struct {
	baseDir          string
	maxFileSize      int64
	maxSearchResults int
	maxGrepResults   int
	tools            []tool.CallableTool
}

// NewToolSet creates the file tool set with the provided options.
func NewToolSet(opts ...Option) (*ToolSet, error) {
	f := &ToolSet{
		baseDir:          defaultBaseDir,
		maxFileSize:      defaultMaxFileSize,
		maxSearchResults: defaultMaxSearchResults,
		maxGrepResults:   defaultMaxGrepResults,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.baseDir = filepath.Clean(f.baseDir)
	stat, err := os.Stat(f.baseDir)
	if err != nil {
		return nil, fmt.Errorf("base directory '%s' does not exist: %w", f.baseDir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("base directory '%s' is not a directory", f.baseDir)
	}
	f.tools = []tool.CallableTool{
		f.readFileTool(),
		f.searchFilesTool(),
		f.grepCodeTool(),
	}
	return f, nil
}

// Tools returns the callable file tools.
func (f *ToolSet) Tools() []tool.CallableTool {
	return append([]tool.CallableTool(nil), f.tools...)
}

// BaseDir returns the cleaned base directory.
func (f *ToolSet) BaseDir() string {
	return f.baseDir
}

// resolvePath validates a path to prevent directory traversal attacks,
// and resolves a relative path within the base directory.
func (f *ToolSet) resolvePath(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return "", fmt.Errorf("invalid path - absolute paths are not allowed: %s", relativePath)
	}
	for _, part := range strings.Split(filepath.ToSlash(relativePath), "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid path - '..' is not allowed: %s", relativePath)
		}
	}
	return filepath.Join(f.baseDir, relativePath), nil
}

// relative reports full as a slash separated path relative to the base directory.
func (f *ToolSet) relative(full string) string {
	rel, err := filepath.Rel(f.baseDir, full)
	if err != nil {
		return filepath.ToSlash(full)
	}
	return filepath.ToSlash(rel)
}

// walkFiles visits regular files below root, skipping hidden directories and
// node_modules. Unreadable directories are skipped silently.
func walkFiles(root string, visit func(path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return visit(path, d)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

func isTextFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == "" || textExtensions[ext]
}
