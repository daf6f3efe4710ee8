package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/permissions"
	"github.com/localcmd/assistant/internal/tool"
)

const (
	maxWriteSize = 1 << 20 // write_file content cap, rejected before any filesystem access
	maxListItems = 100
)

// ── read_file ──

type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Name() string        { return "read_file" }
func (t *ReadFileTool) Description() string { return "Read the contents of a file." }

func (t *ReadFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to an allowed directory", Required: true},
	)
}

func (t *ReadFileTool) Init(_ context.Context) error { return nil }
func (t *ReadFileTool) Close() error                 { return nil }

type filePathArgs struct {
	Path string `json:"path"`
}

func (t *ReadFileTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a filePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	resolved, err := ectx.Paths.Resolve(a.Path, pathcap.Read)
	if err != nil {
		return resultFromPathError(err), nil
	}

	// Open first, then stat, to avoid a TOCTOU race between a Stat call and
	// a subsequent ReadFile where the underlying file could be replaced.
	f, err := os.Open(resolved)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("file does not exist: %s", a.Path)), nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("stat failed: %v", err)), nil
	}
	if info.IsDir() {
		return tool.Err(tool.CodeValidationError, "path is a directory; use list_files instead"), nil
	}

	maxRead := int64(ectx.Limits.MaxReadSize)
	if maxRead <= 0 {
		maxRead = permissions.DefaultMaxReadSize
	}

	data, err := io.ReadAll(io.LimitReader(f, maxRead))
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("read failed: %v", err)), nil
	}

	return tool.Ok(map[string]any{
		"content":   string(data),
		"truncated": info.Size() > maxRead,
	}), nil
}

// ── write_file ──

type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool { return &WriteFileTool{} }

func (t *WriteFileTool) Name() string        { return "write_file" }
func (t *WriteFileTool) Description() string { return "Write content to a file, creating or overwriting it." }

func (t *WriteFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path, relative to an allowed directory", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Description: "content to write", Required: true},
	)
}

func (t *WriteFileTool) Init(_ context.Context) error { return nil }
func (t *WriteFileTool) Close() error                 { return nil }

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

func (t *WriteFileTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a writeFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	if len(a.Content) > maxWriteSize {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("content too large (%d bytes), max %d bytes", len(a.Content), maxWriteSize)), nil
	}

	resolved, err := ectx.Paths.Resolve(a.Path, pathcap.Write)
	if err != nil {
		return resultFromPathError(err), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("create directory failed: %v", err)), nil
	}
	if err := os.WriteFile(resolved, []byte(a.Content), 0o644); err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("write failed: %v", err)), nil
	}

	return tool.Ok(fmt.Sprintf("wrote %s (%d bytes)", a.Path, len(a.Content))), nil
}

// ── list_files ──

type ListFilesTool struct{}

func NewListFilesTool() *ListFilesTool { return &ListFilesTool{} }

func (t *ListFilesTool) Name() string        { return "list_files" }
func (t *ListFilesTool) Description() string { return "List files and subdirectories under a directory." }

func (t *ListFilesTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "directory path; defaults to \".\"", Required: false},
	)
}

func (t *ListFilesTool) Init(_ context.Context) error { return nil }
func (t *ListFilesTool) Close() error                 { return nil }

type listEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
	Size  int64  `json:"size,omitempty"`
}

func (t *ListFilesTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a filePathArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
		}
	}
	if a.Path == "" {
		a.Path = "."
	}

	resolved, err := ectx.Paths.Resolve(a.Path, pathcap.Read)
	if err != nil {
		return resultFromPathError(err), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("directory does not exist: %s", a.Path)), nil
	}

	out := make([]listEntry, 0, len(entries))
	truncated := false
	for i, entry := range entries {
		if i >= maxListItems {
			truncated = true
			break
		}
		info, _ := entry.Info()
		le := listEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if info != nil && !entry.IsDir() {
			le.Size = info.Size()
		}
		out = append(out, le)
	}

	result := map[string]any{"entries": out, "total": len(entries)}
	if truncated {
		result["truncated"] = true
	}
	return tool.Ok(result), nil
}

// resultFromPathError maps a *pathcap.Error into the matching ToolResult
// error code.
func resultFromPathError(err error) tool.ToolResult {
	if perr, ok := err.(*pathcap.Error); ok {
		return tool.Err(perr.Code, perr.Message)
	}
	return tool.Err(tool.CodeExecError, err.Error())
}

// skipDirs contains directory names to skip during recursive operations
// like grep_files.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, ".idea": true, ".vscode": true,
	"vendor": true, "__pycache__": true, ".cache": true,
}
