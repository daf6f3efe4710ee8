package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/localcmd/assistant/internal/pathcap"
	"github.com/localcmd/assistant/internal/tool"
)

const (
	maxPatchFileSize = 5 << 20 // patch_file size limit
)

// ── move_file ──

type MoveFileTool struct{}

func NewMoveFileTool() *MoveFileTool { return &MoveFileTool{} }

func (t *MoveFileTool) Name() string { return "move_file" }
func (t *MoveFileTool) Description() string {
	return "Move or rename a file or directory. Refuses to overwrite an existing destination."
}

func (t *MoveFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "source", Type: "string", Description: "source path", Required: true},
		tool.SchemaParam{Name: "destination", Type: "string", Description: "destination path", Required: true},
	)
}

func (t *MoveFileTool) Init(_ context.Context) error { return nil }
func (t *MoveFileTool) Close() error                 { return nil }

type moveFileArgs struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

func (t *MoveFileTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a moveFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Source) == "" || strings.TrimSpace(a.Destination) == "" {
		return tool.Err(tool.CodeValidationError, "source and destination must not be empty"), nil
	}

	srcPath, err := ectx.Paths.Resolve(a.Source, pathcap.Write)
	if err != nil {
		return resultFromPathError(err), nil
	}
	dstPath, err := ectx.Paths.Resolve(a.Destination, pathcap.Write)
	if err != nil {
		return resultFromPathError(err), nil
	}

	for _, root := range ectx.Paths.Roots() {
		if srcPath == root {
			return tool.Err(tool.CodeValidationError, "refusing to move an allowed root directory itself"), nil
		}
	}

	if _, err := os.Stat(srcPath); err != nil {
		if os.IsNotExist(err) {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("source does not exist: %s", a.Source)), nil
		}
		return tool.Err(tool.CodeExecError, fmt.Sprintf("cannot access source: %v", err)), nil
	}
	if _, err := os.Stat(dstPath); err == nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("destination already exists: %s", a.Destination)), nil
	}

	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("create destination directory failed: %v", err)), nil
	}

	if err := os.Rename(srcPath, dstPath); err != nil {
		if err2 := crossDeviceMove(srcPath, dstPath); err2 != nil {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("move failed: %v", err2)), nil
		}
	}

	return tool.Ok(fmt.Sprintf("moved %s -> %s", a.Source, a.Destination)), nil
}

// crossDeviceMove copies src to dst (file or directory), then removes src.
// Used as a fallback when os.Rename fails across filesystems.
func crossDeviceMove(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if err := copyDir(src, dst); err != nil {
			os.RemoveAll(dst)
			return err
		}
	} else {
		if err := copyFile(src, dst); err != nil {
			os.Remove(dst)
			return err
		}
	}
	return os.RemoveAll(src)
}

func copyFile(src, dst string) error {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()

	info, err := sf.Stat()
	if err != nil {
		return err
	}

	df, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, info.Mode())
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(df, sf)
	closeErr := df.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		s := filepath.Join(src, entry.Name())
		d := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(s, d); err != nil {
				return err
			}
		} else {
			if err := copyFile(s, d); err != nil {
				return err
			}
		}
	}
	return nil
}

// ── delete_file ──

type DeleteFileTool struct{}

func NewDeleteFileTool() *DeleteFileTool { return &DeleteFileTool{} }

func (t *DeleteFileTool) Name() string { return "delete_file" }
func (t *DeleteFileTool) Description() string {
	return "Delete a file or directory. Requires confirm=true. recursive=true allows deleting a non-empty directory."
}

func (t *DeleteFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "path to delete", Required: true},
		tool.SchemaParam{Name: "confirm", Type: "boolean", Description: "must be true to execute the delete", Required: true},
		tool.SchemaParam{Name: "recursive", Type: "boolean", Description: "recursively delete a non-empty directory", Required: false},
	)
}

func (t *DeleteFileTool) Init(_ context.Context) error { return nil }
func (t *DeleteFileTool) Close() error                 { return nil }

type deleteFileArgs struct {
	Path      string `json:"path"`
	Confirm   bool   `json:"confirm"`
	Recursive bool   `json:"recursive"`
}

// Execute assumes the executor has already enforced the confirmation gate
// before dispatch; Confirm is re-checked here, never relied on as the
// primary gate.
func (t *DeleteFileTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a deleteFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return tool.Err(tool.CodeValidationError, "path must not be empty"), nil
	}
	if !a.Confirm {
		return tool.Err(tool.CodeConfirmationRequired, "delete requires confirm=true"), nil
	}

	resolved, err := ectx.Paths.Resolve(a.Path, pathcap.Write)
	if err != nil {
		return resultFromPathError(err), nil
	}

	for _, root := range ectx.Paths.Roots() {
		if resolved == root {
			return tool.Err(tool.CodeValidationError, "refusing to delete an allowed root directory itself"), nil
		}
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("path does not exist: %s", a.Path)), nil
		}
		return tool.Err(tool.CodeExecError, fmt.Sprintf("cannot access path: %v", err)), nil
	}

	if info.IsDir() && !a.Recursive {
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("read directory failed: %v", err)), nil
		}
		if len(entries) > 0 {
			return tool.Err(tool.CodeValidationError, "directory is not empty; pass recursive=true to delete it"), nil
		}
	}

	if a.Recursive {
		if err := os.RemoveAll(resolved); err != nil {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("delete failed: %v", err)), nil
		}
	} else {
		if err := os.Remove(resolved); err != nil {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("delete failed: %v", err)), nil
		}
	}

	return tool.Ok(fmt.Sprintf("deleted %s", a.Path)), nil
}

// ── patch_file ──

type PatchFileTool struct{}

func NewPatchFileTool() *PatchFileTool { return &PatchFileTool{} }

func (t *PatchFileTool) Name() string { return "patch_file" }
func (t *PatchFileTool) Description() string {
	return "Replace a line range in a file. Supports an optional expected_content optimistic-lock check and context-based relocation if the line numbers have drifted."
}

func (t *PatchFileTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "path", Type: "string", Description: "file path", Required: true},
		tool.SchemaParam{Name: "start_line", Type: "integer", Description: "starting line number (1-indexed, inclusive)", Required: true},
		tool.SchemaParam{Name: "end_line", Type: "integer", Description: "ending line number (inclusive)", Required: true},
		tool.SchemaParam{Name: "content", Type: "string", Description: "replacement content; empty string deletes the range", Required: true},
		tool.SchemaParam{Name: "expected_content", Type: "string", Description: "original content expected at this range; rejected if it doesn't match", Required: false},
		tool.SchemaParam{Name: "context_before", Type: "string", Description: "1-3 lines preceding the target block, used if expected_content doesn't match", Required: false},
		tool.SchemaParam{Name: "context_after", Type: "string", Description: "1-3 lines following the target block, used if expected_content doesn't match", Required: false},
	)
}

func (t *PatchFileTool) Init(_ context.Context) error { return nil }
func (t *PatchFileTool) Close() error                 { return nil }

type patchFileArgs struct {
	Path            string `json:"path"`
	StartLine       int    `json:"start_line"`
	EndLine         int    `json:"end_line"`
	Content         string `json:"content"`
	ExpectedContent string `json:"expected_content"`
	ContextBefore   string `json:"context_before,omitempty"`
	ContextAfter    string `json:"context_after,omitempty"`
}

func (t *PatchFileTool) Execute(_ context.Context, args json.RawMessage, ectx *tool.ExecutorContext) (tool.ToolResult, error) {
	var a patchFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	if strings.TrimSpace(a.Path) == "" {
		return tool.Err(tool.CodeValidationError, "path must not be empty"), nil
	}
	if a.StartLine < 1 {
		return tool.Err(tool.CodeValidationError, "start_line must be >= 1"), nil
	}
	if a.EndLine < a.StartLine {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("end_line (%d) must be >= start_line (%d)", a.EndLine, a.StartLine)), nil
	}

	resolved, err := ectx.Paths.Resolve(a.Path, pathcap.Write)
	if err != nil {
		return resultFromPathError(err), nil
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return tool.Err(tool.CodeExecError, fmt.Sprintf("file does not exist: %s", a.Path)), nil
		}
		return tool.Err(tool.CodeExecError, fmt.Sprintf("open failed: %v", err)), nil
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return tool.Err(tool.CodeExecError, fmt.Sprintf("stat failed: %v", err)), nil
	}
	if info.IsDir() {
		f.Close()
		return tool.Err(tool.CodeValidationError, "path is a directory; patch_file only supports files"), nil
	}
	if info.Size() > maxPatchFileSize {
		f.Close()
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("file too large (%d bytes), patch_file limit is %d bytes; use write_file instead", info.Size(), maxPatchFileSize)), nil
	}

	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("read failed: %v", err)), nil
	}

	lines := splitLines(string(data))
	totalLines := len(lines)

	if a.EndLine > totalLines {
		return tool.Err(tool.CodeValidationError, fmt.Sprintf("end_line %d exceeds the file's %d lines; re-read the file first", a.EndLine, totalLines)), nil
	}

	if a.ExpectedContent != "" {
		actual := strings.Join(lines[a.StartLine-1:a.EndLine], "")
		normalize := func(s string) string { return strings.ReplaceAll(s, "\r\n", "\n") }

		if normalize(actual) != normalize(a.ExpectedContent) {
			if matchStage2(actual, a.ExpectedContent) {
				log.Printf("[patch_file] whitespace-normalized match: %s L%d-%d", a.Path, a.StartLine, a.EndLine)
			} else if a.ContextBefore != "" || a.ContextAfter != "" {
				expectedLen := a.EndLine - a.StartLine + 1
				newStart, newEnd, locErr := locateByContext(lines, expectedLen, a.ContextBefore, a.ContextAfter)
				if locErr != nil {
					return tool.Err(tool.CodeValidationError, fmt.Sprintf("content mismatch, context relocation also failed: %v", locErr)), nil
				}
				log.Printf("[patch_file] context-located match: %s L%d-%d -> L%d-%d", a.Path, a.StartLine, a.EndLine, newStart, newEnd)
				a.StartLine = newStart
				a.EndLine = newEnd
			} else {
				return tool.Err(tool.CodeValidationError, "content mismatch (tried exact and whitespace-normalized matching); re-read the file or supply context_before/context_after"), nil
			}
		}
	}

	var newLines []string
	newLines = append(newLines, lines[:a.StartLine-1]...)
	if a.Content != "" {
		newLines = append(newLines, splitLines(a.Content)...)
	}
	newLines = append(newLines, lines[a.EndLine:]...)

	if err := os.WriteFile(resolved, []byte(strings.Join(newLines, "")), info.Mode()); err != nil {
		return tool.Err(tool.CodeExecError, fmt.Sprintf("write failed: %v", err)), nil
	}

	oldCount := a.EndLine - a.StartLine + 1
	newCount := len(splitLines(a.Content))
	return tool.Ok(fmt.Sprintf("patched %s lines %d-%d (%d lines -> %d lines)", a.Path, a.StartLine, a.EndLine, oldCount, newCount)), nil
}

// splitLines splits text into segments preserving line endings. Each
// element includes the trailing '\n' (if present), except possibly the
// last.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// splitNormalized normalizes line endings and splits into lines, without
// the trailing newline. Empty lines are preserved.
func splitNormalized(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// matchStage2 compares actual and expected content with whitespace
// normalization: same line count, each line TrimSpace-equal.
func matchStage2(actual, expected string) bool {
	aLines := splitNormalized(actual)
	eLines := splitNormalized(expected)
	if len(aLines) != len(eLines) {
		return false
	}
	for i := range aLines {
		if strings.TrimSpace(aLines[i]) != strings.TrimSpace(eLines[i]) {
			return false
		}
	}
	return true
}

// nonEmptyTrimmed splits text into non-empty trimmed lines.
func nonEmptyTrimmed(s string) []string {
	var result []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			result = append(result, t)
		}
	}
	return result
}

// matchContext checks whether lines starting at position start match ctx
// (TrimSpace comparison).
func matchContext(lines []string, start int, ctx []string) bool {
	if len(ctx) == 0 {
		return true
	}
	if start < 0 || start+len(ctx) > len(lines) {
		return false
	}
	for i, c := range ctx {
		if strings.TrimSpace(lines[start+i]) != c {
			return false
		}
	}
	return true
}

// locateByContext searches for a unique position where context_before and
// context_after both match, returning the new 1-indexed line range.
func locateByContext(lines []string, expectedLen int, ctxBefore, ctxAfter string) (startLine, endLine int, err error) {
	if expectedLen < 1 {
		return 0, 0, fmt.Errorf("expectedLen must be >= 1, got %d", expectedLen)
	}
	beforeLines := nonEmptyTrimmed(ctxBefore)
	afterLines := nonEmptyTrimmed(ctxAfter)
	if len(beforeLines) == 0 && len(afterLines) == 0 {
		return 0, 0, fmt.Errorf("context_before and context_after are both empty")
	}

	var candidates []int
	for i := len(beforeLines); i <= len(lines)-expectedLen-len(afterLines); i++ {
		if matchContext(lines, i-len(beforeLines), beforeLines) &&
			matchContext(lines, i+expectedLen, afterLines) {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 0:
		return 0, 0, fmt.Errorf("no position matched the supplied context")
	case 1:
		s := candidates[0] + 1
		return s, s + expectedLen - 1, nil
	default:
		return 0, 0, fmt.Errorf("context matched %d positions (ambiguous); supply more context_before/context_after", len(candidates))
	}
}
