// Package pathcap implements the path capability: every filesystem-touching
// tool handler resolves its path arguments through here instead of calling
// os.Open/os.Create directly. Resolution checks a configurable set of
// allow_paths roots with an explicit read/write mode distinction.
package pathcap

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Mode distinguishes read access from write access; some sensitive names
// are blocked on write only, others on both.
type Mode int

const (
	Read Mode = iota
	Write
)

// Error codes returned by Resolve, matching the executor's error taxonomy.
const (
	CodeDeniedAllowlist = "DENIED_PATH_ALLOWLIST"
	CodeDeniedTraversal = "DENIED_PATH_TRAVERSAL"
)

// Error is the structured failure Resolve returns; callers map Code
// straight onto a ToolResult error code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// sensitiveWriteNames are blocked as path components on write regardless of
// configuration; the set is fixed and no configuration adds to or removes
// from it.
var sensitiveWriteNames = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Capability resolves candidate paths against a fixed set of allowed root
// directories. Roots are canonicalized (symlinks resolved, absolute) once
// at construction time.
type Capability struct {
	roots        []string
	blockEnvRead bool
}

// New canonicalizes each of allowPaths and returns a Capability. Returns an
// error if allowPaths is empty — an empty allow-list can never be widened
// implicitly, so it is rejected outright rather than silently denying
// everything.
func New(allowPaths []string, blockEnvRead bool) (*Capability, error) {
	if len(allowPaths) == 0 {
		return nil, fmt.Errorf("pathcap: allow_paths must not be empty")
	}
	roots := make([]string, 0, len(allowPaths))
	for _, p := range allowPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("pathcap: resolve allow_paths entry %q: %w", p, err)
		}
		canon, err := canonicalizeExisting(abs)
		if err != nil {
			// Root may not exist yet (e.g. a configured-but-unused scratch
			// dir); fall back to the absolute, non-symlink-resolved form.
			canon = abs
		}
		roots = append(roots, canon)
	}
	return &Capability{roots: roots, blockEnvRead: blockEnvRead}, nil
}

// Resolve canonicalizes input under the capability's allowed roots for the
// given mode, rejecting absolute inputs, ".." traversal, symlink escapes,
// and hardcoded sensitive names. Returns the canonical path on success.
func (c *Capability) Resolve(input string, mode Mode) (string, error) {
	if input == "" {
		return "", &Error{Code: CodeDeniedAllowlist, Message: "path must not be empty"}
	}
	if filepath.IsAbs(input) {
		return "", &Error{Code: CodeDeniedAllowlist, Message: "absolute paths are not allowed"}
	}
	for _, seg := range strings.Split(filepath.ToSlash(input), "/") {
		if seg == ".." {
			return "", &Error{Code: CodeDeniedTraversal, Message: "path traversal (\"..\") is not allowed"}
		}
	}

	var lastErr error
	for _, root := range c.roots {
		joined := filepath.Join(root, input)

		resolved, err := resolveExisting(joined)
		if err != nil {
			lastErr = err
			continue
		}
		if !pathHasPrefix(resolved, root) {
			lastErr = fmt.Errorf("escapes root %s", root)
			continue
		}
		if name := sensitiveComponent(resolved, root, mode, c.blockEnvRead); name != "" {
			log.Printf("[PathCap] denied access to sensitive path component %q", name)
			return "", &Error{Code: CodeDeniedAllowlist, Message: fmt.Sprintf("access to %q is not permitted", name)}
		}
		return resolved, nil
	}

	log.Printf("[PathCap] denied %q: %v", input, lastErr)
	return "", &Error{Code: CodeDeniedAllowlist, Message: "path is outside all allowed directories"}
}

// pathHasPrefix checks path is root itself or a descendant of root,
// comparing case-insensitively on case-insensitive filesystems (Windows,
// and Darwin by default).
func pathHasPrefix(path, root string) bool {
	p, r := path, root
	if caseInsensitiveFS() {
		p = strings.ToLower(p)
		r = strings.ToLower(r)
	}
	if p == r {
		return true
	}
	return strings.HasPrefix(p, r+string(filepath.Separator))
}

func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// sensitiveComponent returns the blocked path component name if any segment
// of resolved below root is hardcoded-sensitive for the given mode, else "".
// Only the portion under the matched root is examined: a root that itself
// lives under a dot-directory (say ~/.config/assistant) must not poison
// every path beneath it.
func sensitiveComponent(resolved, root string, mode Mode, blockEnvRead bool) string {
	rel := strings.TrimPrefix(resolved, root)
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if seg == "" {
			continue
		}
		if mode == Write {
			if sensitiveWriteNames[seg] {
				return seg
			}
			if strings.HasPrefix(seg, ".") {
				return seg
			}
		}
		if seg == ".env" {
			if mode == Write || blockEnvRead {
				return seg
			}
		}
	}
	return ""
}

// resolveExisting resolves symlinks along path. If path itself does not
// exist (a not-yet-created write target), it resolves the nearest existing
// ancestor directory and rejoins the remaining, not-yet-existing suffix,
// so the containment check still runs against real directories.
func resolveExisting(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	for {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return filepath.Join(resolved, base), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing ancestor for %q", path)
		}
		base = filepath.Join(filepath.Base(dir), base)
		dir = parent
	}
}

func canonicalizeExisting(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// Roots returns the capability's canonical allowed root directories, for
// diagnostics and for the executor's confirmation/audit logging.
func (c *Capability) Roots() []string {
	out := make([]string, len(c.roots))
	copy(out, c.roots)
	return out
}
