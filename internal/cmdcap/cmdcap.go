// Package cmdcap implements the command capability: the only way a tool
// handler may spawn a subprocess. Commands are spawned from an argv
// array, never through "sh -c"/"cmd /c" — a shell string is itself an
// injection surface a blocklist can only ever approximate.
package cmdcap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/localcmd/assistant/internal/pathcap"
)

// Error codes returned by Run, matching the executor's error taxonomy.
const (
	CodeDeniedCommandAllowlist = "DENIED_COMMAND_ALLOWLIST"
	CodeDeniedCommandFlag      = "DENIED_COMMAND_FLAG"
	CodeTimeout                = "TIMEOUT"
	CodeSignal                 = "SIGNAL"
	CodeExecError              = "EXEC_ERROR"
)

// Error is the structured failure Run returns, both for policy violations
// and for process-level failures (timeout, signal, non-zero exit); for the
// latter Run also returns a Result carrying the captured stdout/stderr.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Result is the outcome of a process that actually ran.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Spec describes the flags one allow-listed command accepts. A nil
// AllowedFlags means the command accepts no flags at all (only positional
// arguments) — ls, cat, pwd and du all need their flags named explicitly
// here rather than defaulting to "anything goes".
//
// Subcommands, when non-nil, marks a command whose first positional token
// is a fixed sub-verb (git's "status"/"diff"/"log"/... grammar) rather than
// a path or flag; Run requires argv[0] to be a member before validating the
// rest. RawPositionals, when true, passes remaining non-flag tokens through
// literally instead of routing them through the path capability — needed
// for git, whose positional arguments are refs/commit-ish strings rather
// than filesystem paths (an explicit path argument is resolved by the
// caller and appended as its own already-canonical token).
type Spec struct {
	AllowedFlags   map[string]bool
	Subcommands    map[string]bool
	RawPositionals bool
}

// DefaultSpecs covers the read-only inspection commands the router's
// fast path routes through run_command and git_info: ls, pwd, cat, du,
// git.
func DefaultSpecs() map[string]Spec {
	return map[string]Spec{
		"ls":  {AllowedFlags: map[string]bool{"-l": true, "-a": true, "-h": true, "-R": true}},
		"pwd": {AllowedFlags: map[string]bool{}},
		"cat": {AllowedFlags: map[string]bool{}},
		"du":  {AllowedFlags: map[string]bool{"-h": true, "-s": true, "-c": true}},
		"git": {
			Subcommands: map[string]bool{
				"status": true, "diff": true, "log": true,
				"branch": true, "stash": true, "show": true,
			},
			AllowedFlags: map[string]bool{
				"--short": true, "--stat": true, "--oneline": true,
				"-a": true, "-p": true, "--name-only": true, "--name-status": true,
				"-s": true, "--numstat": true,
			},
			RawPositionals: true,
		},
	}
}

// sensitiveEnvSuffixes/Prefixes name the env vars stripped from every
// subprocess environment.
var sensitiveEnvSuffixes = []string{
	"_KEY", "_SECRET", "_TOKEN", "_PASSWORD", "_PASSWD",
	"_PASSPHRASE", "_CREDENTIALS", "_AUTH", "_DSN",
}
var sensitiveEnvPrefixes = []string{"DATABASE_URL", "REDIS_URL", "MONGO_URL"}

func filterEnv(env []string) []string {
	filtered := make([]string, 0, len(env))
	for _, e := range env {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) < 2 {
			continue
		}
		nameUpper := strings.ToUpper(parts[0])
		sensitive := false
		for _, suffix := range sensitiveEnvSuffixes {
			if strings.HasSuffix(nameUpper, suffix) {
				sensitive = true
				break
			}
		}
		if !sensitive {
			for _, prefix := range sensitiveEnvPrefixes {
				if strings.HasPrefix(nameUpper, prefix) {
					sensitive = true
					break
				}
			}
		}
		if !sensitive {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Capability runs allow-listed commands with a bounded timeout and output
// size, resolving any path-shaped argument through the path capability
// first (mode=read).
type Capability struct {
	specs          map[string]Spec
	paths          *pathcap.Capability
	baseDir        string
	timeout        time.Duration
	maxOutputBytes int
}

// New constructs a Capability. specs is typically DefaultSpecs(), narrowed
// by the caller to the commands the permissions config allows; paths is the
// capability path arguments are routed through.
func New(specs map[string]Spec, paths *pathcap.Capability, baseDir string, timeout time.Duration, maxOutputBytes int) *Capability {
	return &Capability{specs: specs, paths: paths, baseDir: baseDir, timeout: timeout, maxOutputBytes: maxOutputBytes}
}

// Run executes name with argv (never a shell string), enforcing the
// allow-list, per-command flag schema, and path-argument routing. stdin,
// if non-nil, is piped to the process.
func (c *Capability) Run(ctx context.Context, name string, argv []string, stdin []byte) (Result, error) {
	spec, ok := c.specs[name]
	if !ok {
		log.Printf("[CommandCap] denied command %q: not in allow_commands", name)
		return Result{}, &Error{Code: CodeDeniedCommandAllowlist, Message: fmt.Sprintf("command %q is not allowed", name)}
	}

	rest := argv
	resolvedArgv := make([]string, 0, len(argv))
	if spec.Subcommands != nil {
		if len(rest) == 0 || !spec.Subcommands[rest[0]] {
			var got string
			if len(rest) > 0 {
				got = rest[0]
			}
			log.Printf("[CommandCap] denied subcommand %q for command %q", got, name)
			return Result{}, &Error{Code: CodeDeniedCommandFlag, Message: fmt.Sprintf("subcommand %q is not allowed for %q", got, name)}
		}
		resolvedArgv = append(resolvedArgv, rest[0])
		rest = rest[1:]
	}

	for _, a := range rest {
		if strings.HasPrefix(a, "-") {
			if !spec.AllowedFlags[a] {
				log.Printf("[CommandCap] denied flag %q for command %q", a, name)
				return Result{}, &Error{Code: CodeDeniedCommandFlag, Message: fmt.Sprintf("flag %q is not allowed for %q", a, name)}
			}
			resolvedArgv = append(resolvedArgv, a)
			continue
		}
		if spec.RawPositionals {
			resolvedArgv = append(resolvedArgv, a)
			continue
		}
		resolved, err := c.paths.Resolve(a, pathcap.Read)
		if err != nil {
			return Result{}, err
		}
		resolvedArgv = append(resolvedArgv, resolved)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, resolvedArgv...)
	cmd.Dir = c.baseDir
	cmd.Env = filterEnv(os.Environ())
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitedWriter{buf: &stdout, limit: c.maxOutputBytes}
	cmd.Stderr = &limitedWriter{buf: &stderr, limit: c.maxOutputBytes}

	runErr := cmd.Run()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, &Error{Code: CodeTimeout, Message: fmt.Sprintf("command timed out after %v", c.timeout)}
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			if sig, signaled := signalFromExitError(exitErr); signaled {
				return Result{Stdout: stdout.String(), Stderr: stderr.String()}, &Error{Code: CodeSignal, Message: fmt.Sprintf("command terminated by signal %v", sig)}
			}
			return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitErr.ExitCode()}, &Error{Code: CodeExecError, Message: fmt.Sprintf("command exited %d: %s", exitErr.ExitCode(), stderr.String())}
		}
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, &Error{Code: CodeExecError, Message: runErr.Error()}
	}

	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: 0}, nil
}

// limitedWriter caps how many bytes it will accept into buf, silently
// dropping the rest, bounding memory during capture rather than
// truncating afterwards.
type limitedWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
