//go:build windows

package cmdcap

import "os/exec"

// signalFromExitError: Windows processes do not carry POSIX signal
// information on exec.ExitError, so a non-zero exit there is always
// reported as EXEC_ERROR rather than SIGNAL.
func signalFromExitError(exitErr *exec.ExitError) (int, bool) {
	return 0, false
}
