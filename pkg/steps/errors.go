package steps

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReportMissing is matched by a ReportError whose file does not exist.
var ErrReportMissing = errors.New("validator report missing")

const stderrTailLines = 20

// ExternalToolError reports a stage whose executable could not be started
// or exited non-zero. ExitCode is -1 when the process never produced one
// (not found, killed by a signal).
type ExternalToolError struct {
	Stage    string
	Argv     []string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Err      error
}

func (e *ExternalToolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %q", e.Stage, strings.Join(e.Argv, " "))
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " exited with code %d", e.ExitCode)
	} else {
		fmt.Fprintf(&b, " failed: %v", e.Err)
	}
	if tail := lastLines(e.Stderr, stderrTailLines); tail != "" {
		fmt.Fprintf(&b, "\nstderr: %s", tail)
	}
	return b.String()
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// ReportError reports a validator report that could not be read.
type ReportError struct {
	Path string
	Err  error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("reading validator report %s: %v", e.Path, e.Err)
}

func (e *ReportError) Unwrap() error { return e.Err }

func lastLines(data []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
