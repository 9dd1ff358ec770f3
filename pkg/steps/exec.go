package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/systemstart/dcm2bids/pkg/api"
)

const (
	outputTailBytes = 64 << 10
	waitDelay       = 5 * time.Second
)

// runTool renders and executes one external tool. The tool runs with
// sctx.WorkDir as its working directory and inherits the environment plus
// the tool's rendered overrides. Its output is streamed to the log at
// debug level and the tail of each stream is kept for error reporting.
func runTool(ctx context.Context, stage string, tool *api.ToolConfig, sctx StepContext) ([]string, error) {
	argv, err := renderArgv(stage, tool, sctx.TemplateData)
	if err != nil {
		return nil, fmt.Errorf("building %s command: %w", stage, err)
	}

	env, err := renderEnv(stage, tool.Env, sctx.TemplateData)
	if err != nil {
		return nil, fmt.Errorf("building %s environment: %w", stage, err)
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return argv, &ExternalToolError{
			Stage:    stage,
			Argv:     argv,
			ExitCode: -1,
			Err:      fmt.Errorf("%s binary not found in PATH: %w", argv[0], err),
		}
	}

	if !filepath.IsAbs(path) {
		// relative to our cwd, not the tool's
		if path, err = filepath.Abs(path); err != nil {
			return argv, fmt.Errorf("resolving %s: %w", argv[0], err)
		}
	}

	slog.Info("running command", "stage", stage, "command", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Dir = sctx.WorkDir
	cmd.Env = append(os.Environ(), "PWD="+sctx.WorkDir)
	cmd.Env = append(cmd.Env, env...)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	stdout := &tailBuffer{limit: outputTailBytes}
	stderr := &tailBuffer{limit: outputTailBytes}
	stdoutLog := newLineLogger(stage, "stdout")
	stderrLog := newLineLogger(stage, "stderr")
	cmd.Stdout = io.MultiWriter(stdout, stdoutLog)
	cmd.Stderr = io.MultiWriter(stderr, stderrLog)

	runErr := cmd.Run()
	stdoutLog.Flush()
	stderrLog.Flush()

	if runErr == nil {
		return argv, nil
	}

	toolErr := &ExternalToolError{
		Stage:    stage,
		Argv:     argv,
		ExitCode: -1,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Err:      runErr,
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		toolErr.ExitCode = -1
		toolErr.Err = fmt.Errorf("%w: %w", ctxErr, runErr)
	}

	return argv, toolErr
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) Bytes() []byte {
	return bytes.Clone(b.buf)
}

// lineLogger emits one debug record per output line.
type lineLogger struct {
	stage  string
	stream string
	buf    bytes.Buffer
}

func newLineLogger(stage, stream string) *lineLogger {
	return &lineLogger{stage: stage, stream: stream}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.buf.Write(p)
	for {
		line, err := l.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	if l.buf.Len() > 0 {
		l.emit(l.buf.String())
		l.buf.Reset()
	}
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	slog.Debug(line, "stage", l.stage, "stream", l.stream)
}
