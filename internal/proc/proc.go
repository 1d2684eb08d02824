// Package proc runs external tools synchronously and resolves their binaries.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ErrBinaryNotFound is returned when a required external tool is not installed.
var ErrBinaryNotFound = errors.New("binary not found")

// stderrTail caps how much captured stderr is attached to an error.
const stderrTail = 4096

// Runner executes an external command and waits for it to finish.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands through os/exec. When Verbose is set, child output
// is streamed to Stdout/Stderr; otherwise stderr is captured and its tail is
// attached to the returned error.
type ExecRunner struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *zap.Logger
}

func NewExecRunner(verbose bool, logger *zap.Logger) *ExecRunner {
	return &ExecRunner{
		Verbose: verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Logger:  logger,
	}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	r.logger().Debug("exec", zap.String("cmd", FormatCommand(name, args...)))

	var stderr bytes.Buffer
	if r.Verbose {
		cmd.Stdout = r.Stdout
		cmd.Stderr = r.Stderr
	} else {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		return &CommandError{Name: name, Args: args, Stderr: tail(stderr.String()), Err: err}
	}
	return nil
}

func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	r.logger().Debug("exec", zap.String("cmd", FormatCommand(name, args...)))

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, &CommandError{Name: name, Args: args, Stderr: tail(stderr.String()), Err: err}
	}
	return out, nil
}

func (r *ExecRunner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// CommandError describes a failed external command. Unwrap exposes the
// original *exec.ExitError (or context error) unchanged.
type CommandError struct {
	Name   string
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed: %v", FormatCommand(e.Name, e.Args...), e.Err)
	if e.Stderr != "" {
		msg += "\nstderr: " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// Require resolves name on PATH (or as a path) and fails with
// ErrBinaryNotFound when it is missing.
func Require(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%v)", ErrBinaryNotFound, name, err)
	}
	return path, nil
}

// FormatCommand renders a command line for logs.
func FormatCommand(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
