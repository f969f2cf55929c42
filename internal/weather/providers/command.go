package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/i474232898/weather-widget/internal/weather"
)

var errEmptyCommand = errors.New("empty command")

// ShellRunner implements weather.CommandRunner with os/exec.
type ShellRunner struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewShellRunner creates a runner; a zero timeout means no limit beyond ctx.
func NewShellRunner(timeout time.Duration, logger *slog.Logger) *ShellRunner {
	return &ShellRunner{
		timeout: timeout,
		logger:  logger.With("component", "shell-runner"),
	}
}

// Run executes req.Argv and captures its output.
func (r *ShellRunner) Run(ctx context.Context, req weather.CommandRequest) weather.CommandResult {
	result := weather.CommandResult{Tag: req.Tag, Attempt: req.Attempt, ExitCode: -1}
	if len(req.Argv) == 0 {
		result.Err = errEmptyCommand
		return result
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		result.Err = fmt.Errorf("command interrupted: %w", ctx.Err())
	case err != nil && !errors.As(err, &exitErr):
		result.Err = err
	}

	r.logger.Debug("command finished",
		"tag", req.Tag,
		"command", req.Argv[0],
		"exit_code", result.ExitCode,
		"stderr_bytes", len(result.Stderr),
	)
	return result
}
