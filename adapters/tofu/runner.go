// Package tofu implements the plan/price and apply providers on top of the
// OpenTofu and Infracost command line tools, plus an offline provider that
// reads their precomputed JSON output from disk.
package tofu

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"iac-pipeline/internal/logging"
)

// Runner executes one external command in a directory and returns its stdout
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	// Timeout bounds each command; zero means no per-command limit
	Timeout time.Duration

	// Env is appended to the inherited environment
	Env []string
}

// Run executes name with args in dir
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	logging.Named("exec").Debug("running command",
		zap.String("dir", dir),
		zap.String("cmd", name+" "+strings.Join(args, " ")))

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s failed: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}

	logging.Named("exec").Debug("command finished",
		zap.String("cmd", name),
		zap.Duration("elapsed", time.Since(start)))

	return stdout.Bytes(), nil
}
