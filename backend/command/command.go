// Package command runs allow-listed programs for the command tool.
package command

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrCommandNotAllowed is returned for commands missing from the allow-list.
// An empty allow-list permits nothing.
var ErrCommandNotAllowed = errors.New("command: not in the allowed list")

// Result is the outcome of a finished command.
type Result struct {
	Command   string   `json:"command"`
	Arguments []string `json:"arguments"`
	ExitCode  int      `json:"exit_code"`
	Output    string   `json:"output"`
	Success   bool     `json:"success"`
}

// Runner executes commands by name without a shell.
type Runner struct {
	allowed map[string]bool
	dir     string
	timeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithDir sets the working directory for commands.
func WithDir(dir string) Option {
	return func(r *Runner) {
		r.dir = dir
	}
}

// WithTimeout bounds each command. Default: one minute.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// New creates a Runner permitting exactly the named commands.
func New(allowed []string, opts ...Option) *Runner {
	r := &Runner{allowed: make(map[string]bool, len(allowed)), timeout: time.Minute}
	for _, name := range allowed {
		if name != "" {
			r.allowed[name] = true
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Allowed reports whether name may run.
func (r *Runner) Allowed(name string) bool {
	return r.allowed[name]
}

// Run executes name with args and returns its combined output. A non-zero
// exit is reported in the Result, not as an error.
func (r *Runner) Run(ctx context.Context, name string, args []string) (*Result, error) {
	if !r.Allowed(name) {
		return nil, fmt.Errorf("%w: %q", ErrCommandNotAllowed, name)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.dir
	out, err := cmd.CombinedOutput()

	if args == nil {
		args = []string{}
	}
	res := &Result{Command: name, Arguments: args, Output: string(out)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		res.ExitCode = exitErr.ExitCode()
	case ctx.Err() != nil:
		return nil, fmt.Errorf("command: %s: %w", name, ctx.Err())
	default:
		return nil, fmt.Errorf("command: %s: %w", name, err)
	}
	res.Success = res.ExitCode == 0
	return res, nil
}
