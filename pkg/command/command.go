// Package command runs the external processes rsync-ssh depends on.
package command

//go:generate mockery -name Runner

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sidkik/rsync-ssh/pkg/errors"
)

// ErrTimeout is returned when a command doesn't exit within its timeout.
var ErrTimeout = errors.New("command timed out")

// Command describes a process to run.
type Command struct {
	Name string
	Args []string

	// Timeout bounds how long the process may run. Zero means no limit.
	Timeout time.Duration
}

// Argv returns the full argument vector, including the program name.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// String renders the command the way it could be typed into a terminal.
// It's meant for logging, so arguments are only quoted when they contain
// whitespace.
func (c Command) String() string {
	var parts []string
	for _, arg := range c.Argv() {
		if strings.ContainsAny(arg, " \t\n") {
			arg = `"` + strings.Replace(arg, `"`, `\"`, -1) + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	// Output contains stdout and stderr interleaved.
	Output   string
	ExitCode int
}

// Runner runs commands. A non-zero exit code isn't an error: it's reported
// through Result.ExitCode. Errors are reserved for processes that couldn't
// be started, or that were killed because of a timeout or cancellation.
type Runner interface {
	Run(context.Context, Command) (Result, error)
}

type execRunner struct{}

// NewRunner returns a Runner that executes commands on the local machine.
func NewRunner() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, c Command) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	var output bytes.Buffer
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = &output
	cmd.Stderr = &output

	// ssh may leave children holding the output pipe open after it's
	// killed.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := Result{Output: output.String()}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if ctxErr == context.DeadlineExceeded {
			return res, ErrTimeout
		}
		return res, errors.WithContext(ctxErr, c.Name)
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}

	if err != nil {
		return res, errors.WithContext(err, "start "+c.Name)
	}
	return res, nil
}
