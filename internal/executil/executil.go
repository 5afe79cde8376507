// internal/executil/executil.go
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Command is a single external process invocation. Args are passed to the
// process as-is; nothing goes through a shell.
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration // zero means no deadline
	Capture bool          // collect stdout/stderr into the Result
	Dir     string
	Env     []string  // KEY=VALUE, appended to the host environment
	Stdout  io.Writer // stream stdout here instead of capturing it
}

// String renders the command the way it is logged.
func (c Command) String() string {
	return Quote(c.Name, c.Args)
}

// Result is what a finished process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes commands. A nil Result with a nil error means the command
// was only logged (dry-run).
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Error is returned when a command exits non-zero, times out or cannot be
// started.
type Error struct {
	Command  string
	ExitCode int // -1 when the process never reported one
	TimedOut bool
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	var msg string
	switch {
	case e.TimedOut:
		msg = fmt.Sprintf("command timed out: %s", e.Command)
	case e.ExitCode >= 0:
		msg = fmt.Sprintf("command failed (exit=%d): %s", e.ExitCode, e.Command)
	default:
		msg = fmt.Sprintf("failed to run command: %s", e.Command)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// waitDelay bounds how long Run waits for output pipes once the process
// has been killed.
const waitDelay = 5 * time.Second

// Exec runs commands on the host.
type Exec struct {
	DryRun bool
	Log    *logrus.Entry

	// Where uncaptured output goes. Defaults to the process stdout/stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns a host runner logging through log.
func NewExec(log *logrus.Entry, dryRun bool) *Exec {
	return &Exec{DryRun: dryRun, Log: log}
}

func (e *Exec) Run(ctx context.Context, c Command) (*Result, error) {
	fullCmd := c.String()
	log := e.logger()
	if c.Dir != "" {
		log = log.WithField("dir", c.Dir)
	}
	if c.Timeout > 0 {
		log = log.WithField("timeout", c.Timeout)
	}
	log.Infof("Running :: %s", fullCmd)

	if e.DryRun {
		return nil, nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	// children left behind (docker run helpers, sh -c) must not keep the
	// pipes open past the deadline
	killProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	cmd.Env = append(os.Environ(), c.Env...)

	var stdout, stderr bytes.Buffer
	switch {
	case c.Stdout != nil:
		cmd.Stdout = c.Stdout
	case c.Capture:
		cmd.Stdout = &stdout
	default:
		cmd.Stdout = e.stdout()
	}
	if c.Capture {
		cmd.Stderr = &stderr
	} else {
		cmd.Stderr = e.stderr()
	}

	err := cmd.Run()
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	runErr := &Error{Command: fullCmd, ExitCode: -1, Stderr: res.Stderr, Err: err}
	// a killed process also reports an ExitError, so check the deadline first
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		runErr.TimedOut = true
		runErr.Err = context.DeadlineExceeded
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			runErr.ExitCode = exitErr.ExitCode()
			runErr.Err = nil
		}
	}
	res.ExitCode = runErr.ExitCode
	return res, runErr
}

func (e *Exec) logger() *logrus.Entry {
	if e.Log != nil {
		return e.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (e *Exec) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Exec) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

// Quote returns a printable, shell-safe representation of name and args.
func Quote(name string, args []string) string {
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, quoteArg(name))
	for _, a := range args {
		quoted = append(quoted, quoteArg(a))
	}
	return strings.Join(quoted, " ")
}

func quoteArg(a string) string {
	if a == "" {
		return `""`
	}
	if strings.ContainsAny(a, " \t\n\"'`$\\*?[]{}()<>|&;") {
		return "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return a
}
