// Package executiltest provides a recording executil.Runner for tests.
package executiltest

import (
	"context"
	"strings"
	"sync"

	"imagectl/internal/executil"
)

// Recorder records every command it is asked to run. Respond, when set,
// decides the outcome; otherwise every command succeeds with no output.
type Recorder struct {
	Respond func(cmd executil.Command) (*executil.Result, error)

	mu   sync.Mutex
	cmds []executil.Command
}

func (r *Recorder) Run(_ context.Context, cmd executil.Command) (*executil.Result, error) {
	r.mu.Lock()
	r.cmds = append(r.cmds, cmd)
	r.mu.Unlock()
	if r.Respond != nil {
		return r.Respond(cmd)
	}
	return &executil.Result{}, nil
}

// Commands returns the recorded commands in call order.
func (r *Recorder) Commands() []executil.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]executil.Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// Lines returns the recorded commands rendered as single lines.
func (r *Recorder) Lines() []string {
	cmds := r.Commands()
	out := make([]string, len(cmds))
	for i, c := range cmds {
		out[i] = c.String()
	}
	return out
}

// Has reports whether some recorded command line equals line.
func (r *Recorder) Has(line string) bool {
	for _, l := range r.Lines() {
		if l == line {
			return true
		}
	}
	return false
}

// Output returns a Respond func that answers every command whose line
// contains substr with stdout.
func Output(substr, stdout string) func(executil.Command) (*executil.Result, error) {
	return func(cmd executil.Command) (*executil.Result, error) {
		if strings.Contains(cmd.String(), substr) {
			return &executil.Result{Stdout: stdout}, nil
		}
		return &executil.Result{}, nil
	}
}
