package console

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"demo-console/runtime"
)

type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// RunResult describes a finished run.
type RunResult struct {
	Output   string        `json:"output"`
	Wrote    bool          `json:"wrote"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Controller turns a submit into a runtime evaluation of the editor text.
type Controller struct {
	editor *Editor
	sink   *Sink
	rt     runtime.Runtime
	state  atomic.Int32
	log    *zap.Logger
}

func newController(editor *Editor, sink *Sink, rt runtime.Runtime, log *zap.Logger) *Controller {
	return &Controller{editor: editor, sink: sink, rt: rt, log: log}
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run evaluates the current editor text. Unless keepHistory is set the
// terminal is cleared first. A run that writes nothing still leaves the
// terminal on a fresh line: a single newline is appended after Eval returns.
// Evaluation errors reach the terminal through the runtime's own stream and
// are not treated specially here.
func (c *Controller) Run(ctx context.Context, keepHistory bool) RunResult {
	c.state.Store(int32(Running))
	defer c.state.Store(int32(Idle))

	if keepHistory {
		c.sink.ResetWritten()
	} else {
		c.sink.Clear()
	}

	program := c.editor.Text()
	start := time.Now()
	err := c.rt.Eval(ctx, program)
	elapsed := time.Since(start)

	wrote := c.sink.Written()
	if !wrote {
		c.sink.Append("\n")
	}

	res := RunResult{Output: c.sink.Text(), Wrote: wrote, Duration: elapsed}
	if err != nil {
		res.Error = err.Error()
		c.log.Debug("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		c.log.Debug("run finished", zap.Duration("elapsed", elapsed), zap.Bool("wrote", wrote))
	}
	return res
}
