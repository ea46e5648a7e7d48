package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// goRuntime interprets Go source with yaegi. Like the REPL, declarations and
// imports from one run stay in scope for the next.
type goRuntime struct {
	interp  *interp.Interpreter
	stdio   *Stream
	cfg     Config
	stopped bool
}

func newGo(cfg Config) (Runtime, error) {
	stdio := NewStream(cfg.Stdout)
	i := interp.New(interp.Options{Stdout: stdio, Stderr: stdio})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("go init: failed to load stdlib: %w", err)
	}
	if strings.TrimSpace(cfg.Prelude) != "" {
		if _, err := i.Eval(cfg.Prelude); err != nil {
			return nil, fmt.Errorf("go prelude: %w", err)
		}
	}
	return &goRuntime{interp: i, stdio: stdio, cfg: cfg}, nil
}

func (r *goRuntime) Stdio() *Stream { return r.stdio }

func (r *goRuntime) Eval(ctx context.Context, program string) error {
	if r.stopped {
		return ErrQuit
	}
	if strings.TrimSpace(program) == "" {
		return nil
	}
	ctx, cancel := withTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if _, err := r.interp.EvalWithContext(ctx, program); err != nil {
		reportError(r.stdio, err)
		return fmt.Errorf("go eval: %w", err)
	}
	return nil
}

func (r *goRuntime) Quit() error {
	r.stopped = true
	return nil
}
