package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"
)

// jsRuntime evaluates JavaScript with goja. The VM lives as long as the
// runtime, so globals defined by one run are visible to the next.
type jsRuntime struct {
	vm      *goja.Runtime
	stdio   *Stream
	cfg     Config
	stopped bool
}

func newJS(cfg Config) (Runtime, error) {
	r := &jsRuntime{
		vm:    goja.New(),
		stdio: NewStream(cfg.Stdout),
		cfg:   cfg,
	}
	if err := r.setupEnvironment(); err != nil {
		return nil, fmt.Errorf("js init: %w", err)
	}
	if strings.TrimSpace(cfg.Prelude) != "" {
		if _, err := r.vm.RunString(cfg.Prelude); err != nil {
			return nil, fmt.Errorf("js prelude: %w", err)
		}
	}
	return r, nil
}

func (r *jsRuntime) Stdio() *Stream { return r.stdio }

func (r *jsRuntime) Eval(ctx context.Context, program string) error {
	if r.stopped {
		return ErrQuit
	}
	ctx, cancel := withTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			r.vm.Interrupt("execution timeout or cancelled")
		case <-stop:
		}
	}()

	_, err := r.vm.RunString(program)
	close(stop)
	<-exited
	// An interrupt that landed after the program finished must not leak into
	// the next run.
	r.vm.ClearInterrupt()

	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			err = fmt.Errorf("execution interrupted: %v", interrupted.Value())
		}
		reportError(r.stdio, err)
		return fmt.Errorf("js eval: %w", err)
	}
	return nil
}

func (r *jsRuntime) Quit() error {
	r.stopped = true
	return nil
}

// setupEnvironment installs the io object and the print/console.log aliases.
func (r *jsRuntime) setupEnvironment() error {
	vm := r.vm

	write := func(call goja.FunctionCall) goja.Value {
		r.stdio.WriteString(joinArgs(call.Arguments, ""))
		return goja.Undefined()
	}
	writeln := func(call goja.FunctionCall) goja.Value {
		r.stdio.WriteString(joinArgs(call.Arguments, "") + "\n")
		return goja.Undefined()
	}
	writef := func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("writef requires a format argument"))
		}
		args := make([]interface{}, 0, len(call.Arguments)-1)
		for _, a := range call.Arguments[1:] {
			args = append(args, a.Export())
		}
		r.stdio.WriteString(fmt.Sprintf(call.Arguments[0].String(), args...))
		return goja.Undefined()
	}
	print := func(call goja.FunctionCall) goja.Value {
		r.stdio.WriteString(joinArgs(call.Arguments, " ") + "\n")
		return goja.Undefined()
	}

	io := vm.NewObject()
	for name, fn := range map[string]func(goja.FunctionCall) goja.Value{
		"write":   write,
		"writeln": writeln,
		"writef":  writef,
	} {
		if err := io.Set(name, fn); err != nil {
			return fmt.Errorf("failed to set io.%s: %w", name, err)
		}
	}
	if err := vm.Set("io", io); err != nil {
		return fmt.Errorf("failed to set io: %w", err)
	}
	if err := vm.Set("print", print); err != nil {
		return fmt.Errorf("failed to set print: %w", err)
	}

	console := vm.NewObject()
	if err := console.Set("log", print); err != nil {
		return fmt.Errorf("failed to set console.log: %w", err)
	}
	return vm.Set("console", console)
}

func joinArgs(args []goja.Value, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, sep)
}
