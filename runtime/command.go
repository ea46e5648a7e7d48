package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/creack/pty"
)

// SpawnFunc starts cmd and returns a reader over its combined output.
type SpawnFunc func(cmd *exec.Cmd) (io.ReadCloser, error)

// PTYSpawn runs cmd on a pseudo terminal so interpreters line-buffer their
// output as they would in an interactive shell.
func PTYSpawn(cmd *exec.Cmd) (io.ReadCloser, error) {
	cmd.Env = append(cmd.Environ(), "TERM=xterm-256color")
	return pty.Start(cmd)
}

// PipeSpawn wires stdout and stderr to a plain pipe. Used where no pty is
// available, and in tests.
func PipeSpawn(cmd *exec.Cmd) (io.ReadCloser, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		r.Close()
		w.Close()
		return nil, err
	}
	// The child holds its own copy; ours must go so the reader sees EOF.
	w.Close()
	return r, nil
}

const fileToken = "{file}"

// commandRuntime hands each program to an external interpreter binary.
type commandRuntime struct {
	stdio   *Stream
	cfg     Config
	dir     string
	spawn   SpawnFunc
	stopped bool
}

func newCommand(cfg Config) (Runtime, error) {
	if len(cfg.Command) == 0 || strings.TrimSpace(cfg.Command[0]) == "" {
		return nil, errors.New("command runtime: runtime.command is empty")
	}
	dir, err := os.MkdirTemp("", "demo-console-*")
	if err != nil {
		return nil, fmt.Errorf("command runtime: %w", err)
	}
	spawn := cfg.Spawn
	if spawn == nil {
		spawn = PTYSpawn
	}
	return &commandRuntime{
		stdio: NewStream(cfg.Stdout),
		cfg:   cfg,
		dir:   dir,
		spawn: spawn,
	}, nil
}

func (r *commandRuntime) Stdio() *Stream { return r.stdio }

func (r *commandRuntime) Eval(ctx context.Context, program string) error {
	if r.stopped {
		return ErrQuit
	}
	ctx, cancel := withTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	file, err := r.writeProgram(program)
	if err != nil {
		reportError(r.stdio, err)
		return err
	}
	defer os.Remove(file)

	args := commandArgs(r.cfg.Command, file)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.dir
	out, err := r.spawn(cmd)
	if err != nil {
		err = fmt.Errorf("start %s: %w", args[0], err)
		reportError(r.stdio, err)
		return err
	}

	// A grandchild can hold the output open after the interpreter is killed,
	// so the reader is closed on timeout instead of waiting for EOF.
	copied := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			out.Close()
		case <-copied:
		}
	}()

	// Wait for the copy to drain before returning; callers rely on all output
	// being written by the time Eval returns.
	w := &crlfWriter{w: r.stdio}
	_, copyErr := io.Copy(w, out)
	close(copied)
	w.Flush()
	out.Close()
	waitErr := cmd.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		err := fmt.Errorf("execution interrupted: %w", ctxErr)
		reportError(r.stdio, err)
		return err
	}
	if copyErr != nil && !errors.Is(copyErr, syscall.EIO) && !errors.Is(copyErr, os.ErrClosed) {
		reportError(r.stdio, copyErr)
		return copyErr
	}
	if waitErr != nil {
		reportError(r.stdio, waitErr)
		return fmt.Errorf("command eval: %w", waitErr)
	}
	return nil
}

// crlfWriter turns the pty's "\r\n" line endings back into "\n". A lone
// "\r" is passed through.
type crlfWriter struct {
	w  io.Writer
	cr bool
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	buf := make([]byte, 0, len(p)+1)
	for _, b := range p {
		if c.cr {
			c.cr = false
			if b != '\n' {
				buf = append(buf, '\r')
			}
		}
		if b == '\r' {
			c.cr = true
			continue
		}
		buf = append(buf, b)
	}
	if len(buf) > 0 {
		if _, err := c.w.Write(buf); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Flush writes a trailing "\r" held back by the last Write.
func (c *crlfWriter) Flush() {
	if c.cr {
		c.cr = false
		_, _ = c.w.Write([]byte{'\r'})
	}
}

func (r *commandRuntime) Quit() error {
	if r.stopped {
		return nil
	}
	r.stopped = true
	return os.RemoveAll(r.dir)
}

func (r *commandRuntime) writeProgram(program string) (string, error) {
	f, err := os.CreateTemp(r.dir, "program-*"+r.cfg.FileExt)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if r.cfg.Prelude != "" {
		if _, err := f.WriteString(r.cfg.Prelude + "\n"); err != nil {
			return "", err
		}
	}
	if _, err := f.WriteString(program); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// commandArgs substitutes the program path for {file}, or appends it when
// the command does not mention it.
func commandArgs(command []string, file string) []string {
	args := make([]string, 0, len(command)+1)
	found := false
	for _, a := range command {
		if strings.Contains(a, fileToken) {
			found = true
			a = strings.ReplaceAll(a, fileToken, file)
		}
		args = append(args, a)
	}
	if !found {
		args = append(args, file)
	}
	return args
}
