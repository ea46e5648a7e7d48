// Package runtime wraps the language engines a console session evaluates
// programs with. Every engine pushes its output, including error reports,
// through a Stream instead of returning it.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

var (
	ErrQuit        = errors.New("runtime has quit")
	ErrUnknownKind = errors.New("unknown runtime kind")
)

// Runtime is one initialised engine instance. Eval blocks until the program
// finishes; output produced meanwhile has already been written to Stdio when
// it returns.
type Runtime interface {
	Eval(ctx context.Context, program string) error
	Stdio() *Stream
	Quit() error
}

// Config is handed to an engine at init.
type Config struct {
	// Prelude is evaluated once at init (js, go) or prepended to each
	// program (command).
	Prelude string
	Stdout  io.Writer
	Timeout time.Duration

	// command engine only
	Command []string
	FileExt string
	Spawn   SpawnFunc
}

type Factory func(cfg Config) (Runtime, error)

var factories = map[string]Factory{
	"js":      newJS,
	"go":      newGo,
	"command": newCommand,
}

// New initialises an engine of the given kind.
func New(kind string, cfg Config) (Runtime, error) {
	f, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return f(cfg)
}

// Kinds lists the registered engine kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Stream is the engine's standard output. Writes are serialised and forwarded
// to the writer given at init.
type Stream struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStream(w io.Writer) *Stream {
	if w == nil {
		w = io.Discard
	}
	return &Stream{w: w}
}

func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// WriteString writes text to the stream.
func (s *Stream) WriteString(text string) error {
	_, err := s.Write([]byte(text))
	return err
}

// withTimeout applies the per-run limit, if any.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func reportError(s *Stream, err error) {
	_ = s.WriteString(err.Error() + "\n")
}
