package console

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"demo-console/runtime"
	"demo-console/snippet"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrClosed   = errors.New("session closed")
	ErrNoFocus  = errors.New("no demo selected")
)

// RuntimeFactory initialises the language runtime for a new session. stdout
// is the session's output sink.
type RuntimeFactory func(stdout io.Writer) (runtime.Runtime, error)

// Info is the summary of a session listed by the manager.
type Info struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	Connected  bool      `json:"connected"`
	Focus      string    `json:"focus"`
	State      string    `json:"state"`
}

// Snapshot is everything a page needs to redraw a session.
type Snapshot struct {
	Info
	Editor   string   `json:"editor"`
	Terminal string   `json:"terminal"`
	Options  []Option `json:"options"`
}

// Session is the state behind one console page: the snippet table, the
// editor and terminal mirrors, the runtime and the focused demo name.
//
// Handlers run one at a time on the session's event loop goroutine, so a
// run can never interleave with a selection, a duplicate or teardown.
// Snippet fetches are the only work done off the loop; their continuations
// are posted back to it and become no-ops once the session is closed.
type Session struct {
	ID        string
	CreatedAt time.Time

	store  *snippet.Store
	loader *snippet.Loader
	editor *Editor
	term   *Terminal
	sink   *Sink
	rt     runtime.Runtime
	ctrl   *Controller
	log    *zap.Logger

	mu         sync.Mutex
	focus      string
	options    []Option
	lastActive time.Time

	// loop-owned
	closed bool

	events chan func()
	done   chan struct{}
	exited chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	outMu     sync.Mutex
	outChan   chan Frame
	kickChan  chan struct{}
	connected bool
}

// Editor returns the session's editor mirror.
func (s *Session) Editor() *Editor { return s.editor }

// Sink returns the session's output sink.
func (s *Session) Sink() *Sink { return s.sink }

// Store returns the session's snippet table.
func (s *Session) Store() *snippet.Store { return s.store }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Focus returns the focused demo name, or "" before the first selection.
func (s *Session) Focus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

func (s *Session) Options() []Option {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts := make([]Option, len(s.options))
	copy(opts, s.options)
	return opts
}

func (s *Session) Info() Info {
	s.mu.Lock()
	focus, last := s.focus, s.lastActive
	s.mu.Unlock()
	s.outMu.Lock()
	connected := s.connected
	s.outMu.Unlock()
	return Info{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastActive: last,
		Connected:  connected,
		Focus:      focus,
		State:      s.ctrl.State().String(),
	}
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Info:     s.Info(),
		Editor:   s.editor.Text(),
		Terminal: s.term.Text(),
		Options:  s.Options(),
	}
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Edit records the text currently in the page's editor.
func (s *Session) Edit(text string) error {
	return s.do(func() { s.editor.Sync(text) })
}

// Select binds name to the editor. A cached snippet is shown at once;
// otherwise it is fetched and shown when the fetch completes, while the
// editor keeps its previous contents. The returned channel receives one
// value: nil once the editor shows name, or the load error.
func (s *Session) Select(name string) <-chan error {
	res := make(chan error, 1)
	err := s.do(func() {
		if src, ok := s.store.Get(name); ok {
			s.show(name, src)
			res <- nil
			return
		}
		fut := s.loader.EnsureLoaded(s.ctx, name)
		go s.await(fut, res)
	})
	if err != nil {
		res <- err
	}
	return res
}

func (s *Session) await(fut <-chan snippet.Result, res chan<- error) {
	var r snippet.Result
	select {
	case r = <-fut:
	case <-s.done:
		res <- ErrClosed
		return
	}
	err := s.do(func() {
		if r.Err != nil {
			res <- r.Err
			return
		}
		src, ok := s.store.Get(r.Name)
		if !ok {
			src = r.Source
		}
		s.show(r.Name, src)
		res <- nil
	})
	if err != nil {
		res <- err
	}
}

// show must run on the loop.
func (s *Session) show(name, src string) {
	s.editor.SetText(name, src)
	s.editor.ResetCursorAndScroll()
	s.mu.Lock()
	s.focus = name
	s.mu.Unlock()
	s.addOption(Option{Label: name, Key: name})
}

// Snap copies the editor text into the focused demo's entry so edits survive
// navigating away. It is the handler for the demo picker gaining focus.
func (s *Session) Snap() error {
	return s.do(func() {
		if focus := s.Focus(); focus != "" {
			s.store.Put(focus, s.editor.Text())
		}
	})
}

// Duplicate forks the focused demo with the current editor text, adds the
// fork to the selectable options and moves focus to it, so later edits land
// in the fork. The fork's label is the source label plus the same suffix.
func (s *Session) Duplicate() (Option, error) {
	var opt Option
	var derr error
	err := s.do(func() {
		focus := s.Focus()
		if focus == "" {
			derr = ErrNoFocus
			return
		}
		name := s.store.Duplicate(focus, s.editor.Text())
		opt = Option{Label: s.label(focus) + strings.TrimPrefix(name, focus), Key: name}
		s.addOption(opt)
		s.mu.Lock()
		s.focus = name
		s.mu.Unlock()
		s.emit(Frame{Type: FrameFocus, Name: name})
		s.log.Debug("duplicated demo", zap.String("from", focus), zap.String("to", name))
	})
	if err != nil {
		return Option{}, err
	}
	return opt, derr
}

// label returns the displayed text of the option keyed by key.
func (s *Session) label(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.options {
		if o.Key == key {
			return o.Label
		}
	}
	return key
}

// Submit runs the editor text. keepHistory is the page's checkbox state at
// the time of the click.
func (s *Session) Submit(ctx context.Context, keepHistory bool) (RunResult, error) {
	var res RunResult
	err := s.do(func() {
		res = s.ctrl.Run(ctx, keepHistory)
	})
	return res, err
}

// Close tears the session down. The runtime is quit exactly once and never
// while a run is in progress. Closing a closed session is a no-op.
func (s *Session) Close() error {
	var qerr error
	err := s.do(func() {
		s.closed = true
		s.cancel()
		qerr = s.rt.Quit()
		close(s.done)
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}
	<-s.exited
	if qerr != nil {
		s.log.Warn("runtime quit failed", zap.Error(qerr))
	}
	return qerr
}

func (s *Session) addOption(opt Option) {
	s.mu.Lock()
	for _, o := range s.options {
		if o.Key == opt.Key {
			s.mu.Unlock()
			return
		}
	}
	s.options = append(s.options, opt)
	s.mu.Unlock()
	s.emit(Frame{Type: FrameOption, Name: opt.Key, Label: opt.Label})
}

// do runs fn on the event loop and waits for it to finish.
func (s *Session) do(fn func()) error {
	var err error
	ran := make(chan struct{})
	task := func() {
		defer close(ran)
		if s.closed {
			err = ErrClosed
			return
		}
		s.touch()
		fn()
	}
	select {
	case s.events <- task:
	case <-s.done:
		return ErrClosed
	}
	<-ran
	return err
}

func (s *Session) loop() {
	defer close(s.exited)
	for {
		select {
		case fn := <-s.events:
			fn()
		case <-s.done:
			return
		}
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// SetClient registers a channel to receive live frames. A previously
// registered client is kicked: its kick channel is closed so the websocket
// handler can drop that connection. The returned channel is closed if this
// client is itself displaced later.
func (s *Session) SetClient(ch chan Frame) <-chan struct{} {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.kickChan != nil {
		close(s.kickChan)
	}
	kick := make(chan struct{})
	s.kickChan = kick
	s.outChan = ch
	s.connected = true
	return kick
}

// ClearClient is called when a connection ends. Session state is only
// cleared if ch is still the current client. ch is always closed so the
// pump goroutine exits.
func (s *Session) ClearClient(ch chan Frame) {
	s.outMu.Lock()
	if s.outChan == ch {
		s.outChan = nil
		s.connected = false
		s.kickChan = nil
	}
	s.outMu.Unlock()
	close(ch)
}

// emit drops the frame if the client is not keeping up; the page can
// resync from a snapshot.
func (s *Session) emit(f Frame) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.outChan == nil {
		return
	}
	select {
	case s.outChan <- f:
	default:
	}
}
