package console

import (
	"sync"
	"unicode/utf8"
)

const defaultScrollback = 1 << 20 // 1MB

// Terminal mirrors the page's terminal widget. It keeps at most max bytes;
// the oldest output is dropped first.
type Terminal struct {
	mu   sync.Mutex
	data []byte
	max  int
	emit func(Frame)
}

func newTerminal(max int, emit func(Frame)) *Terminal {
	if max <= 0 {
		max = defaultScrollback
	}
	return &Terminal{max: max, emit: emit}
}

func (t *Terminal) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.data)
}

// SetText replaces the whole terminal contents. SetText("") clears it.
func (t *Terminal) SetText(text string) {
	t.mu.Lock()
	t.data = t.data[:0]
	t.appendLocked(text)
	t.mu.Unlock()

	t.emit(Frame{Type: FrameClear})
	if text != "" {
		t.emit(Frame{Type: FrameOutput, Data: text})
	}
}

func (t *Terminal) AppendText(text string) {
	if text == "" {
		return
	}
	t.mu.Lock()
	t.appendLocked(text)
	t.mu.Unlock()
	t.emit(Frame{Type: FrameOutput, Data: text})
}

func (t *Terminal) appendLocked(text string) {
	t.data = append(t.data, text...)
	if len(t.data) > t.max {
		cut := len(t.data) - t.max
		// Never start the kept text in the middle of a rune.
		for cut < len(t.data) && !utf8.RuneStart(t.data[cut]) {
			cut++
		}
		t.data = t.data[cut:]
	}
}

// Sink is the output side of a run: runtime writes land here and it records
// whether anything was written since the last reset.
type Sink struct {
	term *Terminal

	mu    sync.Mutex
	wrote bool
}

func newSink(term *Terminal) *Sink {
	return &Sink{term: term}
}

// Clear empties the terminal and resets the write flag.
func (s *Sink) Clear() {
	s.term.SetText("")
	s.ResetWritten()
}

// Append adds text to the terminal. Any non-empty text sets the write flag.
func (s *Sink) Append(text string) {
	if text == "" {
		return
	}
	s.term.AppendText(text)
	s.mu.Lock()
	s.wrote = true
	s.mu.Unlock()
}

// Write lets the sink serve as a runtime's stdout.
func (s *Sink) Write(p []byte) (int, error) {
	s.Append(string(p))
	return len(p), nil
}

func (s *Sink) Written() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrote
}

func (s *Sink) ResetWritten() {
	s.mu.Lock()
	s.wrote = false
	s.mu.Unlock()
}

func (s *Sink) Text() string {
	return s.term.Text()
}
