package console

import "sync"

// Editor mirrors the page's editing widget. The page pushes live text with
// Sync; the session replaces it with SetText when a demo is selected.
type Editor struct {
	mu   sync.Mutex
	text string
	rev  int
	emit func(Frame)
}

func newEditor(emit func(Frame)) *Editor {
	return &Editor{emit: emit}
}

func (e *Editor) Text() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.text
}

// SetText replaces the editor contents with the source of the named demo and
// tells the page, which moves its picker to name.
func (e *Editor) SetText(name, text string) {
	e.mu.Lock()
	e.text = text
	rev := e.rev
	e.mu.Unlock()
	e.emit(Frame{Type: FrameEditor, Name: name, Data: text, Rev: rev})
}

// ResetCursorAndScroll moves the page's cursor and scroll position to the
// top. Each reset bumps the revision so the page can ignore stale ones.
func (e *Editor) ResetCursorAndScroll() {
	e.mu.Lock()
	e.rev++
	rev := e.rev
	e.mu.Unlock()
	e.emit(Frame{Type: FrameCursor, Rev: rev})
}

// Sync records text typed on the page. Nothing is sent back.
func (e *Editor) Sync(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = text
}
