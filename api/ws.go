package api

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"demo-console/console"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is a page event sent by the client.
type wsEvent struct {
	Type        string `json:"type"` // edit, focus, select, duplicate, run
	Text        string `json:"text,omitempty"`
	Name        string `json:"name,omitempty"`
	KeepHistory bool   `json:"keepHistory,omitempty"`
}

func (h *handler) handleWS(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	log := h.log.With(zap.String("session", s.ID))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("ws upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	// gorilla/websocket forbids concurrent writes.
	var writeMu sync.Mutex
	writeMsg := func(f console.Frame) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(f)
	}

	outChan := make(chan console.Frame, 256)
	kick := s.SetClient(outChan) // kicks any prior client
	defer s.ClearClient(outChan)

	for _, f := range replay(s.Snapshot()) {
		if err := writeMsg(f); err != nil {
			log.Debug("ws replay", zap.Error(err))
			return
		}
	}

	// Exits when ClearClient closes outChan.
	go func() {
		for f := range outChan {
			if err := writeMsg(f); err != nil {
				return
			}
		}
	}()

	// Close the connection on session end or displacement so ReadJSON below
	// unblocks.
	connDone := make(chan struct{})
	go func() {
		select {
		case <-s.Done():
			writeMsg(console.Frame{Type: console.FrameClosed}) //nolint:errcheck
			conn.Close()
		case <-kick:
			// Displaced by a newer connection: no "closed" frame, the session lives on.
			conn.Close()
		case <-connDone:
		}
	}()
	defer close(connDone)

	var pending sync.WaitGroup
	defer pending.Wait()

	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			// Client went away or the watcher above closed conn. The session
			// stays alive until it is killed or reaped.
			return
		}

		var opErr error
		switch ev.Type {
		case "edit":
			opErr = s.Edit(ev.Text)
		case "focus":
			opErr = s.Snap()
		case "select":
			// Loads resolve asynchronously; keep reading events meanwhile.
			res := s.Select(ev.Name)
			pending.Add(1)
			go func(name string) {
				defer pending.Done()
				if err := <-res; err != nil && !errors.Is(err, console.ErrClosed) {
					writeMsg(console.Frame{Type: console.FrameError, Name: name, Data: err.Error()}) //nolint:errcheck
				}
			}(ev.Name)
		case "duplicate":
			_, opErr = s.Duplicate()
		case "run":
			_, opErr = s.Submit(r.Context(), ev.KeepHistory)
		default:
			log.Debug("ws unknown event", zap.String("type", ev.Type))
		}

		if opErr != nil {
			if errors.Is(opErr, console.ErrClosed) {
				return
			}
			writeMsg(console.Frame{Type: console.FrameError, Data: opErr.Error()}) //nolint:errcheck
		}
	}
}

// replay is the frame sequence that brings a freshly connected page up to
// date: options, editor, terminal.
func replay(snap console.Snapshot) []console.Frame {
	frames := make([]console.Frame, 0, len(snap.Options)+3)
	for _, o := range snap.Options {
		frames = append(frames, console.Frame{Type: console.FrameOption, Name: o.Key, Label: o.Label})
	}
	frames = append(frames,
		console.Frame{Type: console.FrameEditor, Name: snap.Focus, Data: snap.Editor},
		console.Frame{Type: console.FrameClear},
	)
	if snap.Terminal != "" {
		frames = append(frames, console.Frame{Type: console.FrameOutput, Data: snap.Terminal})
	}
	return frames
}
