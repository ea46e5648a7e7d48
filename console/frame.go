package console

// Frame is one update pushed to the page over the live connection.
type Frame struct {
	Type  string `json:"type"` // see Frame* constants
	Data  string `json:"data,omitempty"`
	Name  string `json:"name,omitempty"`
	Label string `json:"label,omitempty"`
	Rev   int    `json:"rev,omitempty"`
}

const (
	FrameOutput = "output"
	FrameClear  = "clear"
	FrameEditor = "editor"
	FrameCursor = "cursor"
	FrameOption = "option"
	FrameClosed = "closed"
	FrameError  = "error"
	FrameFocus  = "focus"
)

// Option is a selectable catalog entry on the page.
type Option struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}
