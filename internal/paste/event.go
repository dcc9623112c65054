package paste

import "time"

// Item is one typed entry of the clipboard.
type Item struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Data []byte `json:"data,omitempty"`
}

// Editor is the host editor surface the pipeline may mutate.
type Editor interface {
	ReplaceSelection(text string)
}

// Level classifies a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a transient message for the user. A zero Duration lets the
// host pick its default.
type Notice struct {
	Level    Level         `json:"level"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
}

// Notifier is the host notification surface.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// Event captures the clipboard state of one paste and the editor it targets.
type Event struct {
	Items  []Item
	Text   string
	Editor Editor

	prevented bool
}

// PreventDefault suppresses the host's own paste handling.
func (e *Event) PreventDefault() {
	e.prevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool {
	return e.prevented
}
