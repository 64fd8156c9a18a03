package htmlview

// ViewMode selects what the output pane shows.
type ViewMode int

const (
	// ModeRaw renders the source inside a sandboxed frame.
	ModeRaw ViewMode = iota
	// ModeFormatted shows the Format output as literal text.
	ModeFormatted
)

// String returns the wire name of the mode.
func (m ViewMode) String() string {
	if m == ModeFormatted {
		return "formatted"
	}
	return "raw"
}

// View is what the output pane displays for one render.
type View struct {
	Mode ViewMode
	// Text is the raw source in ModeRaw and the formatted text in ModeFormatted.
	Text string
}

// Session owns the source text and view mode of one widget instance.
// It is not safe for concurrent use; callers that share a Session must
// serialize access.
type Session struct {
	source string
	mode   ViewMode
}

// NewSession returns an empty session in raw preview mode.
func NewSession() *Session {
	return &Session{mode: ModeRaw}
}

// Source returns the current source text.
func (s *Session) Source() string {
	return s.source
}

// Mode returns the current view mode.
func (s *Session) Mode() ViewMode {
	return s.mode
}

// SetSource replaces the source text unconditionally.
func (s *Session) SetSource(text string) {
	s.source = text
}

// ToggleView flips between raw preview and formatted text.
func (s *Session) ToggleView() {
	if s.mode == ModeRaw {
		s.mode = ModeFormatted
		return
	}
	s.mode = ModeRaw
}

// Reset clears the source and returns to raw preview mode.
func (s *Session) Reset() {
	s.source = ""
	s.mode = ModeRaw
}

// Render computes the view for the current state. The formatted text is
// recomputed on every call.
func (s *Session) Render() View {
	if s.mode == ModeFormatted {
		return View{Mode: ModeFormatted, Text: Format(s.source)}
	}
	return View{Mode: ModeRaw, Text: s.source}
}
