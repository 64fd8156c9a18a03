package htmlview

import (
	"context"
	"sync"

	"github.com/atotto/clipboard"
)

// Clipboard is a platform text clipboard.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// SystemClipboard writes to the operating system clipboard.
type SystemClipboard struct{}

// WriteText implements Clipboard.
func (SystemClipboard) WriteText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return NewClipboardError("clipboard is not supported on this platform", nil)
	}
	if err := ctx.Err(); err != nil {
		return NewClipboardError("copy cancelled", err)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return NewClipboardError("failed to write clipboard", err)
	}
	return nil
}

// MemoryClipboard keeps the last written text in memory.
type MemoryClipboard struct {
	mu   sync.Mutex
	text string
	err  error
}

// FailWith makes every following write return err. A nil err clears it.
func (m *MemoryClipboard) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// WriteText implements Clipboard.
func (m *MemoryClipboard) WriteText(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

// Text returns the last successfully written text.
func (m *MemoryClipboard) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// CopyResult is the outcome of a copy action. Failures carry a reason for
// diagnostics only; callers log them and carry on.
type CopyResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Copied is the successful CopyResult.
func Copied() CopyResult {
	return CopyResult{OK: true}
}

// CopyFailed returns a failed CopyResult with the given reason.
func CopyFailed(reason string) CopyResult {
	return CopyResult{Reason: reason}
}

// Copy writes the text currently displayed by s to cb. Only formatted text
// can be selected; in raw preview mode the copy fails without touching cb.
// The session is never modified.
func Copy(ctx context.Context, cb Clipboard, s *Session) CopyResult {
	view := s.Render()
	if view.Mode != ModeFormatted {
		return CopyFailed("no formatted text selected")
	}
	return CopyText(ctx, cb, view.Text)
}

// CopyText writes text to cb and reports the outcome.
func CopyText(ctx context.Context, cb Clipboard, text string) CopyResult {
	if cb == nil {
		return CopyFailed("no clipboard available")
	}
	if err := cb.WriteText(ctx, text); err != nil {
		return CopyFailed(err.Error())
	}
	return Copied()
}
