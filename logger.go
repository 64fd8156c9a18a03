package htmlview

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// NewLogger returns a tint-backed logger writing to w. Only warnings and
// errors are shown unless debug is set.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}

	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
			NoColor:    w != os.Stderr,
		}),
	)
}

// InitLogger initializes the global slog logger on stderr.
func InitLogger(debug bool) {
	slog.SetDefault(NewLogger(os.Stderr, debug))
}
