// internal/logging/logger.go
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// New creates the internal diagnostics logger.
// It writes to Stderr so it never mixes with the transcripts on Stdout
// or the MCP stdio stream, and renames the "error" key to "err".
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	h := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		Prefix:          "steely",
	})
	return slog.New(errKeyHandler{h})
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type errKeyHandler struct {
	slog.Handler
}

func renameErr(a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

func (h errKeyHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(renameErr(a))
		return true
	})
	return h.Handler.Handle(ctx, out)
}

func (h errKeyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	renamed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		renamed[i] = renameErr(a)
	}
	return errKeyHandler{h.Handler.WithAttrs(renamed)}
}

func (h errKeyHandler) WithGroup(name string) slog.Handler {
	return errKeyHandler{h.Handler.WithGroup(name)}
}
