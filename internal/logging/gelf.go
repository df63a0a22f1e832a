package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter dials a Graylog GELF UDP input.
func NewGraylogWriter(addr string) (*gelf.Writer, error) {
	return gelf.NewWriter(addr)
}

// GELFHandler formats each record as a single text line and writes it in one
// call, so a gelf.Writer turns every record into one message.
type GELFHandler struct {
	mu    *sync.Mutex
	out   io.Writer
	buf   *bytes.Buffer
	inner slog.Handler
}

// NewGELFHandler creates a handler writing records at or above level to w.
func NewGELFHandler(w io.Writer, level slog.Level) *GELFHandler {
	buf := &bytes.Buffer{}
	return &GELFHandler{
		mu:  &sync.Mutex{},
		out: w,
		buf: buf,
		inner: slog.NewTextHandler(buf, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Graylog stamps messages itself
				if len(groups) == 0 && a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			},
		}),
	}
}

// Enabled delegates to the text formatter.
func (h *GELFHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle formats r and sends it as one write.
func (h *GELFHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf.Reset()
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	_, err := h.out.Write(bytes.TrimRight(h.buf.Bytes(), "\n"))
	return err
}

// WithAttrs returns a handler sharing the output with the attributes added.
func (h *GELFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GELFHandler{mu: h.mu, out: h.out, buf: h.buf, inner: h.inner.WithAttrs(attrs)}
}

// WithGroup returns a handler sharing the output with the group added.
func (h *GELFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &GELFHandler{mu: h.mu, out: h.out, buf: h.buf, inner: h.inner.WithGroup(name)}
}
