package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// actionsHandler is a slog.Handler that writes GitHub Actions workflow
// commands. Warnings and errors become ::warning:: and ::error::
// annotations, debug and trace records become ::debug:: lines (only shown
// when the workflow enables step debug logging) and info records are
// written as plain lines.
//
// See: https://docs.github.com/en/actions/using-workflows/workflow-commands-for-github-actions
type actionsHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Level
	preset string // attrs added via WithAttrs, already rendered
	groups []string
}

func newActionsHandler(w io.Writer, level slog.Level) *actionsHandler {
	return &actionsHandler{
		w:     w,
		mu:    &sync.Mutex{},
		level: level,
	}
}

func (h *actionsHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *actionsHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	sb.WriteString(r.Message)

	sb.WriteString(h.preset)
	prefix := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, prefix, a)
		return true
	})

	line := sb.String()
	switch {
	case r.Level >= slog.LevelError:
		line = "::error::" + escapeData(line)
	case r.Level >= slog.LevelWarn:
		line = "::warning::" + escapeData(line)
	case r.Level < slog.LevelInfo:
		line = "::debug::" + escapeData(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, line)
	return err
}

func (h *actionsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var sb strings.Builder
	prefix := strings.Join(h.groups, ".")
	for _, a := range attrs {
		writeAttr(&sb, prefix, a)
	}
	clone := *h
	clone.preset = h.preset + sb.String()
	return &clone
}

func (h *actionsHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(sb, key, ga)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(a.Value.String())
}

// escapeData escapes the characters the runner treats as command syntax.
func escapeData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	return s
}
