package log

import (
	"context"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Engine code tags every record with a "section" attribute; records below
// Warn are dropped unless their section is enabled here.
var enabledSections = []string{
	"dispatch",
	"precompile",
	"trace",
}

// EnableSection turns on debug logging for a section at runtime.
func EnableSection(section string) {
	if !slices.Contains(enabledSections, section) {
		enabledSections = append(enabledSections, section)
	}
}

var LoggerOpts = &slog.HandlerOptions{
	Level: slog.LevelDebug,
	ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
		if a.Key == "time" {
			return slog.Attr{}
		}
		return a
	},
}

var DefaultLogger = slog.New(&filteringHandler{underlying: slog.NewTextHandler(os.Stderr, LoggerOpts)})

var _ slog.Handler = &filteringHandler{}

type filteringHandler struct {
	underlying slog.Handler
	attrs      []slog.Attr
}

func (f filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return f.underlying.Enabled(ctx, level)
}

func (f filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level >= slog.LevelWarn {
		return f.underlying.Handle(ctx, record)
	}
	wantSection := false
	check := func(attr slog.Attr) bool {
		wantSection = wantSection || attr.Key == "section" && slices.ContainsFunc(enabledSections, func(section string) bool {
			return strings.HasPrefix(attr.Value.String(), section)
		})
		// iterate as long as we have not found our section
		return !wantSection
	}
	for _, attr := range f.attrs {
		if !check(attr) {
			break
		}
	}
	record.Attrs(check)
	if !wantSection {
		return nil
	}
	return f.underlying.Handle(ctx, record)
}

func (f filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{
		underlying: f.underlying.WithAttrs(attrs),
		attrs:      append(slices.Clone(f.attrs), attrs...),
	}
}

func (f filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{
		underlying: f.underlying.WithGroup(name),
		attrs:      f.attrs,
	}
}
