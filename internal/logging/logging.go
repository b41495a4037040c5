// Package logging builds the JSON line logger shared by every component.
//
// Each line carries ts, level and msg, plus whatever attributes the caller adds.
// Components tag their lines with "component" and, for lifecycle events,
// "event" and "status".
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// New returns a JSON logger writing to w with timestamps rendered in loc.
func New(w io.Writer, loc *time.Location) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			case slog.LevelKey:
				return slog.String("level", levelName(a.Value.Any()))
			}
			return a
		},
	})
	return slog.New(h)
}

// Default logs to stdout in UTC.
func Default() *slog.Logger {
	return New(os.Stdout, time.UTC)
}

// Discard drops everything. Used as the fallback when no logger is injected.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Location resolves an IANA zone name, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func levelName(v any) string {
	l, ok := v.(slog.Level)
	if !ok {
		return "info"
	}
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
