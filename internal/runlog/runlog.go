// Package runlog sets up the per-run logger: a timestamped log file for the
// run, a shared daily application log and an optional console stream.
package runlog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures Open.
type Options struct {
	Dir   string
	Name  string
	Level slog.Level
	// Console receives a copy of every line when non-nil.
	Console io.Writer
	Now     func() time.Time
}

// FileName is the per-run log path, e.g. logs/xsearch_202201271530.log.
func FileName(dir, name string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", name, now.Format("200601021504")))
}

// DailyFileName is the shared INFO+ log for all runs of a day.
func DailyFileName(dir string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("aplog_%s.log", now.Format("20060102")))
}

// Open creates the log directory and returns a fanout logger plus a cleanup
// function that closes the files.
func Open(opts Options) (*slog.Logger, func() error, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	t := now()
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	runFile, err := openAppend(FileName(opts.Dir, opts.Name, t))
	if err != nil {
		return nil, nil, err
	}
	dailyFile, err := openAppend(DailyFileName(opts.Dir, t))
	if err != nil {
		_ = runFile.Close()
		return nil, nil, err
	}

	handlers := []slog.Handler{
		NewHandler(runFile, opts.Level),
		NewHandler(dailyFile, maxLevel(opts.Level, slog.LevelInfo)),
	}
	if opts.Console != nil {
		handlers = append(handlers, NewHandler(opts.Console, opts.Level))
	}
	cleanup := func() error {
		return errors.Join(runFile.Close(), dailyFile.Close())
	}
	return slog.New(slogmulti.Fanout(handlers...)), cleanup, nil
}

// NewHandler returns a text handler that writes one leveled, timestamped line
// per record and spells the warn level WARNING.
func NewHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})
}

// ParseLevel maps DEBUG/INFO/WARN/WARNING/ERROR (any case) to a slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == slog.LevelWarn {
		return slog.String(slog.LevelKey, "WARNING")
	}
	return a
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func maxLevel(a, b slog.Level) slog.Level {
	if a > b {
		return a
	}
	return b
}
