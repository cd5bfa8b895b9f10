// Package logging builds the zerolog loggers used by the CLI and the language server.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// ID tags entries written by this process so forwarded logs can be told
// apart from entries written by dependencies.
var ID = xid.New().String()

// ParseLevel accepts zerolog level names, with "" meaning info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("parsing log level %q: %w", s, err)
	}
	return lvl, nil
}

// IsTerminal reports whether w is a terminal that accepts color.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewConsole returns a human readable logger writing to w.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	colorize := IsTerminal(w)

	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    !colorize,
		TimeFormat: "15:04:05.000",
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(CallerHook{WithColor: colorize})
}

// NewJSON returns a logger writing one JSON object per entry to w.
func NewJSON(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Str("id", ID).
		Logger().
		Hook(TimeHook{}).
		Hook(CallerHook{})
}

// WithConsole stores a console logger in ctx.
func WithConsole(ctx context.Context, w io.Writer, level zerolog.Level) context.Context {
	return NewConsole(w, level).WithContext(ctx)
}

// TimeHook stamps entries with millisecond precision and no timezone.
type TimeHook struct {
	Format string
}

func (t TimeHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	format := t.Format
	if format == "" {
		format = "2006-01-02T15:04:05.000Z"
	}
	e.Str("time", time.Now().UTC().Format(format))
}

// CallerHook adds the first caller outside zerolog as "caller".
type CallerHook struct {
	WithColor bool
}

func (c CallerHook) Run(e *zerolog.Event, _ zerolog.Level, _ string) {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "github.com/rs/zerolog") &&
			!strings.HasSuffix(frame.Function, "logging.CallerHook.Run") {
			pkg, _ := SplitFuncName(frame.Function)
			e.Str("caller", FormatCaller(pkg, frame.File, frame.Line, c.WithColor))
			return
		}
		if !more {
			return
		}
	}
}

// SplitFuncName splits a runtime function name into package path and function.
func SplitFuncName(name string) (pkg, function string) {
	lastSlash := strings.LastIndexByte(name, '/')
	if lastSlash < 0 {
		lastSlash = 0
	}

	firstDot := strings.IndexByte(name[lastSlash:], '.')
	if firstDot < 0 {
		return name, ""
	}
	firstDot += lastSlash

	pkg = name[:firstDot]
	function = name[firstDot+1:]

	if strings.Contains(pkg, ".(") {
		parts := strings.SplitN(pkg, ".(", 2)
		pkg = parts[0]
		function = "(" + parts[1] + "." + function
	}

	return pkg, function
}

func FormatCaller(pkg, path string, line int, colorize bool) string {
	file := path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		file = path[i+1:]
	}

	if colorize {
		file = color.New(color.Bold).Sprint(file)
		num := color.New(color.FgHiRed, color.Bold).Sprintf("%d", line)
		sep := color.New(color.Faint).Sprint(":")
		return fmt.Sprintf("%s%s%s%s%s", pkg, sep, file, sep, num)
	}

	return fmt.Sprintf("%s:%s:%d", pkg, file, line)
}
