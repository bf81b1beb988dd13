// Package applog wraps github.com/charmbracelet/log behind the
// event.Logger interface so library packages never depend on a concrete
// logging backend.
package applog

import (
	"os"

	charmlog "github.com/charmbracelet/log"

	"github.com/sizeofvoid/libopeninput-sub000/event"
)

// Logger adapts a *charmlog.Logger to event.Logger.
type Logger struct {
	l *charmlog.Logger
}

// New returns a Logger writing to stderr with the given prefix (typically
// a device name or subsystem), at the given level.
func New(prefix string, level charmlog.Level) *Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		Level:           level,
	})
	return &Logger{l: l}
}

var _ event.Logger = (*Logger)(nil)

func (l *Logger) Debugf(format string, args ...any) { l.l.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.l.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.l.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.l.Errorf(format, args...) }

// With returns a derived logger tagged with an additional "component"
// field, e.g. per device ("lid", "touchpad0").
func (l *Logger) With(component string) *Logger {
	return &Logger{l: l.l.With("component", component)}
}
