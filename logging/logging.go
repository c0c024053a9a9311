// Package logging defines the minimal logger interface used across the
// resilience toolkit, following the teacher's utils.Logger convention of
// hiding the concrete logging library behind a narrow interface so call
// sites never import it directly.
package logging

import "github.com/sirupsen/logrus"

// Logger is the logging interface every primitive accepts as an option.
// msg is a printf-style format string for args.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// NoopLogger discards everything. It is the default for every primitive
// that doesn't set the Logger option.
type NoopLogger struct{}

func (*NoopLogger) Debug(string, ...interface{}) {}
func (*NoopLogger) Info(string, ...interface{})  {}
func (*NoopLogger) Warn(string, ...interface{})  {}
func (*NoopLogger) Error(string, ...interface{}) {}

// Logrus adapts a *logrus.Logger to Logger, logging through an entry that
// carries a "component" field.
type Logrus struct {
	entry *logrus.Entry
}

// NewLogrus wraps l with the "component" field set to name, mirroring the
// teacher's documented pattern of tagging its logger with "lib": "vulcand/oxy".
func NewLogrus(l *logrus.Logger, name string) *Logrus {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &Logrus{entry: l.WithField("component", name)}
}

func (l *Logrus) Debug(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }
func (l *Logrus) Info(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *Logrus) Warn(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *Logrus) Error(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }
