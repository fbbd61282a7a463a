// Package logrus adapts a *logrus.Entry to opcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/opcache"
)

var _ opcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: logrus.NewEntry(l).WithField("component", "opcache")}
}

func (l LogrusLogger) Debug(msg string, f opcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f opcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f opcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f opcache.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f opcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if k == "err" {
			k = logrus.ErrorKey
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
