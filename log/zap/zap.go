// Package zap adapts a *zap.Logger to opcache.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/opcache"
	"go.uber.org/zap"
)

var _ opcache.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New names the logger "opcache" so its lines can be filtered.
func New(l *zap.Logger) ZapLogger { return ZapLogger{L: l.Named("opcache")} }

func (z ZapLogger) Debug(msg string, f opcache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f opcache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f opcache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f opcache.Fields) { z.L.Error(msg, zf(f)...) }

// zf keeps field order stable across lines and logs errors under zap's
// error encoding.
func zf(f opcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
