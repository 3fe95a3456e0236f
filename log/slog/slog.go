package slog

import (
	"log/slog"

	"github.com/unkn0wn-root/offcache"
)

type SlogLogger struct{ L *slog.Logger }

func (s SlogLogger) Debug(msg string, f offcache.Fields) { s.L.Debug(msg, args(f)...) }
func (s SlogLogger) Info(msg string, f offcache.Fields)  { s.L.Info(msg, args(f)...) }
func (s SlogLogger) Warn(msg string, f offcache.Fields)  { s.L.Warn(msg, args(f)...) }
func (s SlogLogger) Error(msg string, f offcache.Fields) { s.L.Error(msg, args(f)...) }

func args(f offcache.Fields) []any {
	if len(f) == 0 {
		return nil
	}
	out := make([]any, 0, len(f)*2)
	for k, v := range f {
		out = append(out, k, v)
	}
	return out
}
