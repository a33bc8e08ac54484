package zap

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// Strings is a string array that implements MarshalLogArray.
type Strings []string

// MarshalLogArray implementation
func (ss Strings) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, s := range ss {
		enc.AppendString(s)
	}
	return nil
}

// Fields is a string map that implements MarshalLogObject. Keys are written in sorted
// order so log lines are stable.
type Fields map[string]string

// MarshalLogObject implementation
func (f Fields) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		enc.AddString(k, f[k])
	}
	return nil
}
