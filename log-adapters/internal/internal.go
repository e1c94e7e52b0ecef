// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package internal holds the field handling shared by the log adapters.
package internal

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// Core carries the level filter and accumulated fields of an adapter core.
type Core struct {
	zapcore.LevelEnabler
	Fields []zapcore.Field
}

// With returns a copy of c with fields appended.
func (c Core) With(fields []zapcore.Field) Core {
	fs := make([]zapcore.Field, 0, len(c.Fields)+len(fields))
	fs = append(fs, c.Fields...)
	c.Fields = append(fs, fields...)
	return c
}

// Encode returns the accumulated fields followed by fs as a map. Later
// fields win on key collisions.
func (c Core) Encode(fs []zapcore.Field) map[string]interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.Fields {
		f.AddTo(enc)
	}
	for _, f := range fs {
		f.AddTo(enc)
	}
	return enc.Fields
}

// KeyValues flattens m into alternating keys and values, sorted by key.
func KeyValues(m map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	kv := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		kv = append(kv, k, m[k])
	}
	return kv
}
