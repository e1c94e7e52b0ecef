// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zgokit provides a zapcore.Core that writes to a go-kit logger.
package zgokit

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"go.uber.org/zap/zapcore"

	"github.com/audiomini/exp/log-adapters/internal"
)

type core struct {
	internal.Core
	log log.Logger
}

var _ zapcore.Core = (*core)(nil)

func NewCore(l log.Logger, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{Core: internal.Core{LevelEnabler: enab}, log: l}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	return &core{Core: c.Core.With(fields), log: c.log}
}

func (c *core) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

// Write logs the level and message first, then the logger name, then the
// fields sorted by key.
func (c *core) Write(e zapcore.Entry, fs []zapcore.Field) error {
	kv := []interface{}{level.Key(), levelValue(e.Level), "msg", e.Message}
	if e.LoggerName != "" {
		kv = append(kv, "logger", e.LoggerName)
	}
	kv = append(kv, internal.KeyValues(c.Encode(fs))...)
	return c.log.Log(kv...)
}

func (c *core) Sync() error { return nil }

func levelValue(l zapcore.Level) level.Value {
	switch {
	case l < zapcore.InfoLevel:
		return level.DebugValue()
	case l == zapcore.InfoLevel:
		return level.InfoValue()
	case l == zapcore.WarnLevel:
		return level.WarnValue()
	}
	return level.ErrorValue()
}
