// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zzerolog provides a zapcore.Core that writes to a zerolog Logger.
package zzerolog

import (
	"github.com/rs/zerolog"
	"go.uber.org/zap/zapcore"

	"github.com/audiomini/exp/log-adapters/internal"
)

type core struct {
	internal.Core
	log zerolog.Logger
}

var _ zapcore.Core = (*core)(nil)

func NewCore(l zerolog.Logger, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{Core: internal.Core{LevelEnabler: enab}, log: l}
}

func (c *core) Enabled(lvl zapcore.Level) bool {
	return c.Core.Enabled(lvl) && level(lvl) >= c.log.GetLevel()
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

func (c *core) Write(e zapcore.Entry, fs []zapcore.Field) error {
	// WithLevel never exits or panics, even for fatal and panic levels.
	ev := c.log.WithLevel(level(e.Level))
	if e.LoggerName != "" {
		ev = ev.Str("logger", e.LoggerName)
	}
	ev.Fields(c.Encode(fs)).Msg(e.Message)
	return nil
}

func (c *core) Sync() error { return nil }

func level(l zapcore.Level) zerolog.Level {
	switch l {
	case zapcore.DebugLevel:
		return zerolog.DebugLevel
	case zapcore.InfoLevel:
		return zerolog.InfoLevel
	case zapcore.WarnLevel:
		return zerolog.WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel:
		return zerolog.ErrorLevel
	case zapcore.PanicLevel:
		return zerolog.PanicLevel
	case zapcore.FatalLevel:
		return zerolog.FatalLevel
	}
	return zerolog.DebugLevel
}
