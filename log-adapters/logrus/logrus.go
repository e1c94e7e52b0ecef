// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zlogrus provides a zapcore.Core that writes to a logrus Logger.
// To send device logs to logrus:
//   log := zap.New(zlogrus.NewCore(logrus.StandardLogger(), zap.InfoLevel))
//   dev, err := combfilter.Map(res, opener, combfilter.WithLogger(log))
package zlogrus

import (
	"github.com/sirupsen/logrus"
	"go.uber.org/zap/zapcore"

	"github.com/audiomini/exp/log-adapters/internal"
)

type core struct {
	internal.Core
	log *logrus.Logger
}

var _ zapcore.Core = (*core)(nil)

func NewCore(l *logrus.Logger, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{Core: internal.Core{LevelEnabler: enab}, log: l}
}

func (c *core) Enabled(lvl zapcore.Level) bool {
	return c.Core.Enabled(lvl) && c.log.IsLevelEnabled(level(lvl))
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
	fields := c.Encode(fs)
	if e.LoggerName != "" {
		fields["logger"] = e.LoggerName
	}
	c.log.WithFields(logrus.Fields(fields)).WithTime(e.Time).Log(level(e.Level), e.Message)
	return nil
}

func (c *core) Sync() error { return nil }

// level maps a zap level to logrus. Panic and fatal entries are logged at
// error level; zap itself panics or exits after writing them.
func level(l zapcore.Level) logrus.Level {
	switch {
	case l < zapcore.InfoLevel:
		return logrus.DebugLevel
	case l == zapcore.InfoLevel:
		return logrus.InfoLevel
	case l == zapcore.WarnLevel:
		return logrus.WarnLevel
	}
	return logrus.ErrorLevel
}
