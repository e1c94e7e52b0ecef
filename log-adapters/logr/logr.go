// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zlogr provides a zapcore.Core that writes to a logr.Logger.
//
// Debug entries are logged at verbosity 1 and info and warn entries at
// verbosity 0. Entries at error level and above go to Logger.Error, with
// the error taken from a zap.Error field when there is one.
package zlogr

import (
	"github.com/go-logr/logr"
	"go.uber.org/zap/zapcore"

	"github.com/audiomini/exp/log-adapters/internal"
)

type core struct {
	internal.Core
	log logr.Logger
}

var _ zapcore.Core = (*core)(nil)

func NewCore(l logr.Logger, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{Core: internal.Core{LevelEnabler: enab}, log: l}
}

func (c *core) Enabled(lvl zapcore.Level) bool {
	if !c.Core.Enabled(lvl) {
		return false
	}
	return lvl >= zapcore.ErrorLevel || c.log.V(verbosity(lvl)).Enabled()
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
	l := c.log
	if e.LoggerName != "" {
		l = l.WithName(e.LoggerName)
	}
	fields := c.Encode(fs)
	if e.Level < zapcore.ErrorLevel {
		l.V(verbosity(e.Level)).Info(e.Message, internal.KeyValues(fields)...)
		return nil
	}
	var err error
	for _, group := range [][]zapcore.Field{c.Fields, fs} {
		for _, f := range group {
			if fe, ok := f.Interface.(error); ok && f.Type == zapcore.ErrorType {
				err = fe
				delete(fields, f.Key)
				delete(fields, f.Key+"Verbose")
			}
		}
	}
	l.Error(err, e.Message, internal.KeyValues(fields)...)
	return nil
}

func (c *core) Sync() error { return nil }

func verbosity(l zapcore.Level) int {
	if l < zapcore.InfoLevel {
		return 1
	}
	return 0
}
