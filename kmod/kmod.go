// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package kmod loads and unloads Linux kernel modules and reports whether
// a module is resident.
package kmod // import "github.com/audiomini/exp/kmod"

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

var (
	// ErrLoaded is returned by Load when the module is already resident.
	ErrLoaded = errors.New("kmod: module already loaded")
	// ErrNotLoaded is returned by Unload when the module is not resident.
	ErrNotLoaded = errors.New("kmod: module not loaded")
)

// SysDir is where Linux lists resident modules.
const SysDir = "/sys/module"

// Modules manages kernel modules. The zero value uses SysDir and
// discards log output.
type Modules struct {
	// Dir overrides SysDir.
	Dir    string
	Logger *zap.Logger
}

func (m *Modules) dir() string {
	if m.Dir == "" {
		return SysDir
	}
	return m.Dir
}

func (m *Modules) log() *zap.Logger {
	if m.Logger == nil {
		return zap.NewNop()
	}
	return m.Logger
}

// Name returns the name the kernel gives the module in the object file at
// path: the base name without its .ko suffix, with dashes turned into
// underscores.
func Name(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".xz", ".zst", ".gz", ".ko"} {
		name = strings.TrimSuffix(name, ext)
	}
	return strings.ReplaceAll(name, "-", "_")
}

// Loaded reports whether the named module is resident.
func (m *Modules) Loaded(name string) (bool, error) {
	_, err := os.Stat(filepath.Join(m.dir(), Name(name)))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	}
	return false, xerrors.Errorf("kmod: %w", err)
}

// Load inserts the module object at path with the given parameter string.
func (m *Modules) Load(path, params string) error {
	name := Name(path)
	if ok, err := m.Loaded(name); err != nil {
		return err
	} else if ok {
		return xerrors.Errorf("kmod: %s: %w", name, ErrLoaded)
	}
	f, err := os.Open(path)
	if err != nil {
		return xerrors.Errorf("kmod: %w", err)
	}
	defer f.Close()
	if err := finitModule(f, params); err != nil {
		return xerrors.Errorf("kmod: load %s: %w", name, err)
	}
	m.log().Info("module loaded", zap.String("module", name), zap.String("path", path))
	return nil
}

// Unload removes the named module. It fails rather than waits when the
// module is in use.
func (m *Modules) Unload(name string) error {
	name = Name(name)
	if ok, err := m.Loaded(name); err != nil {
		return err
	} else if !ok {
		return xerrors.Errorf("kmod: %s: %w", name, ErrNotLoaded)
	}
	if err := deleteModule(name); err != nil {
		return xerrors.Errorf("kmod: unload %s: %w", name, err)
	}
	m.log().Info("module unloaded", zap.String("module", name))
	return nil
}
