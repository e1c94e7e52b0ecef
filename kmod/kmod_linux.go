// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package kmod

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func finitModule(f *os.File, params string) error {
	err := unix.FinitModule(int(f.Fd()), params, 0)
	if errors.Is(err, unix.EEXIST) {
		return ErrLoaded
	}
	return err
}

func deleteModule(name string) error {
	err := unix.DeleteModule(name, unix.O_NONBLOCK)
	if errors.Is(err, unix.ENOENT) {
		return ErrNotLoaded
	}
	return err
}
