// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux
// +build !linux

package kmod

import (
	"errors"
	"os"
)

var errUnsupported = errors.New("kernel modules are only supported on linux")

func finitModule(f *os.File, params string) error { return errUnsupported }

func deleteModule(name string) error { return errUnsupported }
