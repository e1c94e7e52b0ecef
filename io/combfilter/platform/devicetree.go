// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package platform finds comb filter register blocks in a flattened device
// tree exposed as a directory, such as /proc/device-tree.
//
// Each node is a directory and each property a file. A node is a match when
// its compatible property lists one of the requested strings; its first reg
// entry, translated through the ranges of its ancestors, becomes the
// physical base and size of a driver.Resource.
package platform // import "github.com/audiomini/exp/io/combfilter/platform"

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/xerrors"

	"github.com/audiomini/exp/io/combfilter"
	"github.com/audiomini/exp/io/combfilter/driver"
)

// Root is where Linux exposes the live device tree.
const Root = "/proc/device-tree"

const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
)

// Discover walks fsys and returns a resource for every node compatible with
// one of match. With no match strings it looks for every known comb filter
// variant. Nodes that match but cannot be decoded are reported in the
// returned error, which wraps combfilter.ErrResource; the other nodes are
// still returned.
func Discover(fsys fs.FS, match ...string) ([]driver.Resource, error) {
	if len(match) == 0 {
		for _, v := range combfilter.Variants {
			match = append(match, v.Compatible)
		}
	}

	var (
		res  []driver.Resource
		errs error
	)
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		compat, ok := matchNode(fsys, p, match)
		if !ok {
			return nil
		}
		r, err := resource(fsys, p, compat)
		if err != nil {
			errs = multierr.Append(errs, xerrors.Errorf("platform: node %s: %v: %w", p, err, combfilter.ErrResource))
			return nil
		}
		res = append(res, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, errs
}

// matchNode reports the first string in match listed by the node's
// compatible property.
func matchNode(fsys fs.FS, node string, match []string) (string, bool) {
	b, err := fs.ReadFile(fsys, path.Join(node, "compatible"))
	if err != nil {
		return "", false
	}
	for _, c := range bytes.Split(bytes.TrimRight(b, "\x00"), []byte{0}) {
		for _, m := range match {
			if string(c) == m {
				return m, true
			}
		}
	}
	return "", false
}

func resource(fsys fs.FS, node, compat string) (driver.Resource, error) {
	parent := path.Dir(node)
	ac, err := cellCount(fsys, parent, "#address-cells", defaultAddressCells)
	if err != nil {
		return driver.Resource{}, err
	}
	sc, err := cellCount(fsys, parent, "#size-cells", defaultSizeCells)
	if err != nil {
		return driver.Resource{}, err
	}
	reg, err := fs.ReadFile(fsys, path.Join(node, "reg"))
	if err != nil {
		return driver.Resource{}, err
	}
	entry := 4 * (ac + sc)
	if entry == 0 || len(reg) < entry || len(reg)%entry != 0 {
		return driver.Resource{}, fmt.Errorf("reg is %d bytes, want a multiple of %d", len(reg), entry)
	}
	addr, err := cells(reg[:4*ac])
	if err != nil {
		return driver.Resource{}, err
	}
	size, err := cells(reg[4*ac : entry])
	if err != nil {
		return driver.Resource{}, err
	}
	base, err := translate(fsys, parent, addr)
	if err != nil {
		return driver.Resource{}, err
	}

	name := path.Base(node)
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	if v, ok := combfilter.VariantFor(compat); ok {
		name = v.Name
	}
	return driver.Resource{Name: name, Compatible: compat, Base: base, Size: int64(size)}, nil
}

// translate maps a bus address through the ranges property of bus and each
// of its ancestors. A missing or empty ranges property is an identity map.
func translate(fsys fs.FS, bus string, addr uint64) (uint64, error) {
	for bus != "." && bus != "/" {
		parent := path.Dir(bus)
		ranges, err := fs.ReadFile(fsys, path.Join(bus, "ranges"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
		if len(ranges) > 0 {
			addr, err = applyRanges(fsys, bus, parent, ranges, addr)
			if err != nil {
				return 0, err
			}
		}
		bus = parent
	}
	return addr, nil
}

func applyRanges(fsys fs.FS, bus, parent string, ranges []byte, addr uint64) (uint64, error) {
	cac, err := cellCount(fsys, bus, "#address-cells", defaultAddressCells)
	if err != nil {
		return 0, err
	}
	csc, err := cellCount(fsys, bus, "#size-cells", defaultSizeCells)
	if err != nil {
		return 0, err
	}
	pac, err := cellCount(fsys, parent, "#address-cells", defaultAddressCells)
	if err != nil {
		return 0, err
	}
	entry := 4 * (cac + pac + csc)
	if cac == 0 || entry == 0 {
		return 0, fmt.Errorf("%s has ranges but #address-cells = 0", bus)
	}
	if len(ranges)%entry != 0 {
		return 0, fmt.Errorf("%s/ranges is %d bytes, want a multiple of %d", bus, len(ranges), entry)
	}
	for b := ranges; len(b) > 0; b = b[entry:] {
		child, err := cells(b[:4*cac])
		if err != nil {
			return 0, err
		}
		par, err := cells(b[4*cac : 4*(cac+pac)])
		if err != nil {
			return 0, err
		}
		size, err := cells(b[4*(cac+pac) : entry])
		if err != nil {
			return 0, err
		}
		if addr >= child && addr-child < size {
			return par + (addr - child), nil
		}
	}
	return 0, fmt.Errorf("address %#x is outside the ranges of %s", addr, bus)
}

func cellCount(fsys fs.FS, node, prop string, def int) (int, error) {
	b, err := fs.ReadFile(fsys, path.Join(node, prop))
	if errors.Is(err, fs.ErrNotExist) {
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	if len(b) != 4 {
		return 0, fmt.Errorf("%s/%s is %d bytes, want 4", node, prop, len(b))
	}
	n := binary.BigEndian.Uint32(b)
	if n > 2 {
		return 0, fmt.Errorf("%s/%s = %d, at most 2 cells are supported", node, prop, n)
	}
	return int(n), nil
}

// cells decodes up to two big-endian 32-bit cells.
func cells(b []byte) (uint64, error) {
	var v uint64
	switch len(b) {
	case 0:
	case 4:
		v = uint64(binary.BigEndian.Uint32(b))
	case 8:
		v = binary.BigEndian.Uint64(b)
	default:
		return 0, fmt.Errorf("unsupported cell length %d", len(b))
	}
	return v, nil
}
