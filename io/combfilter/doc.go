// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package combfilter allows users to configure the Audio Mini comb filter
// effect through its memory-mapped register block.
//
// The block is a 16-byte window holding four 32-bit slots: delay, b0, bm and
// wetDryMix. A Device reaches them through two interfaces that observe the
// same registers:
//
//   - a byte-stream interface (ReadWord, WriteWord and the File handle
//     returned by Open) that moves one aligned 4-byte word per call, and
//   - a scalar attribute interface (Get and Set) that renders each register
//     as a decimal unsigned integer.
//
// All writes, from either interface, go through a single per-device guard.
// Reads are single atomic loads and never wait for writers.
//
// Devices are usually obtained from a Registry:
//
//	reg := combfilter.NewRegistry(combfilter.WithLogger(logger))
//	dev, err := reg.Probe(ctx, res, &combfilter.Devmem{})
//	if err != nil {
//		// handle error
//	}
//	defer reg.Unregister(ctx, dev.Name())
//	dev.Set("b0", "1000")
//
// When the kernel driver is loaded instead, Devfs talks to its device node
// and sysfs attributes with the same method set.
package combfilter // import "github.com/audiomini/exp/io/combfilter"
