// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package combfilter

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/audiomini/exp/io/combfilter"

// Names of the counters a device reports to its MeterProvider. Each
// measurement carries the device name as the device.name attribute.
const (
	MetricReads             = "combfilter.reads"
	MetricWrites            = "combfilter.writes"
	MetricGuardAcquisitions = "combfilter.guard_acquisitions"
	MetricFaults            = "combfilter.faults"
)

// instruments mirrors the Stats counters of one device into otel.
type instruments struct {
	reads  metric.Int64Counter
	writes metric.Int64Counter
	guards metric.Int64Counter
	faults metric.Int64Counter
	attrs  []attribute.KeyValue
}

func newInstruments(mp metric.MeterProvider, name string) *instruments {
	m := metric.Must(mp.Meter(instrumentationName))
	return &instruments{
		reads:  m.NewInt64Counter(MetricReads, metric.WithDescription("register loads")),
		writes: m.NewInt64Counter(MetricWrites, metric.WithDescription("register stores")),
		guards: m.NewInt64Counter(MetricGuardAcquisitions, metric.WithDescription("write guard acquisitions")),
		faults: m.NewInt64Counter(MetricFaults, metric.WithDescription("writes rejected for short caller data")),
		attrs:  []attribute.KeyValue{attribute.String("device.name", name)},
	}
}

// inc records one event. Register accesses carry no context, so the
// measurement is taken against the background context.
func (in *instruments) inc(c metric.Int64Counter) {
	c.Add(context.Background(), 1, in.attrs...)
}
