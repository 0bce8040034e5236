package otel

import (
	"context"
	"errors"
	"fmt"

	goTMDB "github.com/MrEthical07/goTMDB"
	"github.com/MrEthical07/goTMDB/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goTMDB.MetricsSnapshot
	AuditDropped() uint64
}

// latency holds the three instruments that stand in for one histogram.
// Async instruments cannot record histograms, so buckets go out as a single
// gauge with an "le" attribute.
type latency struct {
	id      goTMDB.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	sum     metric.Float64ObservableGauge
}

// Exporter mirrors engine snapshots into OpenTelemetry observable instruments.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	counters     map[goTMDB.MetricID]metric.Int64ObservableCounter
	latencies    []latency
	auditDropped metric.Int64ObservableCounter

	// one precomputed attribute set per bucket
	le [internaldefs.BucketCount]metric.ObserveOption
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *goTMDB.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource is NewExporter for anything that can produce a
// snapshot. Tests use it with a fake source.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{
		source:   source,
		counters: make(map[goTMDB.MetricID]metric.Int64ObservableCounter, len(internaldefs.CounterDefs)),
	}
	for i := range e.le {
		e.le[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", internaldefs.BucketLabel(i))))
	}

	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters[def.ID] = ins
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		l, err := newLatency(meter, def)
		if err != nil {
			return nil, err
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, l.buckets, l.count, l.sum)
	}

	dropped, err := meter.Int64ObservableCounter(
		internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatency(meter metric.Meter, def internaldefs.HistogramDef) (latency, error) {
	l := latency{id: def.ID}
	var err error

	l.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."))
	if err != nil {
		return l, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	l.count, err = meter.Int64ObservableGauge(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return l, fmt.Errorf("gauge %s_count: %w", def.Name, err)
	}
	l.sum, err = meter.Float64ObservableGauge(def.Name+"_sum",
		metric.WithDescription(def.Help+" Sum of samples."), metric.WithUnit("s"))
	if err != nil {
		return l, fmt.Errorf("gauge %s_sum: %w", def.Name, err)
	}
	return l, nil
}

// observe takes one snapshot per collection so every instrument reports the
// same instant.
func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for id, ins := range e.counters {
		if v, ok := snap.Counters[id]; ok {
			o.ObserveInt64(ins, int64(v))
		}
	}

	for _, l := range e.latencies {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[l.id]))
		for i, v := range cum {
			o.ObserveInt64(l.buckets, int64(v), e.le[i])
		}
		o.ObserveInt64(l.count, int64(cum[len(cum)-1]))
		o.ObserveFloat64(l.sum, snap.Sums[l.id])
	}

	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
