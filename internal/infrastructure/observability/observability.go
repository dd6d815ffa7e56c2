// Package observability assembles the application's Observability from concrete backends.
package observability

import (
	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"
)

// Instruments are the metric instruments declared at startup, keyed for lookup by use cases.
type Instruments struct {
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

// New bundles tracer, logger and instruments. Missing parts fall back to no-ops, and keys
// that were never declared resolve to no-op instruments.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &provider{
		tracer:  tracer,
		logger:  logger,
		metrics: newInstruments(counters, histograms),
	}
}

func newInstruments(
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) *Instruments {
	in := &Instruments{
		Counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		Histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, c := range counters {
		if c != nil {
			in.Counters[k] = c
		}
	}
	for k, h := range histograms {
		if h != nil {
			in.Histograms[k] = h
		}
	}
	return in
}

func (in *Instruments) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := in.Counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (in *Instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := in.Histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }
