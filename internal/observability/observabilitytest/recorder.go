// Package observabilitytest records metrics and logs in memory for assertions.
package observabilitytest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/salemaljebaly/mstore-api-optimizer/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Recorder is an observability.Observability whose counters, histograms and log lines can be read back.
type Recorder struct {
	mu       sync.Mutex
	counters map[string]float64
	observed map[string]int
	entries  []Entry
}

// Entry is one recorded log line.
type Entry struct {
	Level  string
	Msg    string
	Fields map[string]any
}

func New() *Recorder {
	return &Recorder{counters: map[string]float64{}, observed: map[string]int{}}
}

func (r *Recorder) Tracer() observability.Tracer   { return tracer{} }
func (r *Recorder) Logger() observability.Logger   { return &logger{r: r} }
func (r *Recorder) Metrics() observability.Metrics { return r }

func (r *Recorder) Counter(name observability.MetricKey) observability.Counter {
	return &counter{r: r, name: string(name)}
}

func (r *Recorder) Histogram(name observability.MetricKey) observability.Histogram {
	return &histogram{r: r, name: string(name)}
}

// Count returns the counter value for name with exactly these labels.
func (r *Recorder) Count(name observability.MetricKey, labels ...observability.Label) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[key(string(name), labels)]
}

// Observations returns how many values were observed for name with exactly these labels.
func (r *Recorder) Observations(name observability.MetricKey, labels ...observability.Label) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.observed[key(string(name), labels)]
}

// Entries returns the log lines with msg, or all of them when msg is empty.
func (r *Recorder) Entries(msg string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if msg == "" || e.Msg == msg {
			out = append(out, e)
		}
	}
	return out
}

func key(name string, labels []observability.Label) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Key+"="+l.Value)
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}

type counter struct {
	r      *Recorder
	name   string
	labels []observability.Label
}

func (c *counter) Add(delta float64, labels ...observability.Label) {
	all := append(append([]observability.Label(nil), c.labels...), labels...)
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	c.r.counters[key(c.name, all)] += delta
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return boundCounter{&counter{r: c.r, name: c.name, labels: append(append([]observability.Label(nil), c.labels...), labels...)}}
}

type boundCounter struct{ c *counter }

func (b boundCounter) Add(delta float64) { b.c.Add(delta) }

type histogram struct {
	r      *Recorder
	name   string
	labels []observability.Label
}

func (h *histogram) Observe(_ float64, labels ...observability.Label) {
	all := append(append([]observability.Label(nil), h.labels...), labels...)
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	h.r.observed[key(h.name, all)]++
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return boundHistogram{&histogram{r: h.r, name: h.name, labels: append(append([]observability.Label(nil), h.labels...), labels...)}}
}

type boundHistogram struct{ h *histogram }

func (b boundHistogram) Observe(v float64) { b.h.Observe(v) }

type logger struct {
	r      *Recorder
	fields []observability.Field
}

func (l *logger) With(fields ...observability.Field) observability.Logger {
	return &logger{r: l.r, fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func (l *logger) Debug(msg string, fields ...observability.Field) { l.log("debug", msg, fields) }
func (l *logger) Info(msg string, fields ...observability.Field)  { l.log("info", msg, fields) }
func (l *logger) Warn(msg string, fields ...observability.Field)  { l.log("warn", msg, fields) }
func (l *logger) Error(msg string, fields ...observability.Field) { l.log("error", msg, fields) }

func (l *logger) log(level, msg string, fields []observability.Field) {
	m := make(map[string]any, len(l.fields)+len(fields))
	for _, f := range l.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	l.r.entries = append(l.r.entries, Entry{Level: level, Msg: msg, Fields: m})
}

type tracer struct{}

func (tracer) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}
