package metrics

import (
	"bytes"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// DefaultNamespace prefixes every exported metric name.
const DefaultNamespace = "hydrahost"

// Label carried by every per-server metric.
const serverLabel = "server"

// Registry tracks the ServerMetrics of all running servers.
//
// Registry implements prometheus.Collector. It is registered into a private
// prometheus.Registry so that the host never touches the global default one.
type Registry struct {
	namespace string
	logger    *slog.Logger

	mu      sync.RWMutex
	servers map[string]*ServerMetrics

	prom *prometheus.Registry
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report collection failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// WithRuntimeMetrics adds the Go runtime and process collectors to the
// exposition, after the server blocks.
func WithRuntimeMetrics() Option {
	return func(r *Registry) {
		r.prom.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
}

// NewRegistry creates an empty registry. An empty namespace selects
// DefaultNamespace.
func NewRegistry(namespace string, opts ...Option) *Registry {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	r := &Registry{
		namespace: sanitize(namespace),
		logger:    slog.Default(),
		servers:   make(map[string]*ServerMetrics),
		prom:      prometheus.NewRegistry(),
	}
	r.prom.MustRegister(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Namespace returns the metric name prefix.
func (r *Registry) Namespace() string { return r.namespace }

// Register adds m under its server name. It returns false and leaves the
// registry unchanged if the name is already taken.
func (r *Registry) Register(m *ServerMetrics) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.servers[m.Name()]; exists {
		return false
	}
	r.servers[m.Name()] = m
	return true
}

// Unregister removes the metrics registered under name.
// It reports whether anything was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.servers[name]; !ok {
		return false
	}
	delete(r.servers, name)
	return true
}

// UnregisterMetrics removes m only if it is the instance registered under its
// name. A server that lost the first-registrant race must not evict the winner.
func (r *Registry) UnregisterMetrics(m *ServerMetrics) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.servers[m.Name()]; !ok || cur != m {
		return false
	}
	delete(r.servers, m.Name())
	return true
}

// Get returns the metrics registered under name.
func (r *Registry) Get(name string) (*ServerMetrics, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.servers[name]
	return m, ok
}

// Snapshot returns a copy of every registered server's metrics, sorted by name.
func (r *Registry) Snapshot() []Snapshot {
	servers := r.sorted()
	out := make([]Snapshot, 0, len(servers))
	for _, m := range servers {
		out = append(out, m.Snapshot())
	}
	return out
}

func (r *Registry) sorted() []*ServerMetrics {
	r.mu.RLock()
	out := make([]*ServerMetrics, 0, len(r.servers))
	for _, m := range r.servers {
		out = append(out, m)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b *ServerMetrics) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// Describe sends nothing: the set of metrics depends on which servers are
// registered, so the registry is an unchecked collector.
func (r *Registry) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	snaps := r.Snapshot()

	var agg Snapshot
	for _, s := range snaps {
		agg.ActiveConnections += s.ActiveConnections
		agg.TotalConnections += s.TotalConnections
		agg.TotalRequests += s.TotalRequests
		agg.BytesSent += s.BytesSent
		agg.BytesReceived += s.BytesReceived
		agg.TotalErrors += s.TotalErrors
	}
	ch <- r.constMetric(r.aggregateName("servers_registered"), "Number of servers with registered metrics.",
		prometheus.GaugeValue, float64(len(snaps)))
	r.emit(ch, r.aggregateName, agg)

	for _, s := range snaps {
		prefix := r.serverPrefix(s.Kind)
		name := func(metric string) string { return prefix + metric }
		r.emit(ch, name, s, s.Name)
		ch <- r.constMetric(name("uptime_seconds"), "Seconds since the server started.",
			prometheus.GaugeValue, s.UptimeSeconds, s.Name)

		for _, counter := range slices.Sorted(maps.Keys(s.Custom)) {
			metric := sanitize(counter)
			if reservedCounter[metric] {
				continue
			}
			ch <- r.constMetric(name(metric+"_total"), "Server specific counter "+metric+".",
				prometheus.CounterValue, float64(s.Custom[counter]), s.Name)
		}
	}
}

// emit writes the standard counters of s. With a server name the metrics
// carry the server label.
func (r *Registry) emit(ch chan<- prometheus.Metric, name func(string) string, s Snapshot, server ...string) {
	ch <- r.constMetric(name("connections_active"), "Connections or datagrams currently being handled.",
		prometheus.GaugeValue, float64(s.ActiveConnections), server...)
	ch <- r.constMetric(name("connections_total"), "Connections accepted or datagrams received.",
		prometheus.CounterValue, float64(s.TotalConnections), server...)
	ch <- r.constMetric(name("requests_total"), "Protocol requests handled.",
		prometheus.CounterValue, float64(s.TotalRequests), server...)
	ch <- r.constMetric(name("bytes_sent_total"), "Bytes written to clients.",
		prometheus.CounterValue, float64(s.BytesSent), server...)
	ch <- r.constMetric(name("bytes_received_total"), "Bytes read from clients.",
		prometheus.CounterValue, float64(s.BytesReceived), server...)
	ch <- r.constMetric(name("errors_total"), "Handler failures.",
		prometheus.CounterValue, float64(s.TotalErrors), server...)
}

func (r *Registry) constMetric(name, help string, vt prometheus.ValueType, v float64, server ...string) prometheus.Metric {
	var labels []string
	if len(server) > 0 {
		labels = []string{serverLabel}
	}
	return prometheus.MustNewConstMetric(prometheus.NewDesc(name, help, labels, nil), vt, v, server...)
}

func (r *Registry) aggregateName(metric string) string {
	return r.namespace + "_" + metric
}

func (r *Registry) serverPrefix(kind string) string {
	return r.namespace + "_" + sanitize(kind) + "_"
}

// Render writes the registry in the Prometheus text format. Aggregate
// families come first, then the per-server families, then anything else
// registered (runtime collectors).
func (r *Registry) Render(w io.Writer) error {
	families, err := r.prom.Gather()
	if err != nil {
		return err
	}

	serverNames := make(map[string]bool)
	for _, m := range r.sorted() {
		serverNames[r.serverPrefix(m.Kind())] = true
	}
	rank := func(mf *dto.MetricFamily) int {
		name := mf.GetName()
		for prefix := range serverNames {
			if strings.HasPrefix(name, prefix) {
				return 1
			}
		}
		if strings.HasPrefix(name, r.namespace+"_") {
			return 0
		}
		return 2
	}
	slices.SortStableFunc(families, func(a, b *dto.MetricFamily) int { return rank(a) - rank(b) })

	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// Text renders the registry to a string.
func (r *Registry) Text() (string, error) {
	var buf bytes.Buffer
	err := r.Render(&buf)
	return buf.String(), err
}

// Handler serves Render over HTTP.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		if err := r.Render(&buf); err != nil {
			r.logger.Error("metrics render failed", "err", err)
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
	})
}

// reservedCounter holds custom counter names that would collide with the
// standard per-server families once "_total" is appended.
var reservedCounter = map[string]bool{
	"connections":    true,
	"requests":       true,
	"bytes_sent":     true,
	"bytes_received": true,
	"errors":         true,
}

// sanitize lowercases s and replaces anything outside [a-z0-9_] with '_'.
func sanitize(s string) string {
	s = strings.ToLower(s)
	b := []byte(s)
	for i, c := range b {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			b[i] = '_'
		}
	}
	if len(b) > 0 && b[0] >= '0' && b[0] <= '9' {
		return "_" + string(b)
	}
	return string(b)
}
