package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	syncRuns         *prometheus.CounterVec // total syncs
	syncDuration     prometheus.Histogram   // time to sync
	lastSync         prometheus.Gauge       // unix time of last finished sync
	dnsOperations    *prometheus.CounterVec // planned and applied dns operations
	dnsRequests      *prometheus.CounterVec // dns provider requests
	ownedRecords     prometheus.Gauge       // records carrying the ownership remark
	inventoryHosts   prometheus.Gauge       // desired hostnames
	inventoryRequest *prometheus.CounterVec // inventory requests
	stateRequests    *prometheus.CounterVec // badgerdb requests
}

func (m *Metrics) IncSyncRun(success bool) {
	status := boolToResult(success)
	m.syncRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) SetSyncDuration(duration time.Duration) {
	m.syncDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetLastSync(t time.Time) {
	m.lastSync.Set(float64(t.Unix()))
}

func (m *Metrics) IncDNSOperation(operation, zone string, success bool) {
	if !isValidOperation(operation) || zone == "" {
		return
	}
	status := boolToResult(success)
	m.dnsOperations.WithLabelValues(operation, zone, status).Inc()
}

func (m *Metrics) IncDNSRequest(operation, zone string, success bool) {
	if !isValidOperation(operation) || zone == "" {
		return
	}
	status := boolToResult(success)
	m.dnsRequests.WithLabelValues(operation, zone, status).Inc()
}

func (m *Metrics) SetOwnedRecords(count int) {
	m.ownedRecords.Set(float64(count))
}

func (m *Metrics) SetInventoryHosts(count int) {
	m.inventoryHosts.Set(float64(count))
}

func (m *Metrics) IncInventoryRequest(success bool) {
	status := boolToResult(success)
	m.inventoryRequest.WithLabelValues(status).Inc()
}

func (m *Metrics) IncStateRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	status := boolToResult(success)
	m.stateRequests.WithLabelValues(operation, status).Inc()
}

func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "add", "remove", "read", "create", "annotate", "delete", "resolve", "update":
		return true
	}
	return false
}

func New(register bool) *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "pvtz_sync"

	m := &Metrics{
		registry: registry,

		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Total number of synchronization runs",
		}, []string{"status"}),

		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_duration_seconds",
			Help:      "Duration of synchronization runs in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		lastSync: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last finished synchronization run",
		}),

		dnsOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_operations_total",
			Help:      "Total record add and remove operations applied by app",
		}, []string{"operation", "zone", "status"}),

		dnsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dns_requests_total",
			Help:      "Total DNS provider requests",
		}, []string{"operation", "zone", "status"}),

		ownedRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "owned_records_current",
			Help:      "Current records owned by app",
		}),

		inventoryHosts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inventory_hosts_current",
			Help:      "Current hostnames derived from instance inventory",
		}),

		inventoryRequest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_requests_total",
			Help:      "Total instance inventory requests",
		}, []string{"status"}),

		stateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badgerdb_requests_total",
			Help:      "Total badgerdb requests",
		}, []string{"operation", "status"}),
	}

	if register {
		registry.MustRegister(
			m.syncRuns,
			m.syncDuration,
			m.lastSync,
			m.dnsOperations,
			m.dnsRequests,
			m.ownedRecords,
			m.inventoryHosts,
			m.inventoryRequest,
			m.stateRequests,
		)
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
