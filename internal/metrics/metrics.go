// Package metrics keeps process counters for sends, uploads, store writes
// and health checks, rendered in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

// SendKind says how a send was answered.
type SendKind string

const (
	SendText  SendKind = "text"
	SendFile  SendKind = "file"
	SendLocal SendKind = "local"
)

// Metrics holds runtime counters for scanchat
type Metrics struct {
	// Exchanges
	TextSends     atomic.Int64
	TextFailures  atomic.Int64
	Uploads       atomic.Int64
	UploadErrors  atomic.Int64
	LocalAnswers  atomic.Int64
	RejectedSends atomic.Int64

	// Persistence
	StoreWrites      atomic.Int64
	StoreWriteErrors atomic.Int64

	// Health checks
	HealthChecks        atomic.Int64
	HealthCheckFailures atomic.Int64

	// Timing (last operation duration in ms)
	LastSendDurationMs atomic.Int64

	startTime time.Time
}

var (
	global     *Metrics
	globalOnce sync.Once
)

// Global returns the global metrics instance
func Global() *Metrics {
	globalOnce.Do(func() {
		global = New()
	})
	return global
}

// New returns an empty set of counters.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordSend records one completed exchange.
func (m *Metrics) RecordSend(kind SendKind, success bool, d time.Duration) {
	switch kind {
	case SendFile:
		m.Uploads.Add(1)
		if !success {
			m.UploadErrors.Add(1)
		}
	case SendLocal:
		m.LocalAnswers.Add(1)
	default:
		m.TextSends.Add(1)
		if !success {
			m.TextFailures.Add(1)
		}
	}
	m.LastSendDurationMs.Store(d.Milliseconds())
}

// RecordRejected counts sends refused before any remote call.
func (m *Metrics) RecordRejected() {
	m.RejectedSends.Add(1)
}

// RecordStoreWrite records a write of the session collection.
func (m *Metrics) RecordStoreWrite(success bool) {
	m.StoreWrites.Add(1)
	if !success {
		m.StoreWriteErrors.Add(1)
	}
}

// RecordHealthCheck records a health check
func (m *Metrics) RecordHealthCheck(healthy bool) {
	m.HealthChecks.Add(1)
	if !healthy {
		m.HealthCheckFailures.Add(1)
	}
}

// Snapshot returns the counters keyed by metric name.
func (m *Metrics) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(m.series()))
	for _, s := range m.series() {
		out[s.name] = s.value
	}
	return out
}

type series struct {
	name  string
	help  string
	kind  string
	value int64
}

func (m *Metrics) series() []series {
	return []series{
		{"scanchat_text_sends_total", "Text messages sent to the chat endpoint", "counter", m.TextSends.Load()},
		{"scanchat_text_failures_total", "Text messages answered with an error reply", "counter", m.TextFailures.Load()},
		{"scanchat_uploads_total", "Files uploaded for analysis", "counter", m.Uploads.Load()},
		{"scanchat_upload_errors_total", "Uploads answered with an error reply", "counter", m.UploadErrors.Load()},
		{"scanchat_local_answers_total", "Questions answered from the stored analysis", "counter", m.LocalAnswers.Load()},
		{"scanchat_rejected_sends_total", "Sends refused by validation or the in-flight guard", "counter", m.RejectedSends.Load()},
		{"scanchat_store_writes_total", "Writes of the session collection", "counter", m.StoreWrites.Load()},
		{"scanchat_store_write_errors_total", "Failed writes of the session collection", "counter", m.StoreWriteErrors.Load()},
		{"scanchat_health_checks_total", "Health checks performed", "counter", m.HealthChecks.Load()},
		{"scanchat_health_check_failures_total", "Health checks that found the client unhealthy", "counter", m.HealthCheckFailures.Load()},
		{"scanchat_last_send_duration_ms", "Duration of the last exchange", "gauge", m.LastSendDurationMs.Load()},
	}
}

// WriteTo renders every series in the Prometheus text format.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	var total int64
	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		total += int64(n)
		return err
	}

	if err := write("# HELP scanchat_uptime_seconds Time since scanchat started\n# TYPE scanchat_uptime_seconds gauge\nscanchat_uptime_seconds %.2f\n", time.Since(m.startTime).Seconds()); err != nil {
		return total, err
	}
	for _, s := range m.series() {
		if err := write("\n# HELP %s %s\n# TYPE %s %s\n%s %d\n", s.name, s.help, s.name, s.kind, s.name, s.value); err != nil {
			return total, err
		}
	}
	return total, nil
}
