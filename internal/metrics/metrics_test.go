package metrics

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMetricsGlobal(t *testing.T) {
	m1 := Global()
	m2 := Global()

	if m1 != m2 {
		t.Error("Global() should return the same instance")
	}
}

func TestRecordSend(t *testing.T) {
	m := New()

	m.RecordSend(SendFile, true, 120*time.Millisecond)
	m.RecordSend(SendFile, false, 10*time.Millisecond)
	m.RecordSend(SendText, false, 30*time.Millisecond)
	m.RecordSend(SendLocal, true, time.Millisecond)

	if got := m.Uploads.Load(); got != 2 {
		t.Errorf("expected 2 uploads, got %d", got)
	}
	if got := m.UploadErrors.Load(); got != 1 {
		t.Errorf("expected 1 upload error, got %d", got)
	}
	if got := m.TextSends.Load(); got != 1 {
		t.Errorf("expected 1 text send, got %d", got)
	}
	if got := m.TextFailures.Load(); got != 1 {
		t.Errorf("expected 1 text failure, got %d", got)
	}
	if got := m.LocalAnswers.Load(); got != 1 {
		t.Errorf("expected 1 local answer, got %d", got)
	}
	if got := m.LastSendDurationMs.Load(); got != 1 {
		t.Errorf("expected last duration 1ms, got %d", got)
	}
}

func TestRecordStoreWriteAndHealth(t *testing.T) {
	m := New()

	m.RecordStoreWrite(true)
	m.RecordStoreWrite(false)
	m.RecordHealthCheck(true)
	m.RecordHealthCheck(false)
	m.RecordRejected()

	snap := m.Snapshot()
	want := map[string]int64{
		"scanchat_store_writes_total":          2,
		"scanchat_store_write_errors_total":    1,
		"scanchat_health_checks_total":         2,
		"scanchat_health_check_failures_total": 1,
		"scanchat_rejected_sends_total":        1,
	}
	for name, v := range want {
		if snap[name] != v {
			t.Errorf("%s: expected %d, got %d", name, v, snap[name])
		}
	}
}

func TestWriteToPrometheusFormat(t *testing.T) {
	m := New()
	m.RecordSend(SendText, true, 5*time.Millisecond)

	var buf bytes.Buffer
	n, err := m.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("reported %d bytes, wrote %d", n, buf.Len())
	}

	body := buf.String()
	for _, want := range []string{
		"# TYPE scanchat_uptime_seconds gauge",
		"# HELP scanchat_text_sends_total",
		"# TYPE scanchat_text_sends_total counter",
		"scanchat_text_sends_total 1\n",
		"scanchat_last_send_duration_ms 5\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in output", want)
		}
	}
}

func TestConcurrentMetricsRecording(t *testing.T) {
	m := New()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordSend(SendFile, true, time.Millisecond)
			m.RecordStoreWrite(true)
		}()
	}
	wg.Wait()

	if m.Uploads.Load() != 100 {
		t.Errorf("expected 100 uploads, got %d", m.Uploads.Load())
	}
	if m.StoreWrites.Load() != 100 {
		t.Errorf("expected 100 store writes, got %d", m.StoreWrites.Load())
	}
}
