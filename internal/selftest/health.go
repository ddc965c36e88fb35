// Package selftest provides the doctor checks for scanchat.
package selftest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joss/scanchat/internal/api"
	"github.com/joss/scanchat/internal/domain"
	"github.com/joss/scanchat/internal/metrics"
	"github.com/joss/scanchat/internal/storage"
)

// ComponentStatus represents health of a single component
type ComponentStatus struct {
	Status  string `json:"status"` // ok, degraded, error
	Latency int64  `json:"latency_ms,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthStatus represents overall client health
type HealthStatus struct {
	Status     string                     `json:"status"` // healthy, degraded, unhealthy
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentStatus `json:"components"`
	LastError  string                     `json:"last_error,omitempty"`
	Timestamp  string                     `json:"timestamp"`
}

// Pinger is anything that can prove it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker holds the dependencies the checks exercise.
type Checker struct {
	Backend Pinger
	Store   domain.LocalStore
	Token   string

	// SlowAfter marks a reachable backend as degraded.
	SlowAfter time.Duration
	Now       func() time.Time
}

var (
	startTime = time.Now()
	lastError string
	errorMu   sync.RWMutex
)

// SetLastError records the most recent error for health reporting
func SetLastError(err error) {
	if err == nil {
		return
	}
	errorMu.Lock()
	defer errorMu.Unlock()
	lastError = err.Error()
}

// GetLastError returns the most recent error
func GetLastError() string {
	errorMu.RLock()
	defer errorMu.RUnlock()
	return lastError
}

// ClearLastError clears the last error
func ClearLastError() {
	errorMu.Lock()
	defer errorMu.Unlock()
	lastError = ""
}

// CheckHealth runs every check concurrently.
func (c *Checker) CheckHealth(ctx context.Context) *HealthStatus {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	status := &HealthStatus{
		Status:     "healthy",
		Uptime:     formatUptime(time.Since(startTime)),
		Components: make(map[string]ComponentStatus),
		Timestamp:  now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"backend", c.checkBackend},
		{"store", c.checkStore},
		{"auth", func(context.Context) ComponentStatus { return checkAuth(c.Token, now()) }},
	}

	for _, check := range checks {
		wg.Add(1)
		go func(name string, check func(context.Context) ComponentStatus) {
			defer wg.Done()
			result := check(ctx)
			mu.Lock()
			status.Components[name] = result
			if result.Status == "error" {
				status.Status = "unhealthy"
			} else if result.Status == "degraded" && status.Status == "healthy" {
				status.Status = "degraded"
			}
			mu.Unlock()
		}(check.name, check.check)
	}

	wg.Wait()

	metrics.Global().RecordHealthCheck(status.Status != "unhealthy")

	if le := GetLastError(); le != "" {
		status.LastError = le
	}

	return status
}

func (c *Checker) checkBackend(ctx context.Context) ComponentStatus {
	if c.Backend == nil {
		return ComponentStatus{Status: "error", Error: "no backend configured"}
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Backend.Ping(ctx); err != nil {
		return ComponentStatus{
			Status:  "error",
			Latency: time.Since(start).Milliseconds(),
			Error:   err.Error(),
		}
	}

	latency := time.Since(start)
	status := "ok"
	slow := c.SlowAfter
	if slow == 0 {
		slow = time.Second
	}
	if latency > slow {
		status = "degraded"
	}

	return ComponentStatus{
		Status:  status,
		Latency: latency.Milliseconds(),
	}
}

// checkStore loads the collection. A corrupt collection still lets the
// client run (it reads as empty) so it only degrades.
func (c *Checker) checkStore(ctx context.Context) ComponentStatus {
	if c.Store == nil {
		return ComponentStatus{Status: "error", Error: "no store configured"}
	}
	start := time.Now()

	_, err := c.Store.Load(ctx)
	latency := time.Since(start).Milliseconds()
	switch {
	case storage.IsCorrupt(err):
		return ComponentStatus{Status: "degraded", Latency: latency, Error: err.Error()}
	case err != nil:
		return ComponentStatus{Status: "error", Latency: latency, Error: err.Error()}
	}

	return ComponentStatus{Status: "ok", Latency: latency}
}

func checkAuth(token string, now time.Time) ComponentStatus {
	switch {
	case token == "":
		return ComponentStatus{Status: "degraded", Error: "no token configured, sessions stay local"}
	case !api.Authenticated(token, now):
		return ComponentStatus{Status: "degraded", Error: "token expired, sessions stay local"}
	}
	return ComponentStatus{Status: "ok"}
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd%dh%dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
