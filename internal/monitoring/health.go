// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a single health check
type HealthCheck struct {
	Name     string                          `json:"name"`
	Critical bool                            `json:"critical"`
	Timeout  time.Duration                   `json:"-"`
	Check    func(ctx context.Context) error `json:"-"`
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Name     string        `json:"name"`
	Status   HealthStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Critical bool          `json:"critical"`
}

// SystemHealth represents overall service health
type SystemHealth struct {
	Status         HealthStatus        `json:"status"`
	Timestamp      time.Time           `json:"timestamp"`
	Version        string              `json:"version,omitempty"`
	Uptime         string              `json:"uptime"`
	GoroutineCount int                 `json:"goroutine_count"`
	Checks         []HealthCheckResult `json:"checks,omitempty"`
}

// HealthManager runs the registered checks on every health request
type HealthManager struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	version string
	started time.Time
	timeout time.Duration
}

// NewHealthManager creates a new health manager
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checks:  make(map[string]HealthCheck),
		version: version,
		started: time.Now(),
		timeout: 10 * time.Second,
	}
}

// RegisterCheck registers a new health check, replacing one with the same name
func (hm *HealthManager) RegisterCheck(check HealthCheck) {
	if check.Timeout == 0 {
		check.Timeout = hm.timeout
	}
	hm.mu.Lock()
	hm.checks[check.Name] = check
	hm.mu.Unlock()
}

// GetHealth runs every check concurrently and folds the results. A failing
// critical check makes the service unhealthy, any other failure degraded.
func (hm *HealthManager) GetHealth(ctx context.Context) SystemHealth {
	hm.mu.RLock()
	checks := make([]HealthCheck, 0, len(hm.checks))
	for _, c := range hm.checks {
		checks = append(checks, c)
	}
	hm.mu.RUnlock()

	results := make([]HealthCheckResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runCheck(ctx, c)
		}()
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	status := HealthStatusHealthy
	for _, r := range results {
		if r.Status != HealthStatusUnhealthy {
			continue
		}
		if r.Critical {
			status = HealthStatusUnhealthy
		} else if status == HealthStatusHealthy {
			status = HealthStatusDegraded
		}
	}

	return SystemHealth{
		Status:         status,
		Timestamp:      time.Now(),
		Version:        hm.version,
		Uptime:         time.Since(hm.started).Round(time.Second).String(),
		GoroutineCount: runtime.NumGoroutine(),
		Checks:         results,
	}
}

func runCheck(ctx context.Context, check HealthCheck) HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, check.Timeout)
	defer cancel()

	start := time.Now()
	result := HealthCheckResult{Name: check.Name, Status: HealthStatusHealthy, Critical: check.Critical}
	if check.Check != nil {
		if err := check.Check(ctx); err != nil {
			result.Status = HealthStatusUnhealthy
			result.Error = err.Error()
		}
	}
	result.Duration = time.Since(start)
	return result
}

// HealthHandler returns the HTTP handler for the health endpoint
func (hm *HealthManager) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := hm.GetHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if health.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(health)
	}
}

// CookieHealthCheck reports whether the session cookies are usable
func CookieHealthCheck(validate func() error) HealthCheck {
	return HealthCheck{
		Name:     "cookies",
		Critical: false,
		Check: func(ctx context.Context) error {
			return validate()
		},
	}
}
