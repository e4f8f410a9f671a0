// internal/monitoring/health_test.go
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthManager_GetHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		checks []HealthCheck
		want   HealthStatus
	}{
		{"no checks", nil, HealthStatusHealthy},
		{"all passing", []HealthCheck{{Name: "a", Check: ok}, {Name: "b", Critical: true, Check: ok}}, HealthStatusHealthy},
		{"optional failing", []HealthCheck{{Name: "a", Check: fail}, {Name: "b", Critical: true, Check: ok}}, HealthStatusDegraded},
		{"critical failing", []HealthCheck{{Name: "a", Check: ok}, {Name: "b", Critical: true, Check: fail}}, HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthManager("test")
			for _, c := range tt.checks {
				hm.RegisterCheck(c)
			}
			health := hm.GetHealth(context.Background())
			assert.Equal(t, tt.want, health.Status)
			assert.Len(t, health.Checks, len(tt.checks))
		})
	}
}

func TestHealthManager_ChecksSortedByName(t *testing.T) {
	hm := NewHealthManager("")
	hm.RegisterCheck(HealthCheck{Name: "zeta"})
	hm.RegisterCheck(HealthCheck{Name: "alpha"})

	health := hm.GetHealth(context.Background())
	require.Len(t, health.Checks, 2)
	assert.Equal(t, "alpha", health.Checks[0].Name)
	assert.Equal(t, "zeta", health.Checks[1].Name)
}

func TestHealthHandler(t *testing.T) {
	hm := NewHealthManager("1.2.3")
	hm.RegisterCheck(CookieHealthCheck(func() error { return errors.New("missing cookie xs") }))

	rec := httptest.NewRecorder()
	hm.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var health SystemHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	require.Len(t, health.Checks, 1)
	assert.Equal(t, "missing cookie xs", health.Checks[0].Error)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	hm := NewHealthManager("")
	hm.RegisterCheck(HealthCheck{Name: "session", Critical: true, Check: func(context.Context) error {
		return errors.New("banned")
	}})

	rec := httptest.NewRecorder()
	hm.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
