package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealthChecker() {
	healthChecker = &HealthChecker{
		components: make(map[string]ComponentHealth),
		startTime:  time.Now(),
	}
}

func TestRegisterComponent(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("broker", true, "serving")

	require.Len(t, healthChecker.components, 1)
	comp := healthChecker.components["broker"]
	assert.True(t, comp.Healthy)
	assert.Equal(t, "serving", comp.Message)
}

func TestGetHealthAllHealthy(t *testing.T) {
	resetHealthChecker()
	SetVersion("1.0.0")

	RegisterComponent("broker", true, "")
	RegisterComponent("listener", true, "")

	health := GetHealth()
	assert.Equal(t, "healthy", health.Status)
	assert.Len(t, health.Components, 2)
	assert.Equal(t, "1.0.0", health.Version)
}

func TestGetHealthOneUnhealthy(t *testing.T) {
	resetHealthChecker()

	RegisterComponent("broker", true, "")
	UpdateComponent("listener", false, "bind failed")

	health := GetHealth()
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: bind failed", health.Components["listener"])
}

func TestHealthHandler(t *testing.T) {
	resetHealthChecker()
	RegisterComponent("broker", true, "")

	rec := httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var health HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)

	// Unhealthy components flip the status code.
	UpdateComponent("broker", false, "stopped")
	rec = httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
}
