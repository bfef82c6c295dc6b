// Package health aggregates component health for the /health endpoint and gRPC health service
package health

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"exchanges_gateway/internal/core"

	"github.com/goccy/go-json"
)

// HealthManager aggregates health status from different components
type HealthManager struct {
	logger core.ILogger
	mu     sync.RWMutex
	checks map[string]func() error
}

// NewHealthManager creates a new health manager
func NewHealthManager(logger core.ILogger) *HealthManager {
	if logger == nil {
		return &HealthManager{
			checks: make(map[string]func() error),
		}
	}
	return &HealthManager{
		logger: logger.WithField("component", "health_manager"),
		checks: make(map[string]func() error),
	}
}

// Register adds a new health check for a component
func (hm *HealthManager) Register(component string, check func() error) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checks[component] = check
}

// GetStatus returns the current status of all registered components
func (hm *HealthManager) GetStatus() map[string]string {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	status := make(map[string]string)
	for component, check := range hm.checks {
		if err := check(); err != nil {
			status[component] = "Unhealthy: " + err.Error()
		} else {
			status[component] = "Healthy"
		}
	}
	return status
}

// IsHealthy returns true if all registered components are healthy
func (hm *HealthManager) IsHealthy() bool {
	hm.mu.RLock()
	defer hm.mu.RUnlock()

	for _, check := range hm.checks {
		if err := check(); err != nil {
			return false
		}
	}
	return true
}

// ServeHTTP writes {"healthy": bool, "components": {...}}; 503 when unhealthy
func (hm *HealthManager) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	status := hm.GetStatus()
	healthy := true
	for _, s := range status {
		if s != "Healthy" {
			healthy = false
			break
		}
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{"healthy": healthy, "components": status}); err != nil && hm.logger != nil {
		hm.logger.Warn("failed to write health response", "error", err)
	}
}

// CredentialCheck reports which of the named credential fields are empty.
// Values are only tested for presence and never included in the error.
func CredentialCheck(fields map[string]string) func() error {
	return func() error {
		var missing []string
		for name, value := range fields {
			if value == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		sort.Strings(missing)
		return fmt.Errorf("missing %s", strings.Join(missing, ", "))
	}
}
