package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Upstream states.
const (
	StatusOK      = "OK"
	StatusBad     = "BAD"
	StatusUnknown = "N/A"
)

// ServiceStatus is the last observed health of an upstream dependency.
type ServiceStatus struct {
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Version      string    `json:"version,omitempty"`
	LastCheck    time.Time `json:"last_check"`
	ResponseTime int64     `json:"response_time"` // milliseconds
	Endpoint     string    `json:"endpoint"`
	Error        string    `json:"error,omitempty"`
}

// HealthChecker polls upstream engines the relay depends on.
type HealthChecker struct {
	mu            sync.RWMutex
	services      map[string]*ServiceStatus
	client        *http.Client
	checkInterval time.Duration
	logger        *zap.Logger
}

// NewHealthChecker creates a new service health checker
func NewHealthChecker(checkInterval time.Duration, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		services: make(map[string]*ServiceStatus),
		client: &http.Client{
			Timeout: 2 * time.Second,
		},
		checkInterval: checkInterval,
		logger:        logger.With(zap.String("component", "health")),
	}
}

// RegisterService adds an endpoint to monitor
func (hc *HealthChecker) RegisterService(name, endpoint string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.services[name] = &ServiceStatus{
		Name:      name,
		Status:    StatusUnknown,
		Endpoint:  endpoint,
		LastCheck: time.Now(),
	}
	hc.logger.Info("registered upstream", zap.String("name", name), zap.String("endpoint", endpoint))
}

// Run checks every registered service once, then again on each interval tick
// until ctx is done.
func (hc *HealthChecker) Run(ctx context.Context) error {
	hc.CheckAll(ctx)

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			hc.CheckAll(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// CheckAll polls every registered service and waits for the results.
func (hc *HealthChecker) CheckAll(ctx context.Context) {
	hc.mu.RLock()
	services := make(map[string]string, len(hc.services))
	for name, status := range hc.services {
		services[name] = status.Endpoint
	}
	hc.mu.RUnlock()

	var wg sync.WaitGroup
	for name, endpoint := range services {
		wg.Add(1)
		go func(name, endpoint string) {
			defer wg.Done()
			hc.checkService(ctx, name, endpoint)
		}(name, endpoint)
	}
	wg.Wait()
}

func (hc *HealthChecker) checkService(ctx context.Context, name, endpoint string) {
	startTime := time.Now()
	version, err := hc.probe(ctx, endpoint)
	responseTime := time.Since(startTime).Milliseconds()

	hc.mu.Lock()
	defer hc.mu.Unlock()

	status, ok := hc.services[name]
	if !ok {
		return
	}
	previous := status.Status
	status.LastCheck = time.Now()
	status.ResponseTime = responseTime

	if err != nil {
		status.Status = StatusBad
		status.Version = ""
		status.Error = err.Error()
		if previous != StatusBad {
			hc.logger.Warn("upstream unhealthy", zap.String("name", name), zap.Error(err))
		}
		return
	}

	status.Status = StatusOK
	status.Version = version
	status.Error = ""
	if previous != StatusOK {
		hc.logger.Info("upstream healthy", zap.String("name", name), zap.String("version", version), zap.Int64("response_ms", responseTime))
	}
}

// probe fetches endpoint. The body may be a bare JSON string (as the
// AivisSpeech /version endpoint returns) or an object with a version field.
func (hc *HealthChecker) probe(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := hc.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}

	var version string
	if json.Unmarshal(body, &version) == nil {
		return version, nil
	}
	var obj struct {
		Version string `json:"version"`
	}
	if json.Unmarshal(body, &obj) == nil {
		return obj.Version, nil
	}
	return "", nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

// GetServiceStatus returns the current status of a service
func (hc *HealthChecker) GetServiceStatus(name string) *ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if status, ok := hc.services[name]; ok {
		statusCopy := *status
		return &statusCopy
	}
	return nil
}

// GetAllServices returns status of all services
func (hc *HealthChecker) GetAllServices() map[string]*ServiceStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	servicesCopy := make(map[string]*ServiceStatus, len(hc.services))
	for name, status := range hc.services {
		statusCopy := *status
		servicesCopy[name] = &statusCopy
	}
	return servicesCopy
}
