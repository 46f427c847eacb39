package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/tendermint/tendermint/libs/log"
)

// Check is a named probe of a dependency.
type Check interface {
	Check(ctx context.Context) error
	Name() string
}

// Status is the last outcome of a check.
type Status struct {
	Healthy   bool      `json:"healthy"`
	LastCheck time.Time `json:"last_check"`
	LastError string    `json:"last_error,omitempty"`
}

// Checker runs its checks on an interval and keeps their last status.
type Checker struct {
	logger   log.Logger
	interval time.Duration
	timeout  time.Duration

	mtx    sync.RWMutex
	checks map[string]Check
	status map[string]Status
}

func NewChecker(logger log.Logger, interval time.Duration) *Checker {
	return &Checker{
		logger:   logger.With("module", "health"),
		interval: interval,
		timeout:  5 * time.Second,
		checks:   make(map[string]Check),
		status:   make(map[string]Status),
	}
}

// AddCheck registers check. Checks start out healthy.
func (hc *Checker) AddCheck(check Check) {
	hc.mtx.Lock()
	defer hc.mtx.Unlock()

	name := check.Name()
	hc.checks[name] = check
	hc.status[name] = Status{Healthy: true, LastCheck: time.Now()}
}

// Run checks every interval until ctx is done.
func (hc *Checker) Run(ctx context.Context) error {
	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	hc.RunChecks(ctx)
	for {
		select {
		case <-ticker.C:
			hc.RunChecks(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// RunChecks runs every check once, concurrently, and waits for them.
func (hc *Checker) RunChecks(ctx context.Context) {
	hc.mtx.RLock()
	checks := make([]Check, 0, len(hc.checks))
	for _, check := range hc.checks {
		checks = append(checks, check)
	}
	hc.mtx.RUnlock()

	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()

			checkCtx, cancel := context.WithTimeout(ctx, hc.timeout)
			defer cancel()
			err := check.Check(checkCtx)

			status := Status{Healthy: err == nil, LastCheck: time.Now()}
			if err != nil {
				status.LastError = err.Error()
				hc.logger.Error("health check failed", "check", check.Name(), "error", err)
			}

			hc.mtx.Lock()
			hc.status[check.Name()] = status
			hc.mtx.Unlock()
		}(check)
	}
	wg.Wait()
}

// GetStatus returns a copy of the last status of every check.
func (hc *Checker) GetStatus() map[string]Status {
	hc.mtx.RLock()
	defer hc.mtx.RUnlock()

	result := make(map[string]Status, len(hc.status))
	for name, status := range hc.status {
		result[name] = status
	}
	return result
}

// IsHealthy reports whether every check last passed.
func (hc *Checker) IsHealthy() bool {
	hc.mtx.RLock()
	defer hc.mtx.RUnlock()

	for _, status := range hc.status {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// ServeHTTP writes the check statuses, with 503 when any is failing.
func (hc *Checker) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	code := http.StatusOK
	if !hc.IsHealthy() {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy": code == http.StatusOK,
		"checks":  hc.GetStatus(),
	})
}

// FuncCheck adapts a function to Check.
type FuncCheck struct {
	name      string
	checkFunc func(ctx context.Context) error
}

func NewFuncCheck(name string, checkFunc func(ctx context.Context) error) *FuncCheck {
	return &FuncCheck{name: name, checkFunc: checkFunc}
}

func (c *FuncCheck) Check(ctx context.Context) error { return c.checkFunc(ctx) }
func (c *FuncCheck) Name() string                    { return c.name }

// NewHTTPCheck probes url with a GET and fails on transport errors and 5xx statuses.
func NewHTTPCheck(name, url string, client *http.Client) *FuncCheck {
	return NewFuncCheck(name, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		res, err := client.Do(req)
		if err != nil {
			return err
		}
		res.Body.Close()
		if res.StatusCode >= 500 {
			return &StatusError{URL: url, Code: res.StatusCode}
		}
		return nil
	})
}

// StatusError reports an unhealthy HTTP status.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return e.URL + " returned " + http.StatusText(e.Code)
}
