// Package health provides liveness and readiness endpoints for the bot.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const checkTimeout = 5 * time.Second

// CheckFunc probes one collaborator. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// Checker runs registered collaborator probes for the readiness endpoint.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
	logger zerolog.Logger
}

// NewChecker creates an empty checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Register adds a named check.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// RunAll executes all checks concurrently. The result maps check name to
// "ok" or the failure message.
func (c *Checker) RunAll(ctx context.Context) map[string]string {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()

	results := make(map[string]string, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, fn := range checks {
		wg.Add(1)
		go func(n string, f CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()

			outcome := "ok"
			if err := f(checkCtx); err != nil {
				outcome = err.Error()
				c.logger.Warn().Str("check", n).Err(err).Msg("health check failed")
			}
			mu.Lock()
			results[n] = outcome
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()
	return results
}

// IsReady reports whether every check passes.
func (c *Checker) IsReady(ctx context.Context) bool {
	for _, outcome := range c.RunAll(ctx) {
		if outcome != "ok" {
			return false
		}
	}
	return true
}

// LivenessHandler returns the /health handler. It only proves the process
// is serving requests.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// ReadinessHandler returns the /ready handler.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		results := c.RunAll(r.Context())

		ready := true
		for _, outcome := range results {
			if outcome != "ok" {
				ready = false
				break
			}
		}

		resp := map[string]any{"checks": results}
		if ready {
			resp["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		} else {
			resp["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
