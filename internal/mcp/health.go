package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// HealthFunc adapts a plain function to the HealthChecker interface.
type HealthFunc func(ctx context.Context) error

func (f HealthFunc) Check(ctx context.Context) error { return f(ctx) }

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// NewHealthHandler returns an HTTP handler that reports server liveness and
// the status of the storage backend. Responds 200 when healthy, 503 when
// the storage check fails.
func NewHealthHandler(checker HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Storage: "ok"}
		code := http.StatusOK

		if checker != nil {
			if err := checker.Check(ctx); err != nil {
				resp.Status = "degraded"
				resp.Storage = err.Error()
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})
}
