// Package health serves liveness and readiness probes for the agent daemon.
//
//   - /healthz — liveness; a process that answers HTTP is alive.
//   - /readyz  — readiness; 200 only while every registered check passes,
//     503 otherwise. The body is a JSON object with a "status" field and a
//     per-check "checks" map.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness check.
const probeTimeout = 5 * time.Second

// Check probes one dependency. It returns nil while the dependency is
// usable and must respect context cancellation.
type Check func(ctx context.Context) error

type namedCheck struct {
	name  string
	check Check
}

// Handler answers the probe endpoints. Checks are registered before the
// HTTP server starts; the handler itself is safe for concurrent use.
type Handler struct {
	checks []namedCheck
}

// New creates an empty Handler.
func New() *Handler {
	return &Handler{}
}

// Add registers a named readiness check. Checks run sequentially in
// registration order on every /readyz request.
func (h *Handler) Add(name string, check Check) {
	h.checks = append(h.checks, namedCheck{name: name, check: check})
}

// Register installs the probe routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)
}

type probeResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeResult{Status: "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	res := probeResult{
		Status: "ok",
		Checks: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK

	for _, c := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := c.check(ctx)
		cancel()

		if err != nil {
			res.Checks[c.name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			res.Checks[c.name] = "ok"
		}
	}

	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
