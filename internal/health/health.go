// Package health exposes the bot's liveness and readiness probes.
//
//   - /healthz answers 200 whenever the process serves HTTP.
//   - /readyz answers 200 only when every dependency probe passes:
//     the Discord gateway is connected and the ffmpeg binary runs.
//
// Bodies are JSON with a top-level "status" and a per-probe "checks"
// map, so a failing dependency can be read straight off the probe.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout caps a single dependency probe. The ffmpeg version check
// and the gateway state lookup are both local, so a slow probe already
// means trouble.
const checkTimeout = 3 * time.Second

// Checker is one named dependency probe. Check returns nil when the
// dependency is usable and must respect ctx cancellation.
type Checker struct {
	// Name keys the probe's result in the JSON body ("discord",
	// "ffmpeg").
	Name string

	Check func(ctx context.Context) error
}

// report is the JSON body served by both probes.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction; Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler running the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz is the liveness probe. Serving the request is the proof.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every checker with a [checkTimeout] deadline and answers
// 503 when any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks, ok := h.runChecks(r.Context())

	rep := report{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ok {
		rep.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// runChecks probes every dependency and reports per-checker outcomes.
func (h *Handler) runChecks(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string, len(h.checkers))
	ok := true

	for _, c := range h.checkers {
		probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(probeCtx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ok = false
			continue
		}
		checks[c.Name] = "ok"
	}
	return checks, ok
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
