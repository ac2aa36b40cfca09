package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func probe(t *testing.T, h http.HandlerFunc, path string) (int, report) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	var rep report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, rep
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	code, rep := probe(t, New().Healthz, "/healthz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if rep.Status != "ok" {
		t.Errorf("status field = %q, want %q", rep.Status, "ok")
	}
}

func TestReadyz_AllProbesPass(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "discord", Check: func(_ context.Context) error { return nil }},
		Checker{Name: "ffmpeg", Check: func(_ context.Context) error { return nil }},
	)

	code, rep := probe(t, h.Readyz, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if rep.Status != "ok" {
		t.Errorf("status field = %q, want %q", rep.Status, "ok")
	}
	for _, name := range []string{"discord", "ffmpeg"} {
		if rep.Checks[name] != "ok" {
			t.Errorf("%s check = %q, want %q", name, rep.Checks[name], "ok")
		}
	}
}

func TestReadyz_GatewayDownFailsProbe(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "discord", Check: func(_ context.Context) error {
			return errors.New("gateway not connected")
		}},
		Checker{Name: "ffmpeg", Check: func(_ context.Context) error { return nil }},
	)

	code, rep := probe(t, h.Readyz, "/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if rep.Status != "fail" {
		t.Errorf("status field = %q, want %q", rep.Status, "fail")
	}
	if rep.Checks["discord"] != "fail: gateway not connected" {
		t.Errorf("discord check = %q", rep.Checks["discord"])
	}
	// The ffmpeg probe still runs and reports independently.
	if rep.Checks["ffmpeg"] != "ok" {
		t.Errorf("ffmpeg check = %q, want %q", rep.Checks["ffmpeg"], "ok")
	}
}

func TestReadyz_NoCheckersIsReady(t *testing.T) {
	t.Parallel()

	code, rep := probe(t, New().Readyz, "/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if rep.Status != "ok" {
		t.Errorf("status field = %q, want %q", rep.Status, "ok")
	}
}

func TestReadyz_HonorsRequestCancellation(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "ffmpeg", Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRegister_ServesBothProbes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(Checker{Name: "discord", Check: func(_ context.Context) error { return nil }}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want JSON", ct)
			}
		})
	}
}
