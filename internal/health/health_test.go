package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newServer(h *Handler) *httptest.Server {
	mux := http.NewServeMux()
	h.Register(mux)
	return httptest.NewServer(mux)
}

func getJSON(t *testing.T, url string) (int, probeResult) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body probeResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return resp.StatusCode, body
}

func TestHealthz_AlwaysReturns200(t *testing.T) {
	srv := newServer(New())
	defer srv.Close()

	code, body := getJSON(t, srv.URL+"/healthz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	h := New()
	h.Add("backend", func(context.Context) error { return nil })
	h.Add("agent", func(context.Context) error { return nil })
	srv := newServer(h)
	defer srv.Close()

	code, body := getJSON(t, srv.URL+"/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.Checks["backend"] != "ok" || body.Checks["agent"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestReadyz_FailingCheckReturns503(t *testing.T) {
	h := New()
	h.Add("backend", func(context.Context) error { return errors.New("breaker open") })
	h.Add("agent", func(context.Context) error { return nil })
	srv := newServer(h)
	defer srv.Close()

	code, body := getJSON(t, srv.URL+"/readyz")
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if body.Status != "fail" {
		t.Errorf("status = %q, want fail", body.Status)
	}
	if body.Checks["backend"] != "fail: breaker open" {
		t.Errorf("backend check = %q", body.Checks["backend"])
	}
	if body.Checks["agent"] != "ok" {
		t.Errorf("agent check = %q", body.Checks["agent"])
	}
}

func TestReadyz_NoChecksIsReady(t *testing.T) {
	srv := newServer(New())
	defer srv.Close()

	code, body := getJSON(t, srv.URL+"/readyz")
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
	if len(body.Checks) != 0 {
		t.Errorf("checks = %v, want none", body.Checks)
	}
}
