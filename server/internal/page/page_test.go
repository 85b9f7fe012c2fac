package page_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/ok1iuo/ROTARTOR-ESP32-LAN/server/internal/page"
)

func TestIndex_ServesPage(t *testing.T) {
	rec := do(t, http.MethodGet, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type: got %q", ct)
	}
	body := rec.Body.String()
	if cl := rec.Header().Get("Content-Length"); cl != strconv.Itoa(len(body)) {
		t.Errorf("Content-Length: got %s, body is %d bytes", cl, len(body))
	}
	if len(body) != page.Size() {
		t.Errorf("body: got %d bytes, want %d", len(body), page.Size())
	}
	for _, marker := range []string{"<!DOCTYPE html>", "Azimuth", "Elevation", "/ws"} {
		if !strings.Contains(body, marker) {
			t.Errorf("body missing %q", marker)
		}
	}
}

func TestIndex_ClampAndReconnect(t *testing.T) {
	body := do(t, http.MethodGet, "/").Body.String()

	for _, want := range []string{"ELEVATION_MIN = -10", "ELEVATION_MAX = 90", "RECONNECT_MS = 5000"} {
		if !strings.Contains(body, want) {
			t.Errorf("page script missing %q", want)
		}
	}
}

func TestIndex_Head(t *testing.T) {
	srv := httptest.NewServer(page.New())
	defer srv.Close()

	resp, err := http.Head(srv.URL + "/")
	if err != nil {
		t.Fatalf("HEAD: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if len(b) != 0 {
		t.Errorf("HEAD body: got %d bytes, want none", len(b))
	}
}

func TestIndex_UnknownPath(t *testing.T) {
	for _, path := range []string{"/index.html", "/favicon.ico", "/ws/"} {
		if rec := do(t, http.MethodGet, path); rec.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", path, rec.Code)
		}
	}
}

func TestIndex_MethodNotAllowed(t *testing.T) {
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := do(t, m, "/")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: got %d, want 405", m, rec.Code)
		}
		if rec.Header().Get("Allow") == "" {
			t.Errorf("%s: missing Allow header", m)
		}
	}
}

// --- helpers ---

func do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	page.New().ServeHTTP(rec, req)
	return rec
}
