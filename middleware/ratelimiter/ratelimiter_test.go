package ratelimiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimit(t *testing.T) {
	rl, err := New("2-M")
	if err != nil {
		t.Fatalf("unexpected error: %v\n", err)
	}
	handler := rl.Limit()(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	expected := []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests}
	for i, code := range expected {
		rw := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/_world/reindex", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		handler(rw, req)
		if rw.Code != code {
			t.Fatalf("request %d: expected status %d got %d\n", i, code, rw.Code)
		}
	}

	rw := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/_world/reindex", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.2, 10.0.0.1")
	handler(rw, req)
	if rw.Code != http.StatusAccepted {
		t.Fatalf("other client: expected status %d got %d\n", http.StatusAccepted, rw.Code)
	}
}

func TestInvalidRate(t *testing.T) {
	if _, err := New("ten per minute"); err == nil {
		t.Fatalf("expected an error for an invalid rate\n")
	}
}
