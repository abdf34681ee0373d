package iplookup

import (
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		ip         string
	}{
		{"connection address", "10.0.0.1:5555", nil, "10.0.0.1"},
		{"forwarded for", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"invalid forwarded for", "10.0.0.1:5555", map[string]string{"X-Forwarded-For": "unknown"}, "10.0.0.1"},
		{"real ip", "10.0.0.1:5555", map[string]string{"X-Real-Ip": "203.0.113.8"}, "203.0.113.8"},
		{"address without port", "10.0.0.1", nil, "10.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/_world/status", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if ip := FromRequest(req); ip != tt.ip {
				t.Fatalf("expected %s got %s\n", tt.ip, ip)
			}
		})
	}
}
