package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"remote addr only", "203.0.113.7:51234", "", "", "203.0.113.7"},
		{"x-forwarded-for wins", "10.0.0.1:1234", "198.51.100.2", "", "198.51.100.2"},
		{"x-forwarded-for first entry", "10.0.0.1:1234", "198.51.100.2, 10.0.0.5, 10.0.0.1", "", "198.51.100.2"},
		{"x-real-ip fallback", "10.0.0.1:1234", "", "198.51.100.9", "198.51.100.9"},
		{"remote addr without port", "203.0.113.7", "", "", "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReferrer(t *testing.T) {
	t.Run("standard spelling", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Referer", "https://google.com")
		if got := Referrer(req); got != "https://google.com" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("double-r spelling", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Referrer", "https://bing.com")
		if got := Referrer(req); got != "https://bing.com" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if got := Referrer(req); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})
}
