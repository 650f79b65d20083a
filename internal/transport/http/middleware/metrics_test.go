package middleware

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{
			"short id replacement",
			"/link/aZ3kP9qR",
			"/link/:id",
		},
		{
			"custom alias replacement",
			"/link/docs",
			"/link/:id",
		},
		{
			"dashboard link path unchanged",
			"/dashboard/link/aZ3kP9qR",
			"/dashboard/link/aZ3kP9qR",
		},
		{
			"root path unchanged",
			"/",
			"/",
		},
		{
			"health endpoint unchanged",
			"/health",
			"/health",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizePath(tt.path)
			if got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
