package config

import "testing"

func TestResolveHost(t *testing.T) {
	tests := []struct {
		host     string
		inDocker bool
		expected string
	}{
		{"redis.example.com", true, "redis.example.com"},
		{"192.168.1.100", true, "192.168.1.100"},
		{"localhost", true, dockerHostGateway},
		{"127.0.0.1", true, dockerHostGateway},
		{"::1", true, dockerHostGateway},
		{"localhost", false, "localhost"},
		{"127.0.0.1", false, "127.0.0.1"},
	}

	for _, tt := range tests {
		if got := resolveHost(tt.host, tt.inDocker); got != tt.expected {
			t.Errorf("resolveHost(%q, %v) = %q, want %q", tt.host, tt.inDocker, got, tt.expected)
		}
	}
}
