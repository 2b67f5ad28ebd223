package transport

import "testing"

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		nodename string
		want     string
	}{
		{"broker.internal:9092", "broker.internal"},
		{"broker.internal", "broker.internal"},
		{"10.0.0.5:9092", "10.0.0.5"},
		{"10.0.0.5", "10.0.0.5"},
		{"[::1]:9092", "::1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"::1", "::1"},
		{"2001:db8::1", "2001:db8::1"},
		{"fe80::1%eth0", "fe80::1%eth0"},
		{"[fe80::1%eth0]:9092", "fe80::1%eth0"},
		{"localhost:0", "localhost"},
		{"host:notaport", "host:notaport"},
	}
	for _, tt := range tests {
		if got := endpointHost(tt.nodename); got != tt.want {
			t.Errorf("endpointHost(%q) = %q, want %q", tt.nodename, got, tt.want)
		}
	}
}

func TestIsNumericHost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"10.0.0.5", true},
		{"192.168.1.1", true},
		{"::1", true},
		{"2001:db8::1", true},
		{"fe80::1%eth0", true},
		{"broker.internal", false},
		{"localhost", false},
		{"10.0.0.5.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isNumericHost(tt.host); got != tt.want {
			t.Errorf("isNumericHost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestBrokerAddress(t *testing.T) {
	tests := []struct {
		nodename string
		want     string
	}{
		{"broker.internal:9093", "broker.internal:9093"},
		{"broker.internal", "broker.internal:9092"},
		{"10.0.0.5", "10.0.0.5:9092"},
		{"[::1]", "[::1]:9092"},
		{"[::1]:9093", "[::1]:9093"},
		{"::1", "[::1]:9092"},
		{"2001:db8::1", "[2001:db8::1]:9092"},
	}
	for _, tt := range tests {
		if got := brokerAddress(tt.nodename); got != tt.want {
			t.Errorf("brokerAddress(%q) = %q, want %q", tt.nodename, got, tt.want)
		}
	}
}
