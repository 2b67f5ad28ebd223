package version

import (
	"testing"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		input string
		major uint16
		minor uint16
	}{
		{"1.0", 1, 0},
		{"1.1", 1, 1},
		{"2.0", 2, 0},
		{"10.23", 10, 23},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if v.Major != tt.major {
				t.Errorf("Major = %d, want %d", v.Major, tt.major)
			}
			if v.Minor != tt.minor {
				t.Errorf("Minor = %d, want %d", v.Minor, tt.minor)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []string{
		"",
		"1",
		"abc",
		"1.0.0",
		"1.x",
		"-1.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Errorf("Parse(%q) should return error", input)
			}
		})
	}
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0", "1.0", true},
		{"1.0", "1.5", true},
		{"1.0", "2.0", false},
		{"2.3", "2.0", true},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a, err := Parse(tt.a)
			if err != nil {
				t.Fatal(err)
			}
			b, err := Parse(tt.b)
			if err != nil {
				t.Fatal(err)
			}
			if got := a.Compatible(b); got != tt.want {
				t.Errorf("Compatible(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestALPNProtocol(t *testing.T) {
	if got := ALPNProtocol(1); got != "corvo/1" {
		t.Errorf("ALPNProtocol(1) = %q, want %q", got, "corvo/1")
	}
	if got := ALPNProtocol(2); got != "corvo/2" {
		t.Errorf("ALPNProtocol(2) = %q, want %q", got, "corvo/2")
	}
}

func TestMajorFromALPN(t *testing.T) {
	major, err := MajorFromALPN("corvo/1")
	if err != nil {
		t.Fatalf("MajorFromALPN returned error: %v", err)
	}
	if major != 1 {
		t.Errorf("major = %d, want 1", major)
	}

	invalid := []string{"", "corvo/", "corvo/x", "http/1.1", "corvo"}
	for _, alpn := range invalid {
		if _, err := MajorFromALPN(alpn); err == nil {
			t.Errorf("MajorFromALPN(%q) should return error", alpn)
		}
	}
}

func TestSupportedALPNProtocols(t *testing.T) {
	protos := SupportedALPNProtocols()
	if len(protos) != 1 {
		t.Fatalf("len = %d, want 1", len(protos))
	}
	if protos[0] != "corvo/1" {
		t.Errorf("protos[0] = %q, want %q", protos[0], "corvo/1")
	}
}

func TestCurrent(t *testing.T) {
	v, err := Parse(Current)
	if err != nil {
		t.Fatalf("Current %q does not parse: %v", Current, err)
	}
	if v.Major != 1 {
		t.Errorf("Current major = %d, want 1", v.Major)
	}
}
