package provider

import (
	"errors"
	"testing"
	"time"
)

func TestAddressRecord(t *testing.T) {
	tests := []struct {
		ip       string
		wantType string
		wantErr  bool
	}{
		{"10.0.0.1", "A", false},
		{"192.168.1.254", "A", false},
		{"2001:db8::1", "AAAA", false},
		{"fd00::10", "AAAA", false},
		{"FD00:0::1", "AAAA", false},
		{"", "", true},
		{"10.0.0", "", true},
		{"web-1.internal", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			r, err := AddressRecord("web-1", tt.ip, time.Minute)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("AddressRecord(%q) expected error, got %+v", tt.ip, r)
				}
				return
			}
			if err != nil {
				t.Fatalf("AddressRecord(%q) unexpected error: %v", tt.ip, err)
			}
			if r.Type != tt.wantType {
				t.Errorf("type = %q, want %q", r.Type, tt.wantType)
			}
			if r.Name != "web-1" || r.Data != tt.ip || r.TTL != time.Minute {
				t.Errorf("unexpected record %+v", r)
			}
		})
	}
}

func TestZoneMatchError(t *testing.T) {
	tests := []struct {
		count int
		want  error
	}{
		{0, ErrZoneNotFound},
		{2, ErrZoneAmbiguous},
		{7, ErrZoneAmbiguous},
	}

	for _, tt := range tests {
		err := ZoneMatchError("example.internal", tt.count)
		if !errors.Is(err, tt.want) {
			t.Errorf("count %d: got %v, want %v", tt.count, err, tt.want)
		}
	}
}

func TestIsAddress(t *testing.T) {
	for typ, want := range map[string]bool{
		"A":     true,
		"AAAA":  true,
		"CNAME": false,
		"TXT":   false,
		"a":     false,
	} {
		if got := IsAddress(typ); got != want {
			t.Errorf("IsAddress(%q) = %v, want %v", typ, got, want)
		}
	}
}
