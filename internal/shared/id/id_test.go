package id

import (
	"strings"
	"testing"
)

func TestNewIDsCarryPrefixes(t *testing.T) {
	if !strings.HasPrefix(NewRequestID().String(), "req_") {
		t.Error("request id missing req_ prefix")
	}
	if !strings.HasPrefix(NewConnID().String(), "conn_") {
		t.Error("conn id missing conn_ prefix")
	}
	if !strings.HasPrefix(NewSessionID().String(), "sess_") {
		t.Error("session id missing sess_ prefix")
	}
}

func TestRequestIDsAreUnique(t *testing.T) {
	seen := make(map[RequestID]bool)
	for i := 0; i < 1000; i++ {
		rid := NewRequestID()
		if seen[rid] {
			t.Fatalf("duplicate request id %s", rid)
		}
		seen[rid] = true
	}
}

func TestIsValidRequestID(t *testing.T) {
	if !IsValidRequestID(NewRequestID().String()) {
		t.Error("freshly generated id rejected")
	}

	invalid := []string{
		"",
		"req_",
		"req_not-a-uuid",
		"conn_0f3c0b9e-9a53-4c44-9a53-0f3c0b9e9a53",
		"0f3c0b9e-9a53-4c44-9a53-0f3c0b9e9a53",
		"req-0f3c0b9e-9a53-4c44-9a53-0f3c0b9e9a53",
	}
	for _, s := range invalid {
		if IsValidRequestID(s) {
			t.Errorf("IsValidRequestID(%q) = true", s)
		}
	}
}
