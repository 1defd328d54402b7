package fulfillment

import (
	"strings"
	"testing"
)

func TestNewTrackingNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		tn := NewTrackingNumber()
		if !strings.HasPrefix(tn, "TRK-") {
			t.Fatalf("Expected TRK- prefix, got %s", tn)
		}
		suffix := strings.TrimPrefix(tn, "TRK-")
		if len(suffix) != 10 {
			t.Fatalf("Expected 10 character suffix, got %s", tn)
		}
		for _, c := range suffix {
			if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
				t.Fatalf("Unexpected character %q in tracking number %s", c, tn)
			}
		}
	}
}

func TestNewDeliveryCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := NewDeliveryCode()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if len(code) != 4 {
			t.Fatalf("Expected 4 digit code, got %s", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("Unexpected character %q in code %s", c, code)
			}
		}
	}
}
