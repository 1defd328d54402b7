package store

import "testing"

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name       string
		itemsTotal float64
		shipping   float64
		tax        float64
		total      float64
	}{
		{"below threshold", 150, 15, 12.00, 177.00},
		{"exactly at threshold still pays shipping", 200, 15, 16.00, 231.00},
		{"above threshold ships free", 250, 0, 20.00, 270.00},
		{"just above threshold", 200.01, 0, 16.00, 216.01},
		{"single cheap item", 10, 15, 0.80, 25.80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shipping, tax, total := ComputeTotals(tt.itemsTotal)
			if shipping != tt.shipping {
				t.Errorf("Expected shipping %.2f, got %.2f", tt.shipping, shipping)
			}
			if tax != tt.tax {
				t.Errorf("Expected tax %.2f, got %.2f", tt.tax, tax)
			}
			if total != tt.total {
				t.Errorf("Expected total %.2f, got %.2f", tt.total, total)
			}
		})
	}
}
