package pipeline

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		raw      *string
		country  string
		cents    int64
		currency string
		isNil    bool
	}{
		{name: "nil", raw: nil, isNil: true},
		{name: "blank", raw: ptr("  "), isNil: true},
		{name: "dollar", raw: ptr("$15"), country: "US", cents: 1500, currency: "USD"},
		{name: "range takes min", raw: ptr("$25 - $15"), country: "US", cents: 1500, currency: "USD"},
		{name: "canadian dollar", raw: ptr("$20"), country: "CA", cents: 2000, currency: "CAD"},
		{name: "real", raw: ptr("R$ 30,00"), country: "BR", cents: 3000, currency: "BRL"},
		{name: "euro decimal comma", raw: ptr("€12,50"), country: "DE", cents: 1250, currency: "EUR"},
		{name: "euro thousands", raw: ptr("1.234,56 €"), country: "DE", cents: 123456, currency: "EUR"},
		{name: "pound thousands", raw: ptr("£1,200.50"), country: "GB", cents: 120050, currency: "GBP"},
		{name: "iso code", raw: ptr("USD 25.00"), cents: 2500, currency: "USD"},
		{name: "time is not a price", raw: ptr("Doors 9pm, $10 at the door"), country: "US", cents: 1000, currency: "USD"},
		{name: "free", raw: ptr("Free"), cents: 0},
		{name: "no cover", raw: ptr("No cover before 10pm"), cents: 0},
		{name: "gratis", raw: ptr("Entrada franca"), cents: 0},
		{name: "bare amount", raw: ptr("10"), cents: 1000},
		{name: "unparseable", raw: ptr("TBA"), isNil: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cents, cur := parsePrice(tt.raw, tt.country)
			if tt.isNil {
				if cents != nil || cur != nil {
					t.Fatalf("parsePrice = %v %v, want nil", cents, cur)
				}
				return
			}
			if cents == nil || *cents != tt.cents {
				t.Fatalf("cents = %v, want %d", cents, tt.cents)
			}
			gotCur := ""
			if cur != nil {
				gotCur = *cur
			}
			if gotCur != tt.currency {
				t.Errorf("currency = %q, want %q", gotCur, tt.currency)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"15":       "15",
		"15.5":     "15.5",
		"12,50":    "12.5",
		"1,234":    "1234",
		"1.500":    "1500",
		"1,234.56": "1234.56",
		"1.234,56": "1234.56",
	}
	for in, want := range tests {
		d, ok := parseAmount(in)
		if !ok {
			t.Errorf("parseAmount(%q) failed", in)
			continue
		}
		if d.String() != want {
			t.Errorf("parseAmount(%q) = %s, want %s", in, d.String(), want)
		}
	}
}

func ptr(s string) *string { return &s }
