package types

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(4900), 4900, "usd", "$49.00"},
		{"EUR", EUR(19900), 19900, "eur", "€199.00"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"JPY", JPY(100), 100, "jpy", "¥100"},
		{"NGN", New(250050, "NGN"), 250050, "ngn", "₦2500.50"},
		{"Unknown", New(1234, "xyz"), 1234, "xyz", "XYZ 12.34"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name    string
		op      func() (Money, error)
		want    Money
		wantErr bool
	}{
		{"Add", func() (Money, error) { return USD(100).CheckedAdd(USD(200)) }, USD(300), false},
		{"Subtract", func() (Money, error) { return USD(500).CheckedSubtract(USD(200)) }, USD(300), false},
		{"Add to untyped zero", func() (Money, error) { return Money{}.CheckedAdd(EUR(5)) }, EUR(5), false},
		{"Add mismatch", func() (Money, error) { return USD(1).CheckedAdd(EUR(1)) }, Money{}, true},
		{"Subtract mismatch", func() (Money, error) { return USD(1).CheckedSubtract(GBP(1)) }, Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if tt.wantErr {
				if !errors.Is(err, ErrCurrencyMismatch) {
					t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for currency mismatch")
		}
	}()

	_ = USD(100).Add(EUR(100))
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Money
		less  bool
		equal bool
	}{
		{"Equal", USD(100), USD(100), false, true},
		{"Less", USD(50), USD(100), true, false},
		{"Greater", USD(200), USD(100), false, false},
		{"Zero equal", USD(0), Zero("usd"), false, true},
		{"Negative less", USD(-100), USD(100), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	if !USD(0).IsZero() {
		t.Error("USD(0) should be zero")
	}
	if !USD(1).IsPositive() || USD(1).IsNegative() {
		t.Error("USD(1) should be positive")
	}
	if !USD(-1).IsNegative() || USD(-1).IsPositive() {
		t.Error("USD(-1) should be negative")
	}
}

func TestMoneyFormatMajor(t *testing.T) {
	tests := []struct {
		money Money
		want  string
	}{
		{USD(4900), "49.00"},
		{USD(5), "0.05"},
		{USD(-1999), "-19.99"},
		{JPY(100), "100"},
		{Zero("eur"), "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.money.FormatMajor(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseMajor(t *testing.T) {
	tests := []struct {
		in       string
		currency string
		want     Money
		wantErr  bool
	}{
		{"49.99", "usd", USD(4999), false},
		{" 100 ", "USD", USD(10000), false},
		{"0.5", "eur", EUR(50), false},
		{"1500", "jpy", JPY(1500), false},
		{"1.5", "jpy", Money{}, true},
		{"0.001", "usd", Money{}, true},
		{"abc", "usd", Money{}, true},
		{"99999999999999999999", "usd", Money{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in+"_"+tt.currency, func(t *testing.T) {
			got, err := ParseMajor(tt.in, tt.currency)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := USD(4999)
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["display"] != "$49.99" {
		t.Errorf("display: got %v", raw["display"])
	}

	var back Money
	if err := json.Unmarshal([]byte(`{"amount":120,"currency":"EUR","display":"ignored"}`), &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(EUR(120)) {
		t.Errorf("got %v, want %v", back, EUR(120))
	}
}

func BenchmarkMoneyCheckedAdd(b *testing.B) {
	m1 := USD(100)
	m2 := USD(200)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m1.CheckedAdd(m2)
	}
}
