package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSumAndDifference(t *testing.T) {
	sum, err := Sum("0.1", "0.2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != "0.3" {
		t.Errorf("expected 0.3, got %s", sum)
	}

	diff, err := Difference("100", "50.25", "0.75")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff != "49" {
		t.Errorf("expected 49, got %s", diff)
	}

	if _, err := Sum("1", "abc"); !errors.Is(err, ErrInvalidBody) {
		t.Errorf("expected ErrInvalidBody for malformed amount, got %v", err)
	}
}

func TestApplyRevertIsExact(t *testing.T) {
	balance := decimal.RequireFromString("100")
	amount := decimal.RequireFromString("0.1")

	for i := 0; i < 1000; i++ {
		balance = DifferenceDecimals(balance, amount)
	}
	for i := 0; i < 1000; i++ {
		balance = SumDecimals(balance, amount)
	}

	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance to return to 100, got %s", balance)
	}
}

func TestAmountPrecision(t *testing.T) {
	tests := []struct {
		amount    string
		precision int
		scale     int
	}{
		{"100", 1, 0},
		{"1.50", 2, 1},
		{"0.005", 1, 3},
		{"12345.6789", 9, 4},
		{"-2.5", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			p, s := AmountPrecision(decimal.RequireFromString(tt.amount))
			if p != tt.precision || s != tt.scale {
				t.Errorf("expected (%d,%d), got (%d,%d)", tt.precision, tt.scale, p, s)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		expectError bool
	}{
		{"positive", "10.25", false},
		{"zero", "0", true},
		{"negative", "-1", true},
		{"too many decimals", "1.001", true},
		{"too many digits", "12345678901", true},
		{"max precision", "1234567890", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAmount(decimal.RequireFromString(tt.amount), 10, 2)
			if tt.expectError && !errors.Is(err, ErrUnprocessableEntity) {
				t.Errorf("expected ErrUnprocessableEntity, got %v", err)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
