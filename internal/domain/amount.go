package domain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Sum adds decimal strings exactly. An empty list sums to "0".
func Sum(amounts ...string) (string, error) {
	ds, err := parseAll(amounts)
	if err != nil {
		return "", err
	}
	return SumDecimals(ds...).String(), nil
}

// Difference subtracts every following amount from the first one.
func Difference(amounts ...string) (string, error) {
	ds, err := parseAll(amounts)
	if err != nil {
		return "", err
	}
	return DifferenceDecimals(ds...).String(), nil
}

// SumDecimals adds amounts without rounding.
func SumDecimals(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// DifferenceDecimals returns amounts[0] - amounts[1] - ... - amounts[n].
func DifferenceDecimals(amounts ...decimal.Decimal) decimal.Decimal {
	if len(amounts) == 0 {
		return decimal.Zero
	}
	result := amounts[0]
	for _, a := range amounts[1:] {
		result = result.Sub(a)
	}
	return result
}

func parseAll(amounts []string) ([]decimal.Decimal, error) {
	ds := make([]decimal.Decimal, 0, len(amounts))
	for _, s := range amounts {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid amount %q", ErrInvalidBody, s)
		}
		ds = append(ds, d)
	}
	return ds, nil
}

// AmountPrecision reports the number of significant digits and the number of
// decimal places of d, ignoring trailing zeros.
func AmountPrecision(d decimal.Decimal) (precision, scale int) {
	coef := new(big.Int).Abs(d.Coefficient())
	exp := int(d.Exponent())
	if coef.Sign() == 0 {
		return 1, 0
	}

	ten := big.NewInt(10)
	rem := new(big.Int)
	for {
		q, r := new(big.Int).QuoRem(coef, ten, rem)
		if r.Sign() != 0 {
			break
		}
		coef = q
		exp++
	}

	precision = len(coef.String())
	if exp < 0 {
		scale = -exp
	}
	return precision, scale
}

// ValidateAmount checks that amount is positive and fits the configured
// precision and scale.
func ValidateAmount(amount decimal.Decimal, maxPrecision, maxScale int) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be a positive number excluding zero", ErrUnprocessableEntity)
	}

	precision, scale := AmountPrecision(amount)
	if precision > maxPrecision || scale > maxScale {
		return fmt.Errorf("%w: amount %s exceeds allowed precision", ErrUnprocessableEntity, amount.String())
	}

	return nil
}
