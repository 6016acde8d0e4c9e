package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/iho/escrowledger/internal/domain"
)

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

// minimumToNumeric stores an unbounded minimum as NULL.
func minimumToNumeric(m domain.MinimumBalance) pgtype.Numeric {
	if m.Unbounded {
		return pgtype.Numeric{}
	}
	return decimalToNumeric(m.Amount)
}

// Numeric columns are selected as text so they round-trip through decimal
// without float conversion.
func parseDecimal(column, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", column, s, err)
	}
	return d, nil
}
