package domain

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validation constants
const (
	MaxAccountNameLength = 255
	MinAccountNameLength = 1
	MaxPageSize          = 1000
	DefaultPageSize      = 50
)

var accountNameRules = []validation.Rule{
	validation.Required.Error("cannot be empty"),
	validation.Length(MinAccountNameLength, MaxAccountNameLength),
	validation.By(noSurroundingSpace),
}

func noSurroundingSpace(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) != s {
		return errors.New("must not have surrounding whitespace")
	}
	return nil
}

// ValidateAccountName validates an account name used on a debit or credit line.
func ValidateAccountName(name string) error {
	if err := validation.Validate(name, accountNameRules...); err != nil {
		return fmt.Errorf("%w: account name %q %v", ErrInvalidBody, name, err)
	}
	return nil
}

func fundsAccount(value interface{}) error {
	f, _ := value.(Funds)
	return validation.Validate(f.Account, accountNameRules...)
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
