package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAccountName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateAccountName("alice"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateAccountName("   ")
		if !errors.Is(err, ErrInvalidBody) {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("surrounding whitespace rejected", func(t *testing.T) {
		err := ValidateAccountName(" alice")
		if !errors.Is(err, ErrInvalidBody) {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxAccountNameLength+1)
		err := ValidateAccountName(tooLong)
		if !errors.Is(err, ErrInvalidBody) {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})
}

func TestValidatePagination(t *testing.T) {
	t.Parallel()

	limit, offset := ValidatePagination(0, -5)
	if limit != DefaultPageSize || offset != 0 {
		t.Fatalf("expected defaults, got limit=%d offset=%d", limit, offset)
	}

	limit, _ = ValidatePagination(MaxPageSize*2, 0)
	if limit != MaxPageSize {
		t.Fatalf("expected limit capped at %d, got %d", MaxPageSize, limit)
	}
}
