package usecase

import (
	"fmt"

	"github.com/iho/escrowledger/internal/domain"
)

// Branch is the outcome of matching a fulfillment against a transfer.
type Branch string

const (
	BranchExecute Branch = "execute"
	BranchCancel  Branch = "cancel"
)

// ConditionValidator decides which condition of a transfer a fulfillment satisfies.
type ConditionValidator struct {
	verifier ConditionVerifier
}

// NewConditionValidator creates a validator that delegates to verifier.
func NewConditionValidator(verifier ConditionVerifier) *ConditionValidator {
	return &ConditionValidator{verifier: verifier}
}

// Validate returns the single branch fulfillment satisfies. Matching both
// conditions or neither is domain.ErrUnmetCondition.
func (v *ConditionValidator) Validate(transfer *domain.Transfer, fulfillment domain.Fulfillment) (Branch, error) {
	execute, err := v.satisfies(transfer.ExecutionCondition, fulfillment)
	if err != nil {
		return "", err
	}

	cancel, err := v.satisfies(transfer.CancellationCondition, fulfillment)
	if err != nil {
		return "", err
	}

	switch {
	case execute && !cancel:
		return BranchExecute, nil
	case cancel && !execute:
		return BranchCancel, nil
	case execute && cancel:
		return "", fmt.Errorf("%w: fulfillment satisfies both execution and cancellation conditions", domain.ErrUnmetCondition)
	default:
		return "", fmt.Errorf("%w: invalid fulfillment", domain.ErrUnmetCondition)
	}
}

// ValidateConditions rejects a transfer carrying a condition of an unknown
// type or with malformed parameters.
func (v *ConditionValidator) ValidateConditions(transfer *domain.Transfer) error {
	for _, c := range []struct {
		name      string
		condition *domain.Condition
	}{
		{"execution_condition", transfer.ExecutionCondition},
		{"cancellation_condition", transfer.CancellationCondition},
	} {
		if c.condition == nil {
			continue
		}
		if err := v.verifier.Validate(*c.condition); err != nil {
			return fmt.Errorf("%w: %s: %v", domain.ErrInvalidBody, c.name, err)
		}
	}

	return nil
}

func (v *ConditionValidator) satisfies(condition *domain.Condition, fulfillment domain.Fulfillment) (bool, error) {
	if condition == nil || condition.Type != fulfillment.Type {
		return false, nil
	}

	ok, err := v.verifier.Verify(*condition, fulfillment)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrUnmetCondition, err)
	}

	return ok, nil
}
