// Package cryptocondition verifies condition fulfillments. Each condition type
// has its own Verifier; Registry dispatches on the type tag.
package cryptocondition

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/iho/escrowledger/internal/domain"
)

// Supported condition types.
const (
	TypePreimageSHA256  = "preimage-sha-256"
	TypeEd25519SHA256   = "ed25519-sha-256"
	TypeThresholdSHA256 = "threshold-sha-256"
)

var (
	ErrUnsupportedType = errors.New("unsupported condition type")
	ErrMalformed       = errors.New("malformed condition or fulfillment")
)

// Verifier checks conditions and fulfillments of one type.
type Verifier interface {
	// Validate reports whether condition is well formed.
	Validate(condition domain.Condition) error
	Verify(condition domain.Condition, fulfillment domain.Fulfillment) (bool, error)
}

// Registry maps condition types to verifiers.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry returns a registry with every built-in condition type.
func NewRegistry() *Registry {
	r := &Registry{verifiers: make(map[string]Verifier)}
	r.Register(TypePreimageSHA256, preimageVerifier{})
	r.Register(TypeEd25519SHA256, ed25519Verifier{})
	r.Register(TypeThresholdSHA256, &thresholdVerifier{registry: r})
	return r
}

// Register adds or replaces the verifier for typ.
func (r *Registry) Register(typ string, v Verifier) {
	r.verifiers[typ] = v
}

// Validate checks that condition has a registered type and the parameters
// that type needs.
func (r *Registry) Validate(condition domain.Condition) error {
	v, ok := r.verifiers[condition.Type]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, condition.Type)
	}

	return v.Validate(condition)
}

// Verify reports whether fulfillment satisfies condition. A type mismatch is
// not an error, it simply does not satisfy the condition.
func (r *Registry) Verify(condition domain.Condition, fulfillment domain.Fulfillment) (bool, error) {
	if condition.Type != fulfillment.Type {
		return false, nil
	}

	v, ok := r.verifiers[condition.Type]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnsupportedType, condition.Type)
	}

	return v.Verify(condition, fulfillment)
}

func hexParam(params map[string]any, key string) ([]byte, error) {
	s, ok := params[key].(string)
	if !ok || s == "" {
		return nil, fmt.Errorf("%w: %s is required", ErrMalformed, key)
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not hex: %v", ErrMalformed, key, err)
	}

	return b, nil
}
