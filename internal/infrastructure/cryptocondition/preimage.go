package cryptocondition

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/iho/escrowledger/internal/domain"
)

// PreimageCondition builds a preimage-sha-256 condition locked to preimage.
func PreimageCondition(preimage []byte) domain.Condition {
	digest := sha256.Sum256(preimage)
	return domain.Condition{
		Type:   TypePreimageSHA256,
		Params: map[string]any{"digest": hex.EncodeToString(digest[:])},
	}
}

// PreimageFulfillment builds the fulfillment revealing preimage.
func PreimageFulfillment(preimage []byte) domain.Fulfillment {
	return domain.Fulfillment{
		Type:   TypePreimageSHA256,
		Params: map[string]any{"preimage": hex.EncodeToString(preimage)},
	}
}

type preimageVerifier struct{}

func (preimageVerifier) Validate(condition domain.Condition) error {
	_, err := preimageDigest(condition)
	return err
}

func (preimageVerifier) Verify(condition domain.Condition, fulfillment domain.Fulfillment) (bool, error) {
	digest, err := preimageDigest(condition)
	if err != nil {
		return false, err
	}

	preimage, err := hexParam(fulfillment.Params, "preimage")
	if err != nil {
		return false, err
	}

	sum := sha256.Sum256(preimage)

	return subtle.ConstantTimeCompare(sum[:], digest) == 1, nil
}

func preimageDigest(condition domain.Condition) ([]byte, error) {
	digest, err := hexParam(condition.Params, "digest")
	if err != nil {
		return nil, err
	}
	if len(digest) != sha256.Size {
		return nil, fmt.Errorf("%w: digest must be %d bytes", ErrMalformed, sha256.Size)
	}

	return digest, nil
}
