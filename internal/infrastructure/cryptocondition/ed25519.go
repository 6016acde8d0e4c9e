package cryptocondition

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/ed25519"

	"github.com/iho/escrowledger/internal/domain"
)

// Ed25519Condition builds a condition satisfied by a signature of message
// under publicKey.
func Ed25519Condition(publicKey ed25519.PublicKey, message []byte) domain.Condition {
	return domain.Condition{
		Type: TypeEd25519SHA256,
		Params: map[string]any{
			"public_key": hex.EncodeToString(publicKey),
			"message":    hex.EncodeToString(message),
		},
	}
}

// Ed25519Fulfillment signs message with privateKey.
func Ed25519Fulfillment(privateKey ed25519.PrivateKey, message []byte) domain.Fulfillment {
	pub := privateKey.Public().(ed25519.PublicKey)
	return domain.Fulfillment{
		Type: TypeEd25519SHA256,
		Params: map[string]any{
			"public_key": hex.EncodeToString(pub),
			"signature":  hex.EncodeToString(ed25519.Sign(privateKey, message)),
		},
	}
}

type ed25519Verifier struct{}

func (ed25519Verifier) Validate(condition domain.Condition) error {
	_, _, err := ed25519Params(condition)
	return err
}

func (ed25519Verifier) Verify(condition domain.Condition, fulfillment domain.Fulfillment) (bool, error) {
	pub, message, err := ed25519Params(condition)
	if err != nil {
		return false, err
	}

	fulfillmentKey, err := hexParam(fulfillment.Params, "public_key")
	if err != nil {
		return false, err
	}

	sig, err := hexParam(fulfillment.Params, "signature")
	if err != nil {
		return false, err
	}

	if subtle.ConstantTimeCompare(pub, fulfillmentKey) != 1 {
		return false, nil
	}

	return ed25519.Verify(pub, message, sig), nil
}

func ed25519Params(condition domain.Condition) (ed25519.PublicKey, []byte, error) {
	pub, err := hexParam(condition.Params, "public_key")
	if err != nil {
		return nil, nil, err
	}
	if len(pub) != ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("%w: public_key must be %d bytes", ErrMalformed, ed25519.PublicKeySize)
	}

	message, err := hexParam(condition.Params, "message")
	if err != nil {
		return nil, nil, err
	}

	return pub, message, nil
}
