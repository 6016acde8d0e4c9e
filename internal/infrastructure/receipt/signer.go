// Package receipt produces verifiable statements about a transfer's state.
//
// An ed25519-sha512 receipt signs the SHA-512 hash of the canonical message
// {id, state}. A sha256 receipt carries the base64 SHA-256 digest of the
// canonical message {id, state, token}, where token is a signature over the
// SHA-512 hash of "<id>:<state>"; anyone can recompute the digest without
// the signing key.
package receipt

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ed25519"

	"github.com/iho/escrowledger/internal/domain"
)

var (
	ErrInvalidKey       = errors.New("invalid ed25519 key")
	ErrDigestMismatch   = errors.New("receipt digest does not match message")
	ErrInvalidSignature = errors.New("receipt signature is invalid")
)

// Signer builds receipts for transfers of one ledger.
type Signer struct {
	baseURI    string
	privateKey ed25519.PrivateKey
	publicKey  string
}

// NewSigner creates a signer for the ledger at baseURI.
func NewSigner(baseURI string, privateKey ed25519.PrivateKey) (*Signer, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key must be %d bytes", ErrInvalidKey, ed25519.PrivateKeySize)
	}

	pub := privateKey.Public().(ed25519.PublicKey)

	return &Signer{
		baseURI:    strings.TrimRight(baseURI, "/"),
		privateKey: privateKey,
		publicKey:  base64.StdEncoding.EncodeToString(pub),
	}, nil
}

// NewSignerFromBase64 decodes a base64 64-byte secret key.
func NewSignerFromBase64(baseURI, secret string) (*Signer, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	return NewSigner(baseURI, ed25519.PrivateKey(key))
}

// PublicKey returns the base64 public key.
func (s *Signer) PublicKey() string {
	return s.publicKey
}

// TransferURI returns the URI that identifies a transfer in receipts.
func (s *Signer) TransferURI(transferID string) string {
	return s.baseURI + "/transfers/" + transferID
}

// Receipt builds a receipt of receiptType for the transfer in state. The
// condition state is only used by sha256 receipts.
func (s *Signer) Receipt(receiptType, transferID string, state, conditionState domain.TransferState) (*domain.Receipt, error) {
	id := s.TransferURI(transferID)

	switch receiptType {
	case domain.ReceiptTypeEd25519:
		return s.ed25519Receipt(id, state)
	case domain.ReceiptTypeSHA256:
		return s.sha256Receipt(id, state, conditionState)
	default:
		return nil, fmt.Errorf("%w: type is not valid", domain.ErrUnprocessableEntity)
	}
}

func (s *Signer) ed25519Receipt(id string, state domain.TransferState) (*domain.Receipt, error) {
	message := domain.StateMessage{ID: id, State: state}

	hash, err := hashJSON(message)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		Type:      domain.ReceiptTypeEd25519,
		Message:   message,
		Signer:    s.baseURI,
		PublicKey: s.publicKey,
		Signature: s.sign(hash),
	}, nil
}

func (s *Signer) sha256Receipt(id string, state, conditionState domain.TransferState) (*domain.Receipt, error) {
	message := s.tokenMessage(id, state)

	digest, err := Digest(message)
	if err != nil {
		return nil, err
	}

	r := &domain.Receipt{
		Type:    domain.ReceiptTypeSHA256,
		Message: message,
		Signer:  s.baseURI,
		Digest:  digest,
	}

	if conditionState != "" {
		conditionDigest, err := Digest(s.tokenMessage(id, conditionState))
		if err != nil {
			return nil, err
		}

		r.ConditionState = conditionState
		r.ConditionDigest = conditionDigest
	}

	return r, nil
}

func (s *Signer) tokenMessage(id string, state domain.TransferState) domain.StateMessage {
	sum := sha512.Sum512([]byte(id + ":" + string(state)))

	return domain.StateMessage{
		ID:    id,
		State: state,
		Token: s.sign(sum[:]),
	}
}

func (s *Signer) sign(hash []byte) string {
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.privateKey, hash))
}

// Digest returns the base64 SHA-256 of the canonical message.
func Digest(message domain.StateMessage) (string, error) {
	data, err := CanonicalJSON(message)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)

	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

func hashJSON(v any) ([]byte, error) {
	data, err := CanonicalJSON(v)
	if err != nil {
		return nil, err
	}

	sum := sha512.Sum512(data)

	return sum[:], nil
}

// VerifyDigest recomputes the digest of a sha256 receipt.
func VerifyDigest(r *domain.Receipt) error {
	if r.Type != domain.ReceiptTypeSHA256 {
		return fmt.Errorf("receipt type %s has no digest", r.Type)
	}

	digest, err := Digest(r.Message)
	if err != nil {
		return err
	}

	if digest != r.Digest {
		return ErrDigestMismatch
	}

	return nil
}

// VerifySignature checks an ed25519-sha512 receipt against its public key.
// A non-empty publicKey overrides the key carried by the receipt.
func VerifySignature(r *domain.Receipt, publicKey string) error {
	if r.Type != domain.ReceiptTypeEd25519 {
		return fmt.Errorf("receipt type %s has no signature", r.Type)
	}

	if publicKey == "" {
		publicKey = r.PublicKey
	}

	pub, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key", ErrInvalidKey)
	}

	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return ErrInvalidSignature
	}

	hash, err := hashJSON(r.Message)
	if err != nil {
		return err
	}

	if !ed25519.Verify(ed25519.PublicKey(pub), hash, sig) {
		return ErrInvalidSignature
	}

	return nil
}

// VerifyToken checks the token of a sha256 receipt message.
func VerifyToken(message domain.StateMessage, publicKey string) error {
	pub, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: public key", ErrInvalidKey)
	}

	sig, err := base64.StdEncoding.DecodeString(message.Token)
	if err != nil {
		return ErrInvalidSignature
	}

	sum := sha512.Sum512([]byte(message.ID + ":" + string(message.State)))
	if !ed25519.Verify(ed25519.PublicKey(pub), sum[:], sig) {
		return ErrInvalidSignature
	}

	return nil
}
