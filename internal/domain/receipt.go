package domain

// Receipt types.
const (
	ReceiptTypeEd25519 = "ed25519-sha512"
	ReceiptTypeSHA256  = "sha256"
)

// StateMessage is the signed or digested statement about a transfer's state.
type StateMessage struct {
	ID    string        `json:"id"`
	State TransferState `json:"state"`
	Token string        `json:"token,omitempty"`
}

// Receipt is a verifiable proof of a transfer's state at a point in time.
type Receipt struct {
	Type            string        `json:"type"`
	Message         StateMessage  `json:"message"`
	Signer          string        `json:"signer"`
	PublicKey       string        `json:"public_key,omitempty"`
	Signature       string        `json:"signature,omitempty"`
	Digest          string        `json:"digest,omitempty"`
	ConditionState  TransferState `json:"condition_state,omitempty"`
	ConditionDigest string        `json:"condition_digest,omitempty"`
}
