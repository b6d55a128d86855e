package domain

import (
	"encoding/hex"
	"encoding/json"
	"time"
)

// AttestationHashSize is the digest length in bytes.
const AttestationHashSize = 32

// Attestation binds an answer to a query, a document, a signer and an instant.
// Hash depends only on (QueryID, DocumentID, answer text, Timestamp).
type Attestation struct {
	Hash       [AttestationHashSize]byte `json:"-"`
	Signature  []byte                    `json:"-"`
	Timestamp  time.Time                 `json:"timestamp"`
	Signer     string                    `json:"signer"`
	QueryID    string                    `json:"query_id"`
	DocumentID string                    `json:"document_id"`
}

// HashHex returns the digest as lower-case hex.
func (a Attestation) HashHex() string {
	return hex.EncodeToString(a.Hash[:])
}

// SignatureHex returns the signature as lower-case hex.
func (a Attestation) SignatureHex() string {
	return hex.EncodeToString(a.Signature)
}

// MarshalJSON encodes the hash and signature as hex alongside the bound fields.
func (a Attestation) MarshalJSON() ([]byte, error) {
	type fields Attestation
	return json.Marshal(struct {
		Hash      string `json:"hash"`
		Signature string `json:"signature"`
		fields
	}{
		Hash:      a.HashHex(),
		Signature: a.SignatureHex(),
		fields:    fields(a),
	})
}
