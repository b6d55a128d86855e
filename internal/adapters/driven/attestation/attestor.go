// Package attestation signs answers with the oracle's Ed25519 key.
//
// The digest is SHA-256 over a domain tag followed by each field encoded as
// uvarint(len) || bytes, in the order: query id, document id, answer text,
// timestamp (RFC 3339, nanoseconds, UTC). Length prefixes make the encoding
// unambiguous, so no two field tuples share a digest input.
package attestation

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Signer implements the interface.
var _ driven.Attestor = (*Signer)(nil)

// DomainTag separates attestation digests from any other SHA-256 use of the key.
const DomainTag = "fathom-attestation-v1"

// Signer produces Ed25519 attestations. The private key never leaves it.
type Signer struct {
	key    ed25519.PrivateKey
	public ed25519.PublicKey
	signer string
}

// NewSigner creates a signer for key. identity is embedded in every
// attestation as the signer, typically the ledger address of the key.
func NewSigner(key ed25519.PrivateKey, identity string) *Signer {
	return &Signer{
		key:    key,
		public: key.Public().(ed25519.PublicKey),
		signer: identity,
	}
}

// Signer returns the identity embedded in attestations.
func (s *Signer) Signer() string {
	return s.signer
}

// PublicKey returns the verification key.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.public
}

// Attest hashes the four bound fields and signs the digest.
// Ed25519 signatures are deterministic, so identical inputs give identical output.
func (s *Signer) Attest(queryID, documentID, answerText string, timestamp time.Time) domain.Attestation {
	ts := timestamp.UTC()
	digest := Digest(queryID, documentID, answerText, ts)

	return domain.Attestation{
		Hash:       digest,
		Signature:  ed25519.Sign(s.key, digest[:]),
		Timestamp:  ts,
		Signer:     s.signer,
		QueryID:    queryID,
		DocumentID: documentID,
	}
}

// Verify recomputes the digest for answerText and checks hash and signature.
func (s *Signer) Verify(att domain.Attestation, answerText string) bool {
	return VerifyWithKey(s.public, att, answerText)
}

// VerifyWithKey checks att against an arbitrary public key.
func VerifyWithKey(pub ed25519.PublicKey, att domain.Attestation, answerText string) bool {
	digest := Digest(att.QueryID, att.DocumentID, answerText, att.Timestamp)
	if digest != att.Hash {
		return false
	}
	return ed25519.Verify(pub, digest[:], att.Signature)
}

// Digest computes the canonical attestation hash.
func Digest(queryID, documentID, answerText string, timestamp time.Time) [domain.AttestationHashSize]byte {
	h := sha256.New()
	writeField(h, DomainTag)
	writeField(h, queryID)
	writeField(h, documentID)
	writeField(h, answerText)
	writeField(h, timestamp.UTC().Format(time.RFC3339Nano))

	var out [domain.AttestationHashSize]byte
	h.Sum(out[:0])
	return out
}

func writeField(h hash.Hash, field string) {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(field)))
	h.Write(prefix[:n])
	h.Write([]byte(field))
}
