package driven

import (
	"time"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// Attestor binds an answer to its query under the oracle's signing key.
type Attestor interface {
	// Attest computes the binding hash and signs it. Identical inputs
	// always produce an identical hash.
	Attest(queryID, documentID, answerText string, timestamp time.Time) domain.Attestation

	// Verify recomputes the hash for answerText and checks the signature.
	Verify(att domain.Attestation, answerText string) bool

	// Signer returns the oracle identity embedded in attestations.
	Signer() string
}
