package driven

import "github.com/anynomousfriend/Fathom-0x/internal/core/domain"

// Decryptor reverses the symmetric transform applied by document owners.
// Failures are reported as *domain.DecryptionError and are never retried.
type Decryptor interface {
	// Decrypt returns the plaintext for ciphertext under key and iv.
	// Implementations must not retain key, iv or the plaintext.
	Decrypt(ciphertext, key, iv []byte) (*domain.PlaintextDocument, error)
}
