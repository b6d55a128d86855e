// Package aescbc decrypts documents encrypted with AES in CBC mode and
// PKCS#7 padding, the format produced by the document upload client.
package aescbc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Decryptor implements the interface.
var _ driven.Decryptor = (*Decryptor)(nil)

// Key and IV sizes produced by the upload client.
const (
	KeySize = 32
	IVSize  = aes.BlockSize
)

// Decryptor implements driven.Decryptor. It holds no state.
type Decryptor struct{}

// NewDecryptor creates a new decryptor.
func NewDecryptor() *Decryptor {
	return &Decryptor{}
}

// Decrypt reverses AES-CBC and strips PKCS#7 padding.
// Invalid UTF-8 in the result is replaced, not rejected.
func (d *Decryptor) Decrypt(ciphertext, key, iv []byte) (*domain.PlaintextDocument, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &domain.DecryptionError{
			Kind:   domain.DecryptBadKey,
			Reason: fmt.Sprintf("key length %d", len(key)),
		}
	}
	if len(iv) != aes.BlockSize {
		return nil, &domain.DecryptionError{
			Kind:   domain.DecryptMalformed,
			Reason: fmt.Sprintf("iv length %d", len(iv)),
		}
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, &domain.DecryptionError{
			Kind:   domain.DecryptMalformed,
			Reason: fmt.Sprintf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize),
		}
	}

	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)

	n, err := paddingLen(out)
	if err != nil {
		clear(out)
		return nil, err
	}
	clear(out[len(out)-n:])

	return domain.NewPlaintextDocument(out[:len(out)-n]), nil
}

// paddingLen validates PKCS#7 padding and returns its length.
func paddingLen(b []byte) (int, error) {
	n := int(b[len(b)-1])
	if n < 1 || n > aes.BlockSize {
		return 0, &domain.DecryptionError{
			Kind:   domain.DecryptBadPadding,
			Reason: fmt.Sprintf("pad byte %d out of range", n),
		}
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return 0, &domain.DecryptionError{Kind: domain.DecryptBadPadding, Reason: "inconsistent pad bytes"}
		}
	}
	return n, nil
}

// Encrypt pads plaintext with PKCS#7 and encrypts it with AES-CBC.
// It is the inverse of Decrypt and is used by document owners.
func Encrypt(plaintext, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &domain.DecryptionError{
			Kind:   domain.DecryptBadKey,
			Reason: fmt.Sprintf("key length %d", len(key)),
		}
	}
	if len(iv) != aes.BlockSize {
		return nil, &domain.DecryptionError{
			Kind:   domain.DecryptMalformed,
			Reason: fmt.Sprintf("iv length %d", len(iv)),
		}
	}

	n := aes.BlockSize - len(plaintext)%aes.BlockSize
	padded := make([]byte, len(plaintext)+n)
	copy(padded, plaintext)
	for i := len(plaintext); i < len(padded); i++ {
		padded[i] = byte(n)
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	clear(padded)
	return out, nil
}

// GenerateKey returns a random AES-256 key and IV.
func GenerateKey() (key, iv []byte, err error) {
	key = make([]byte, KeySize)
	iv = make([]byte, IVSize)
	if _, err := rand.Read(key); err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, fmt.Errorf("generate iv: %w", err)
	}
	return key, iv, nil
}
