package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Signature scheme flags.
const (
	flagEd25519 byte = 0x00
)

// intentTransactionData is the intent prefix for signing transaction data:
// scope TransactionData, version V0, app Sui.
var intentTransactionData = [3]byte{0, 0, 0}

// ErrInvalidPrivateKey indicates unparseable oracle key material.
// It never includes the key itself.
var ErrInvalidPrivateKey = errors.New("sui: invalid private key")

// Keypair is the oracle's Ed25519 account key.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair wraps an existing Ed25519 private key.
func NewKeypair(priv ed25519.PrivateKey) *Keypair {
	return &Keypair{priv: priv}
}

// ParseKeypair decodes key material given as hex or base64. Accepted forms
// are a 32-byte seed, a 64-byte private key, or a 33-byte Sui keystore entry
// (scheme flag followed by the seed).
func ParseKeypair(s string) (*Keypair, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPrivateKey)
	}
	if strings.HasPrefix(s, "suiprivkey") {
		return nil, fmt.Errorf("%w: bech32 keys are not supported, export as base64", ErrInvalidPrivateKey)
	}

	raw, err := decodeKey(s)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	switch len(raw) {
	case ed25519.SeedSize:
		return &Keypair{priv: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.SeedSize + 1:
		if raw[0] != flagEd25519 {
			return nil, fmt.Errorf("%w: unsupported signature scheme flag %#x", ErrInvalidPrivateKey, raw[0])
		}
		return &Keypair{priv: ed25519.NewKeyFromSeed(raw[1:])}, nil
	case ed25519.PrivateKeySize:
		priv := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
		copy(priv, raw)
		return &Keypair{priv: priv}, nil
	default:
		return nil, fmt.Errorf("%w: decoded length %d", ErrInvalidPrivateKey, len(raw))
	}
}

func decodeKey(s string) ([]byte, error) {
	hexStr := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if raw, err := hex.DecodeString(hexStr); err == nil {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("%w: neither hex nor base64", ErrInvalidPrivateKey)
}

// PrivateKey returns the Ed25519 private key.
func (k *Keypair) PrivateKey() ed25519.PrivateKey {
	return k.priv
}

// PublicKey returns the Ed25519 public key.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// Address returns the Sui address: blake2b-256 of the scheme flag and public key.
func (k *Keypair) Address() string {
	return AddressOf(k.PublicKey())
}

// AddressOf derives the Sui address of an Ed25519 public key.
func AddressOf(pub ed25519.PublicKey) string {
	buf := make([]byte, 0, 1+len(pub))
	buf = append(buf, flagEd25519)
	buf = append(buf, pub...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// SignTransaction signs BCS transaction bytes and returns the serialized
// signature (flag || signature || public key), base64 encoded.
func (k *Keypair) SignTransaction(txBytes []byte) string {
	msg := make([]byte, 0, len(intentTransactionData)+len(txBytes))
	msg = append(msg, intentTransactionData[:]...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(k.priv, digest[:])
	pub := k.PublicKey()

	out := make([]byte, 0, 1+len(sig)+len(pub))
	out = append(out, flagEd25519)
	out = append(out, sig...)
	out = append(out, pub...)
	return base64.StdEncoding.EncodeToString(out)
}

// String renders the keypair by address only.
func (k *Keypair) String() string {
	return "Keypair{" + k.Address() + "}"
}
