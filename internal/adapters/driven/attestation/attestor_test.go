package attestation

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) (*Signer, ed25519.PrivateKey) {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	key := ed25519.NewKeyFromSeed(seed)
	return NewSigner(key, "0xoracle"), key
}

var fixedTime = time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)

func TestAttest_Deterministic(t *testing.T) {
	s, _ := testSigner(t)

	a := s.Attest("q1", "doc1", "The budget is $4.2M.", fixedTime)
	b := s.Attest("q1", "doc1", "The budget is $4.2M.", fixedTime)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Signature, b.Signature)
	assert.Equal(t, "0xoracle", a.Signer)
	assert.Equal(t, "q1", a.QueryID)
	assert.Equal(t, "doc1", a.DocumentID)
	assert.Len(t, a.Signature, ed25519.SignatureSize)
}

func TestAttest_TimezoneDoesNotChangeHash(t *testing.T) {
	s, _ := testSigner(t)
	zone := time.FixedZone("UTC+5", 5*3600)

	a := s.Attest("q", "d", "x", fixedTime)
	b := s.Attest("q", "d", "x", fixedTime.In(zone))

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, time.UTC, b.Timestamp.Location())
}

func TestAttest_EveryFieldIsBound(t *testing.T) {
	s, _ := testSigner(t)
	base := s.Attest("q", "d", "answer", fixedTime)

	variants := []struct {
		name string
		att  [32]byte
	}{
		{"query", s.Attest("q2", "d", "answer", fixedTime).Hash},
		{"document", s.Attest("q", "d2", "answer", fixedTime).Hash},
		{"answer", s.Attest("q", "d", "answer!", fixedTime).Hash},
		{"timestamp", s.Attest("q", "d", "answer", fixedTime.Add(time.Nanosecond)).Hash},
	}

	for _, v := range variants {
		assert.NotEqual(t, base.Hash, v.att, v.name)
	}
}

func TestDigest_NoConcatenationCollisions(t *testing.T) {
	a := Digest("ab", "c", "x", fixedTime)
	b := Digest("a", "bc", "x", fixedTime)
	assert.NotEqual(t, a, b)

	c := Digest("q:d", "", "x", fixedTime)
	d := Digest("q", ":d", "x", fixedTime)
	assert.NotEqual(t, c, d)
}

func TestVerify(t *testing.T) {
	s, _ := testSigner(t)
	att := s.Attest("q", "d", "answer", fixedTime)

	assert.True(t, s.Verify(att, "answer"))
	assert.False(t, s.Verify(att, "tampered"))

	forged := att
	forged.Signature = append([]byte(nil), att.Signature...)
	forged.Signature[0] ^= 0xff
	assert.False(t, s.Verify(forged, "answer"))

	other := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	assert.False(t, VerifyWithKey(other.Public().(ed25519.PublicKey), att, "answer"))
}

func TestAttest_NeverExposesPrivateKey(t *testing.T) {
	s, key := testSigner(t)
	att := s.Attest("q", "d", "answer", fixedTime)

	rendered := fmt.Sprintf("%+v %s %s", att, att.HashHex(), att.SignatureHex())
	assert.False(t, strings.Contains(rendered, hex.EncodeToString(key.Seed())))
	assert.False(t, strings.Contains(rendered, hex.EncodeToString(key)))
}

func TestDigest_KnownVectorIsStable(t *testing.T) {
	first := Digest("query", "doc", "answer", fixedTime)
	require.Equal(t, first, Digest("query", "doc", "answer", fixedTime.In(time.Local)))
	assert.Len(t, hex.EncodeToString(first[:]), 64)
}
