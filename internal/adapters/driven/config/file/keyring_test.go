package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

func TestKeyring_ImplementsInterface(t *testing.T) {
	var _ driven.KeyResolver = (*Keyring)(nil)
}

func TestNewKeyring_MissingFileIsEmpty(t *testing.T) {
	k, err := NewKeyring(filepath.Join(t.TempDir(), "keyring.toml"))
	require.NoError(t, err)
	assert.Zero(t, k.Len())

	_, _, err = k.Resolve(context.Background(), "blob")
	assert.True(t, errors.Is(err, domain.ErrKeyUnavailable))
}

func TestKeyring_ResolveFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.toml")
	content := `[documents."abc-DEF_123"]
key = "000102030405060708090a0b0c0d0e0f"
iv = "0f0e0d0c0b0a09080706050403020100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	k, err := NewKeyring(path)
	require.NoError(t, err)

	key, iv, err := k.Resolve(context.Background(), "abc-DEF_123")
	require.NoError(t, err)
	assert.Len(t, key, 16)
	assert.Equal(t, byte(0x0f), key[15])
	assert.Equal(t, byte(0x0f), iv[0])
}

func TestKeyring_ResolveReturnsCopies(t *testing.T) {
	k, err := NewKeyring(filepath.Join(t.TempDir(), "keyring.toml"))
	require.NoError(t, err)
	require.NoError(t, k.Add("blob", []byte{1, 2, 3}, []byte{4, 5, 6}))

	key, _, err := k.Resolve(context.Background(), "blob")
	require.NoError(t, err)
	key[0] = 0

	again, _, err := k.Resolve(context.Background(), "blob")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestKeyring_AddPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "keyring.toml")
	k, err := NewKeyring(path)
	require.NoError(t, err)

	require.NoError(t, k.Add("blob-1", []byte{0xaa}, []byte{0xbb}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewKeyring(path)
	require.NoError(t, err)
	key, iv, err := reopened.Resolve(context.Background(), "blob-1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa}, key)
	assert.Equal(t, []byte{0xbb}, iv)
}

func TestKeyring_AddRejectsEmptyBlobID(t *testing.T) {
	k, err := NewKeyring(filepath.Join(t.TempDir(), "keyring.toml"))
	require.NoError(t, err)
	assert.True(t, errors.Is(k.Add("", nil, nil), domain.ErrInvalidInput))
}

func TestKeyring_InvalidHex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.toml")
	require.NoError(t, os.WriteFile(path, []byte("[documents.blob]\nkey = \"zz\"\niv = \"00\"\n"), 0600))

	k, err := NewKeyring(path)
	require.NoError(t, err)

	_, _, err = k.Resolve(context.Background(), "blob")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.NotContains(t, err.Error(), "zz")
}

func TestKeyring_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[[not toml"), 0600))

	_, err := NewKeyring(path)
	assert.Error(t, err)
}

func TestKeyring_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyring.toml")
	k, err := NewKeyring(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[documents.b]\nkey = \"01\"\niv = \"02\"\n"), 0600))
	require.NoError(t, k.Reload())
	assert.Equal(t, 1, k.Len())
}
