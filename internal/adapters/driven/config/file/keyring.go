package file

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driven"
)

// Ensure Keyring implements the interface.
var _ driven.KeyResolver = (*Keyring)(nil)

// Keyring maps blob ids to document key material stored in a TOML file:
//
//	[documents."<blob id>"]
//	key = "<hex>"
//	iv  = "<hex>"
//
// The file is written with 0600 permissions. Values are never logged.
type Keyring struct {
	mu       sync.RWMutex
	filePath string
	entries  map[string]keyringEntry
}

type keyringEntry struct {
	Key string `toml:"key"`
	IV  string `toml:"iv"`
}

type keyringFile struct {
	Documents map[string]keyringEntry `toml:"documents"`
}

// NewKeyring opens the keyring at path. A missing file is an empty keyring.
// If path is empty, defaults to ~/.fathom/keyring.toml.
func NewKeyring(path string) (*Keyring, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, ".fathom", "keyring.toml")
	}

	k := &Keyring{
		filePath: path,
		entries:  make(map[string]keyringEntry),
	}
	if err := k.Reload(); err != nil {
		return nil, err
	}
	return k, nil
}

// Resolve returns fresh copies of the key and iv for blobID.
func (k *Keyring) Resolve(_ context.Context, blobID string) ([]byte, []byte, error) {
	k.mu.RLock()
	entry, ok := k.entries[blobID]
	k.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("blob %s: %w", blobID, domain.ErrKeyUnavailable)
	}

	key, err := hex.DecodeString(entry.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("blob %s: key is not valid hex: %w", blobID, domain.ErrInvalidInput)
	}
	iv, err := hex.DecodeString(entry.IV)
	if err != nil {
		return nil, nil, fmt.Errorf("blob %s: iv is not valid hex: %w", blobID, domain.ErrInvalidInput)
	}
	return key, iv, nil
}

// Add stores key material for blobID and persists the keyring.
func (k *Keyring) Add(blobID string, key, iv []byte) error {
	if blobID == "" {
		return fmt.Errorf("blob id: %w", domain.ErrInvalidInput)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.entries[blobID] = keyringEntry{Key: hex.EncodeToString(key), IV: hex.EncodeToString(iv)}
	return k.save()
}

// Len returns the number of documents in the keyring.
func (k *Keyring) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.entries)
}

// Reload re-reads the keyring file.
func (k *Keyring) Reload() error {
	data, err := os.ReadFile(k.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read keyring: %w", err)
	}

	var file keyringFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse keyring: %w", err)
	}
	if file.Documents == nil {
		file.Documents = make(map[string]keyringEntry)
	}

	k.mu.Lock()
	k.entries = file.Documents
	k.mu.Unlock()
	return nil
}

// Path returns the keyring file path.
func (k *Keyring) Path() string {
	return k.filePath
}

// save writes the keyring file (caller must hold lock).
func (k *Keyring) save() error {
	data, err := toml.Marshal(keyringFile{Documents: k.entries})
	if err != nil {
		return fmt.Errorf("marshal keyring: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(k.filePath), 0700); err != nil {
		return fmt.Errorf("create keyring directory: %w", err)
	}
	return os.WriteFile(k.filePath, data, 0600)
}
