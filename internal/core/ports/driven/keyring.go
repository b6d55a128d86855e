package driven

import "context"

// KeyResolver supplies document key material for queries discovered without it.
type KeyResolver interface {
	// Resolve returns the key and iv for blobID, or domain.ErrKeyUnavailable.
	// Callers own the returned slices and must wipe them after use.
	Resolve(ctx context.Context, blobID string) (key, iv []byte, err error)
}

// CursorStore persists the ledger event cursor between polls.
type CursorStore interface {
	// LoadCursor returns the saved cursor for name, or "" if none.
	LoadCursor(ctx context.Context, name string) (string, error)

	// SaveCursor persists cursor for name.
	SaveCursor(ctx context.Context, name, cursor string) error
}
