package driven

import (
	"context"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
)

// BlobStore fetches opaque ciphertext by content identifier.
// Implementations bound every read with a timeout and never retry; failures
// are reported as *domain.FetchError so the caller can apply its own policy.
type BlobStore interface {
	// Fetch reads the blob with the given id.
	Fetch(ctx context.Context, blobID string) (*domain.EncryptedBlob, error)

	// Name identifies the store in logs and health output.
	Name() string
}
