package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// QueryRequest is a single question about an encrypted document.
// DecryptionKey and IV live only for one pipeline run. They are excluded from
// JSON output and from String, and are wiped by the pipeline once the answer
// has been generated.
type QueryRequest struct {
	// QueryID identifies the on-ledger query object.
	QueryID string `json:"query_id"`

	// DocumentBlobID is the blob store identifier of the ciphertext.
	DocumentBlobID string `json:"document_blob_id"`

	// Question is the natural-language question.
	Question string `json:"question"`

	// DecryptionKey is the symmetric key for the document.
	DecryptionKey []byte `json:"-"`

	// IV is the cipher initialisation vector.
	IV []byte `json:"-"`
}

// Validate checks that all fields required by the pipeline are present.
func (r *QueryRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.QueryID) == "" {
		missing = append(missing, "query_id")
	}
	if strings.TrimSpace(r.DocumentBlobID) == "" {
		missing = append(missing, "document_blob_id")
	}
	if strings.TrimSpace(r.Question) == "" {
		missing = append(missing, "question")
	}
	if len(r.DecryptionKey) == 0 {
		missing = append(missing, "decryption_key")
	}
	if len(r.IV) == 0 {
		missing = append(missing, "iv")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Wipe overwrites the key material in place and drops the references.
func (r *QueryRequest) Wipe() {
	clear(r.DecryptionKey)
	clear(r.IV)
	r.DecryptionKey = nil
	r.IV = nil
}

// String renders the request without key material.
func (r QueryRequest) String() string {
	return fmt.Sprintf("QueryRequest{query_id=%s blob=%s key=[redacted]}", r.QueryID, r.DocumentBlobID)
}

// DecodeKeyHex decodes hex key material, with or without a 0x prefix.
// The error names field but never echoes the value.
func DecodeKeyHex(field, s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid hex", ErrInvalidInput, field)
	}
	return b, nil
}

// EncryptedBlob is raw ciphertext fetched for BlobID. Treat Data as read-only.
type EncryptedBlob struct {
	BlobID string
	Data   []byte
}

// PlaintextDocument is decrypted document text owned by one pipeline run.
type PlaintextDocument struct {
	// Text is the lossily decoded UTF-8 content.
	Text string

	raw []byte
}

// NewPlaintextDocument takes ownership of raw decrypted bytes. Invalid UTF-8
// sequences are replaced rather than rejected.
func NewPlaintextDocument(raw []byte) *PlaintextDocument {
	return &PlaintextDocument{
		Text: strings.ToValidUTF8(string(raw), "�"),
		raw:  raw,
	}
}

// Len returns the text length in bytes.
func (d *PlaintextDocument) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Text)
}

// Zeroize overwrites the decrypted bytes and drops the reference to Text.
// Text and any chunk texts cut from it are immutable string copies; they are
// not overwritten and are only released to the garbage collector.
// The document must not be used afterwards.
func (d *PlaintextDocument) Zeroize() {
	if d == nil {
		return
	}
	clear(d.raw)
	d.raw = nil
	d.Text = ""
}
