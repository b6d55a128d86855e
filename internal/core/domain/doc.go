// Package domain defines the core business entities for the Fathom oracle.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - QueryRequest: A question about an encrypted document, plus its key
//   - EncryptedBlob: Opaque ciphertext fetched from the blob store
//   - PlaintextDocument: Decrypted text confined to one pipeline run
//   - Chunk / RankedChunk: Retrieval units and their relevance scores
//   - Answer / Attestation: The generated answer and its signed binding
//   - ProcessedQueryRecord: Proof that a query was submitted to the ledger
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
