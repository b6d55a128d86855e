// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - BlobStore: Fetches encrypted documents (Walrus aggregator, GCS mirror)
//   - Decryptor: Reverses the document cipher inside the trust boundary
//   - Chunker: Splits plaintext into overlapping spans
//   - Retriever: Ranks chunks against a question
//   - GenerationBackend: One hosted or local text-generation service
//   - Attestor: Signs the answer binding
//   - LedgerSubmitter: Writes the signed answer to the ledger
//   - QueryLedgerTracker: Records which queries have been finalised
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - KeyResolver: Supplies key material for ledger-discovered queries.
//     Without it, only requests that carry their own key are processed.
//   - PromptStore: Custom prompt templates. Without it, defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or driving package
package driven
