// Package sui submits attested answers to the Fathom Move package on Sui
// and reads QuerySubmitted events, using the fullnode JSON-RPC API.
//
// Transactions are built by the fullnode (unsafe_moveCall), signed locally
// with the oracle's Ed25519 key and executed with sui_executeTransactionBlock.
// All calls share one rate limiter.
package sui
