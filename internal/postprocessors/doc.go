// Package postprocessors holds the text-processing stages that run on
// decrypted documents: chunking and relevance scoring. The Registry maps
// configured scorer names to implementations.
package postprocessors
