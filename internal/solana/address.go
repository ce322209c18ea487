// Package solana holds the chain-specific primitives: base58 address
// handling and ed25519 detached-signature verification.
package solana

import (
	"crypto/ed25519"

	"github.com/btcsuite/btcutil/base58"
)

// Solana addresses are the base58 encoding of a 32-byte ed25519 public key.
// Base58 strings for 32 bytes are between 32 and 44 characters.
const (
	minAddressLen = 32
	maxAddressLen = 44
)

// DecodeAddress decodes a base58 address into its ed25519 public key.
// Returns false for anything that is not a well-formed 32-byte key.
func DecodeAddress(address string) (ed25519.PublicKey, bool) {
	if len(address) < minAddressLen || len(address) > maxAddressLen {
		return nil, false
	}
	raw := base58.Decode(address)
	if len(raw) != ed25519.PublicKeySize {
		return nil, false
	}
	return ed25519.PublicKey(raw), true
}

// ValidAddress reports whether address passes the chain's address-format
// validation.
func ValidAddress(address string) bool {
	_, ok := DecodeAddress(address)
	return ok
}

// DecodeSignature decodes a base58 detached signature. Returns false unless
// the result is exactly ed25519.SignatureSize bytes.
func DecodeSignature(signature string) ([]byte, bool) {
	if signature == "" {
		return nil, false
	}
	raw := base58.Decode(signature)
	if len(raw) != ed25519.SignatureSize {
		return nil, false
	}
	return raw, true
}
