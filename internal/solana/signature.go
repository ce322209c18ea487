package solana

import "crypto/ed25519"

// VerifySignature reports whether signature is a valid ed25519 detached
// signature by publicKey over the raw message bytes. Malformed inputs
// verify as false; they never panic.
func VerifySignature(message, signature []byte, publicKey ed25519.PublicKey) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}
