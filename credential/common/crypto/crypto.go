// Package crypto holds the signature primitives used by the proof verifiers.
package crypto

import (
	"crypto/ed25519"
	"fmt"

	"github.com/multiformats/go-multibase"
)

// VerifyEd25519 verifies a raw Ed25519 signature. Malformed keys or
// signatures verify as false.
func VerifyEd25519(publicKey ed25519.PublicKey, message, signature []byte) bool {
	if len(publicKey) != ed25519.PublicKeySize || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, message, signature)
}

// DecodeMultibase decodes a base58btc multibase string ("z..."), the only
// base used by the supported suites.
func DecodeMultibase(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("multibase value is empty")
	}
	encoding, data, err := multibase.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode multibase value: %w", err)
	}
	if encoding != multibase.Base58BTC {
		return nil, fmt.Errorf("unsupported multibase encoding %q", string(rune(encoding)))
	}
	return data, nil
}

// EncodeMultibase encodes data as base58btc multibase.
func EncodeMultibase(data []byte) (string, error) {
	return multibase.Encode(multibase.Base58BTC, data)
}
