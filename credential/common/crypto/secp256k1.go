package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/crypto"
)

// NormalizeSecp256k1Hex decodes a hex secp256k1 key (optionally 0x-prefixed,
// compressed or uncompressed) and returns the uncompressed 0x04||X||Y point.
func NormalizeSecp256k1Hex(publicKeyHex string) ([]byte, error) {
	pubKeyBytes, err := hex.DecodeString(strings.TrimPrefix(publicKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode public key hex: %w", err)
	}
	return NormalizeSecp256k1(pubKeyBytes)
}

// NormalizeSecp256k1 returns the uncompressed form of a serialized secp256k1 point.
func NormalizeSecp256k1(pubKeyBytes []byte) ([]byte, error) {
	pubKeyParsed, err := btcec.ParsePubKey(pubKeyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse secp256k1 public key: %w", err)
	}
	return pubKeyParsed.SerializeUncompressed(), nil
}

// Secp256k1FromCoordinates builds the uncompressed point from JWK x/y
// coordinates and checks it lies on the curve.
func Secp256k1FromCoordinates(x, y []byte) ([]byte, error) {
	if len(x) != 32 || len(y) != 32 {
		return nil, fmt.Errorf("invalid secp256k1 coordinates length: x=%d y=%d", len(x), len(y))
	}
	point := make([]byte, 0, 65)
	point = append(point, 0x04)
	point = append(point, x...)
	point = append(point, y...)

	if _, err := secp256k1.ParsePubKey(point); err != nil {
		return nil, fmt.Errorf("invalid secp256k1 point: %w", err)
	}
	return point, nil
}

// Secp256k1PublicKey turns an uncompressed point into an *ecdsa.PublicKey.
func Secp256k1PublicKey(uncompressed []byte) (*ecdsa.PublicKey, error) {
	pubKey, err := crypto.UnmarshalPubkey(uncompressed)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal secp256k1 public key: %w", err)
	}
	return pubKey, nil
}
