// Package publickey resolves verification method URIs into normalized key
// material.
package publickey

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"

	vccrypto "github.com/pilacorp/go-vc-verifier/credential/common/crypto"
)

// Algorithm is the key algorithm of a resolved key.
type Algorithm string

const (
	AlgorithmEd25519   Algorithm = "Ed25519"
	AlgorithmSecp256k1 Algorithm = "secp256k1"
	AlgorithmP256      Algorithm = "P-256"
	AlgorithmP384      Algorithm = "P-384"
	AlgorithmRSA       Algorithm = "RSA"
	AlgorithmUnknown   Algorithm = "Unknown"
)

// Source is the encoding the key material was decoded from.
type Source string

const (
	SourcePEM       Source = "pem"
	SourceJWK       Source = "jwk"
	SourceHex       Source = "hex"
	SourceMultibase Source = "multibase"
	SourceDID       Source = "did"
)

// Record is the normalized result of resolving a verification method. A
// Record is built once per resolution and never modified afterwards.
type Record struct {
	VerificationMethod string
	Controller         string
	KeyType            string
	Algorithm          Algorithm
	Source             Source

	// Bytes holds the raw Ed25519 key or the uncompressed EC point.
	Bytes []byte
	JWK   map[string]interface{}
	// ECUncompressedHex is set for EC keys: hex of 0x04||X||Y.
	ECUncompressedHex string
	// PEM is the SPKI encoding of the key when it could be produced.
	PEM string
}

// PublicKey returns the key as a crypto.PublicKey.
func (r *Record) PublicKey() (crypto.PublicKey, error) {
	switch r.Algorithm {
	case AlgorithmEd25519:
		if len(r.Bytes) != ed25519.PublicKeySize {
			return nil, fmt.Errorf("invalid Ed25519 key length %d", len(r.Bytes))
		}
		return ed25519.PublicKey(r.Bytes), nil
	case AlgorithmP256:
		return ecdsaKey(elliptic.P256(), r.Bytes)
	case AlgorithmP384:
		return ecdsaKey(elliptic.P384(), r.Bytes)
	case AlgorithmSecp256k1:
		return vccrypto.Secp256k1PublicKey(r.Bytes)
	case AlgorithmRSA:
		block, _ := pem.Decode([]byte(r.PEM))
		if block == nil {
			return nil, fmt.Errorf("RSA key has no PEM encoding")
		}
		return x509.ParsePKIXPublicKey(block.Bytes)
	}
	return nil, fmt.Errorf("unsupported key algorithm %q", r.Algorithm)
}

// Ed25519 returns the key as an ed25519.PublicKey or an error for any other algorithm.
func (r *Record) Ed25519() (ed25519.PublicKey, error) {
	if r.Algorithm != AlgorithmEd25519 {
		return nil, fmt.Errorf("key algorithm is %s, not Ed25519", r.Algorithm)
	}
	key, err := r.PublicKey()
	if err != nil {
		return nil, err
	}
	return key.(ed25519.PublicKey), nil
}

func ecdsaKey(curve elliptic.Curve, point []byte) (*ecdsa.PublicKey, error) {
	size := (curve.Params().BitSize + 7) / 8
	if len(point) != 1+2*size || point[0] != 0x04 {
		return nil, fmt.Errorf("invalid uncompressed %s point", curve.Params().Name)
	}
	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(point[1 : 1+size]),
		Y:     new(big.Int).SetBytes(point[1+size:]),
	}, nil
}

func encodePEM(key crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
