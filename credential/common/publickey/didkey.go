package publickey

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/elliptic"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/multiformats/go-varint"

	vccrypto "github.com/pilacorp/go-vc-verifier/credential/common/crypto"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

// Multicodec tags of the supported public key types.
const (
	codecEd25519   uint64 = 0xed
	codecSecp256k1 uint64 = 0xe7
	codecP256      uint64 = 0x1200
	codecP384      uint64 = 0x1201
)

const didKeyPrefix = "did:key:"

// decodedKey is the intermediate result of a multicodec decode.
type decodedKey struct {
	algorithm Algorithm
	bytes     []byte
}

// resolveDIDKey decodes a did:key verification method.
func resolveDIDKey(vm string) (*Record, error) {
	did, _, _ := strings.Cut(vm, "#")
	encoded := strings.TrimPrefix(did, didKeyPrefix)
	if !strings.HasPrefix(encoded, "z") {
		return nil, verifyerr.NotFound(vm, "did:key identifier must be base58btc multibase")
	}

	data, err := vccrypto.DecodeMultibase(encoded)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "%v", err)
	}

	key, err := decodeMulticodec(vm, data)
	if err != nil {
		return nil, err
	}
	return newRecord(vm, did, key, SourceDID)
}

// decodeMulticodec reads the varint multicodec tag and decodes the key that follows.
func decodeMulticodec(vm string, data []byte) (*decodedKey, error) {
	code, n, err := varint.FromUvarint(data)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid multicodec prefix: %v", err)
	}
	raw := data[n:]

	switch code {
	case codecEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return nil, verifyerr.NotFound(vm, "invalid Ed25519 key length %d", len(raw))
		}
		return &decodedKey{algorithm: AlgorithmEd25519, bytes: raw}, nil
	case codecP256:
		point, err := uncompressedPoint(elliptic.P256(), raw)
		if err != nil {
			return nil, verifyerr.NotFound(vm, "%v", err)
		}
		return &decodedKey{algorithm: AlgorithmP256, bytes: point}, nil
	case codecP384:
		point, err := uncompressedPoint(elliptic.P384(), raw)
		if err != nil {
			return nil, verifyerr.NotFound(vm, "%v", err)
		}
		return &decodedKey{algorithm: AlgorithmP384, bytes: point}, nil
	case codecSecp256k1:
		point, err := vccrypto.NormalizeSecp256k1(raw)
		if err != nil {
			return nil, verifyerr.NotFound(vm, "%v", err)
		}
		return &decodedKey{algorithm: AlgorithmSecp256k1, bytes: point}, nil
	default:
		return nil, verifyerr.NotSupported(vm, fmt.Sprintf("multicodec 0x%x", code))
	}
}

// uncompressedPoint accepts a compressed or uncompressed NIST point and
// returns it as 0x04||X||Y after checking it lies on the curve.
func uncompressedPoint(curve elliptic.Curve, data []byte) ([]byte, error) {
	size := (curve.Params().BitSize + 7) / 8
	switch {
	case len(data) == 1+size && (data[0] == 0x02 || data[0] == 0x03):
		x, y := elliptic.UnmarshalCompressed(curve, data)
		if x == nil {
			return nil, fmt.Errorf("invalid compressed %s point", curve.Params().Name)
		}
		point := make([]byte, 1+2*size)
		point[0] = 0x04
		x.FillBytes(point[1 : 1+size])
		y.FillBytes(point[1+size:])
		return point, nil
	case len(data) == 1+2*size && data[0] == 0x04:
		if _, err := ecdhCurve(curve).NewPublicKey(data); err != nil {
			return nil, fmt.Errorf("invalid %s point: %w", curve.Params().Name, err)
		}
		return append([]byte(nil), data...), nil
	}
	return nil, fmt.Errorf("invalid %s point length %d", curve.Params().Name, len(data))
}

func ecdhCurve(curve elliptic.Curve) ecdh.Curve {
	if curve == elliptic.P384() {
		return ecdh.P384()
	}
	return ecdh.P256()
}

// EncodeDIDKey encodes a public key as a did:key identifier. Ed25519 takes
// the raw 32-byte key; EC algorithms take a compressed or uncompressed point.
func EncodeDIDKey(alg Algorithm, raw []byte) (string, error) {
	var (
		code uint64
		key  []byte
	)
	switch alg {
	case AlgorithmEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return "", fmt.Errorf("invalid Ed25519 key length %d", len(raw))
		}
		code, key = codecEd25519, raw
	case AlgorithmP256, AlgorithmP384:
		curve := elliptic.P256()
		code = codecP256
		if alg == AlgorithmP384 {
			curve, code = elliptic.P384(), codecP384
		}
		point, err := uncompressedPoint(curve, raw)
		if err != nil {
			return "", err
		}
		size := (curve.Params().BitSize + 7) / 8
		key = compressPoint(point, size)
	case AlgorithmSecp256k1:
		pub, err := btcec.ParsePubKey(raw)
		if err != nil {
			return "", fmt.Errorf("invalid secp256k1 key: %w", err)
		}
		code, key = codecSecp256k1, pub.SerializeCompressed()
	default:
		return "", fmt.Errorf("did:key encoding not supported for %s", alg)
	}

	data := append(varint.ToUvarint(code), key...)
	encoded, err := vccrypto.EncodeMultibase(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode did:key: %w", err)
	}
	return didKeyPrefix + encoded, nil
}

func compressPoint(point []byte, size int) []byte {
	out := make([]byte, 1+size)
	out[0] = 0x02 | (point[len(point)-1] & 1)
	copy(out[1:], point[1:1+size])
	return out
}

func newRecord(vm, controller string, key *decodedKey, source Source) (*Record, error) {
	record := &Record{
		VerificationMethod: vm,
		Controller:         controller,
		Algorithm:          key.algorithm,
		Source:             source,
		Bytes:              key.bytes,
	}

	switch key.algorithm {
	case AlgorithmEd25519:
		record.KeyType = "Ed25519VerificationKey2020"
	case AlgorithmSecp256k1:
		record.KeyType = "EcdsaSecp256k1VerificationKey2019"
		record.ECUncompressedHex = hex.EncodeToString(key.bytes)
	default:
		record.KeyType = "JsonWebKey2020"
		record.ECUncompressedHex = hex.EncodeToString(key.bytes)
	}

	// secp256k1 has no SPKI encoding in the standard library.
	if key.algorithm != AlgorithmSecp256k1 {
		pub, err := record.PublicKey()
		if err != nil {
			return nil, verifyerr.NotFound(vm, "%v", err)
		}
		if record.PEM, err = encodePEM(pub); err != nil {
			return nil, verifyerr.NotFound(vm, "%v", err)
		}
	}
	return record, nil
}
