package publickey

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/go-jose/go-jose/v4"

	vccrypto "github.com/pilacorp/go-vc-verifier/credential/common/crypto"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

const (
	ktyOKP = "OKP"
	ktyEC  = "EC"
	ktyRSA = "RSA"

	crvEd25519   = "Ed25519"
	crvP256      = "P-256"
	crvP384      = "P-384"
	crvSecp256k1 = "secp256k1"
)

// fromKeyDocument normalizes cached key material. Fields are tried in the
// order multibase, JWK, hex, PEM.
func fromKeyDocument(vm string, doc *keystore.KeyDocument) (*Record, error) {
	controller := doc.Controller
	if controller == "" {
		controller, _, _ = strings.Cut(vm, "#")
	}

	var (
		record *Record
		err    error
	)
	switch {
	case doc.PublicKeyMultibase != "":
		record, err = fromMultibase(vm, controller, doc.Type, doc.PublicKeyMultibase)
	case len(doc.PublicKeyJwk) > 0 && string(doc.PublicKeyJwk) != "null":
		record, err = fromJWK(vm, controller, doc.PublicKeyJwk)
	case doc.PublicKeyHex != "":
		record, err = fromHex(vm, controller, doc.Type, doc.PublicKeyHex)
	case doc.PublicKeyPem != "":
		record, err = fromPEM(vm, controller, doc.PublicKeyPem)
	default:
		return nil, verifyerr.NotFound(vm, "key document carries no public key material")
	}
	if err != nil {
		return nil, err
	}
	if doc.Type != "" {
		record.KeyType = doc.Type
	}
	return record, nil
}

func fromMultibase(vm, controller, keyType, value string) (*Record, error) {
	data, err := vccrypto.DecodeMultibase(value)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "%v", err)
	}

	// Ed25519VerificationKey2018 style keys carry no multicodec prefix.
	if len(data) == ed25519.PublicKeySize && strings.Contains(keyType, crvEd25519) {
		return newRecord(vm, controller, &decodedKey{algorithm: AlgorithmEd25519, bytes: data}, SourceMultibase)
	}

	key, err := decodeMulticodec(vm, data)
	if err != nil {
		return nil, err
	}
	return newRecord(vm, controller, key, SourceMultibase)
}

func fromHex(vm, controller, keyType, value string) (*Record, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(value, "0x"))
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid publicKeyHex: %v", err)
	}

	if len(data) == ed25519.PublicKeySize && strings.Contains(keyType, crvEd25519) {
		return newRecord(vm, controller, &decodedKey{algorithm: AlgorithmEd25519, bytes: data}, SourceHex)
	}

	point, err := vccrypto.NormalizeSecp256k1(data)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid publicKeyHex: %v", err)
	}
	return newRecord(vm, controller, &decodedKey{algorithm: AlgorithmSecp256k1, bytes: point}, SourceHex)
}

func fromPEM(vm, controller, value string) (*Record, error) {
	block, _ := pem.Decode([]byte(value))
	if block == nil {
		return nil, verifyerr.NotFound(vm, "publicKeyPem is not PEM encoded")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid publicKeyPem: %v", err)
	}

	record, err := fromCryptoKey(vm, controller, pub, SourcePEM)
	if err != nil {
		return nil, err
	}
	record.PEM = value
	return record, nil
}

// fromJWK decodes a JWK. EC keys on secp256k1 are decoded by hand because
// go-jose only knows the NIST curves.
func fromJWK(vm, controller string, raw json.RawMessage) (*Record, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, verifyerr.NotFound(vm, "invalid publicKeyJwk: %v", err)
	}
	kty, _ := fields["kty"].(string)
	crv, _ := fields["crv"].(string)
	if kty == "" {
		return nil, verifyerr.NotFound(vm, "publicKeyJwk is missing kty")
	}

	var record *Record
	if kty == ktyEC && crv == crvSecp256k1 {
		point, err := secp256k1FromJWK(vm, fields)
		if err != nil {
			return nil, err
		}
		record, err = newRecord(vm, controller, &decodedKey{algorithm: AlgorithmSecp256k1, bytes: point}, SourceJWK)
		if err != nil {
			return nil, err
		}
	} else {
		switch kty {
		case ktyOKP:
			if crv != crvEd25519 {
				return nil, verifyerr.NotSupported(vm, kty+"/"+crv)
			}
			xs, _ := fields["x"].(string)
			x, err := decodeBase64URL(xs)
			if err != nil || len(x) != ed25519.PublicKeySize {
				return nil, verifyerr.NotFound(vm, "publicKeyJwk has an invalid Ed25519 x value")
			}
		case ktyEC, ktyRSA:
		default:
			return nil, verifyerr.NotSupported(vm, kty)
		}

		var jwk jose.JSONWebKey
		if err := jwk.UnmarshalJSON(raw); err != nil {
			return nil, verifyerr.NotFound(vm, "invalid publicKeyJwk: %v", err)
		}
		if !jwk.IsPublic() {
			return nil, verifyerr.NotFound(vm, "publicKeyJwk is not a public key")
		}
		var err error
		record, err = fromCryptoKey(vm, controller, jwk.Key, SourceJWK)
		if err != nil {
			return nil, err
		}
	}
	record.JWK = fields
	return record, nil
}

func secp256k1FromJWK(vm string, fields map[string]interface{}) ([]byte, error) {
	xs, _ := fields["x"].(string)
	ys, _ := fields["y"].(string)
	if xs == "" || ys == "" {
		return nil, verifyerr.NotFound(vm, "publicKeyJwk is missing x or y")
	}
	x, err := decodeBase64URL(xs)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid publicKeyJwk x: %v", err)
	}
	y, err := decodeBase64URL(ys)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid publicKeyJwk y: %v", err)
	}
	point, err := vccrypto.Secp256k1FromCoordinates(x, y)
	if err != nil {
		return nil, verifyerr.NotFound(vm, "%v", err)
	}
	return point, nil
}

// fromCryptoKey builds a record from a parsed standard library key.
func fromCryptoKey(vm, controller string, pub interface{}, source Source) (*Record, error) {
	switch key := pub.(type) {
	case ed25519.PublicKey:
		return newRecord(vm, controller, &decodedKey{algorithm: AlgorithmEd25519, bytes: key}, source)
	case *ecdsa.PublicKey:
		var alg Algorithm
		switch key.Curve {
		case elliptic.P256():
			alg = AlgorithmP256
		case elliptic.P384():
			alg = AlgorithmP384
		default:
			return nil, verifyerr.NotSupported(vm, "EC "+key.Curve.Params().Name)
		}
		size := (key.Curve.Params().BitSize + 7) / 8
		point := make([]byte, 1+2*size)
		point[0] = 0x04
		key.X.FillBytes(point[1 : 1+size])
		key.Y.FillBytes(point[1+size:])
		return newRecord(vm, controller, &decodedKey{algorithm: alg, bytes: point}, source)
	case *rsa.PublicKey:
		encoded, err := encodePEM(key)
		if err != nil {
			return nil, verifyerr.NotFound(vm, "%v", err)
		}
		return &Record{
			VerificationMethod: vm,
			Controller:         controller,
			KeyType:            "RsaVerificationKey2018",
			Algorithm:          AlgorithmRSA,
			Source:             source,
			Bytes:              x509.MarshalPKCS1PublicKey(key),
			PEM:                encoded,
		}, nil
	}
	return nil, verifyerr.NotSupported(vm, fmt.Sprintf("%T", pub))
}

func decodeBase64URL(value string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
}
