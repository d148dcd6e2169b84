package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWSHeader is the protected header of a detached JWS.
type JWSHeader struct {
	Alg  string   `json:"alg"`
	B64  *bool    `json:"b64,omitempty"`
	Crit []string `json:"crit,omitempty"`
	Kid  string   `json:"kid,omitempty"`
}

// Unencoded reports whether the payload is used raw in the signing input.
func (h JWSHeader) Unencoded() bool {
	return h.B64 != nil && !*h.B64
}

// ParseJWSHeader decodes the header of a compact JWS without touching the signature.
func ParseJWSHeader(jws string) (*JWSHeader, error) {
	parts := strings.Split(jws, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid JWS format: expected 3 parts, got %d", len(parts))
	}

	headerBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid JWS header: %w", err)
	}

	var header JWSHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("invalid JWS header: %w", err)
	}
	if header.Alg == "" {
		return nil, fmt.Errorf("invalid JWS header: alg is missing")
	}
	return &header, nil
}

// VerifyDetachedJWS verifies a detached compact JWS ("header..signature")
// over payload. Only EdDSA over Ed25519 keys is implemented; any other
// algorithm verifies as false.
func VerifyDetachedJWS(jws string, payload []byte, publicKey ed25519.PublicKey) (bool, error) {
	header, err := ParseJWSHeader(jws)
	if err != nil {
		return false, err
	}

	parts := strings.Split(jws, ".")
	if parts[1] != "" {
		return false, fmt.Errorf("invalid JWS format: payload must be detached")
	}

	signature, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("invalid JWS signature: %w", err)
	}

	if header.Alg != jwt.SigningMethodEdDSA.Alg() {
		return false, nil
	}

	var signingInput string
	if header.Unencoded() {
		signingInput = parts[0] + "." + string(payload)
	} else {
		signingInput = parts[0] + "." + base64.RawURLEncoding.EncodeToString(payload)
	}

	err = jwt.SigningMethodEdDSA.Verify(signingInput, signature, publicKey)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, jwt.ErrEd25519Verification) {
		return false, nil
	}
	return false, fmt.Errorf("failed to verify JWS: %w", err)
}
