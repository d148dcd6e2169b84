package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func detachedJWS(t *testing.T, priv ed25519.PrivateKey, header string, payload []byte, unencoded bool) string {
	t.Helper()
	headerB64 := base64.RawURLEncoding.EncodeToString([]byte(header))
	input := headerB64 + "."
	if unencoded {
		input += string(payload)
	} else {
		input += base64.RawURLEncoding.EncodeToString(payload)
	}
	sig := ed25519.Sign(priv, []byte(input))
	return headerB64 + ".." + base64.RawURLEncoding.EncodeToString(sig)
}

func TestVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg := []byte("message")
	sig := ed25519.Sign(priv, msg)

	assert.True(t, VerifyEd25519(pub, msg, sig))
	assert.False(t, VerifyEd25519(pub, []byte("other"), sig))
	assert.False(t, VerifyEd25519(pub[:10], msg, sig))
	assert.False(t, VerifyEd25519(pub, msg, sig[:10]))
}

func TestMultibaseRoundTrip(t *testing.T) {
	data := []byte{0xed, 0x01, 0x02, 0x03}
	encoded, err := EncodeMultibase(data)
	require.NoError(t, err)
	assert.Equal(t, byte('z'), encoded[0])

	decoded, err := DecodeMultibase(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = DecodeMultibase("")
	assert.Error(t, err)

	// base64url multibase is rejected.
	_, err = DecodeMultibase("uAQID")
	assert.Error(t, err)
}

func TestVerifyDetachedJWS(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	payload := make([]byte, 64)
	_, err = rand.Read(payload)
	require.NoError(t, err)

	unencodedHeader := `{"alg":"EdDSA","b64":false,"crit":["b64"]}`

	tests := []struct {
		name    string
		jws     string
		payload []byte
		key     ed25519.PublicKey
		want    bool
		wantErr bool
	}{
		{
			name:    "unencoded payload",
			jws:     detachedJWS(t, priv, unencodedHeader, payload, true),
			payload: payload,
			key:     pub,
			want:    true,
		},
		{
			name:    "encoded payload",
			jws:     detachedJWS(t, priv, `{"alg":"EdDSA"}`, payload, false),
			payload: payload,
			key:     pub,
			want:    true,
		},
		{
			name:    "tampered payload",
			jws:     detachedJWS(t, priv, unencodedHeader, payload, true),
			payload: append([]byte{0x00}, payload[1:]...),
			key:     pub,
			want:    false,
		},
		{
			name:    "wrong key",
			jws:     detachedJWS(t, priv, unencodedHeader, payload, true),
			payload: payload,
			key:     otherPub,
			want:    false,
		},
		{
			name:    "unimplemented algorithm",
			jws:     detachedJWS(t, priv, `{"alg":"ES256K","b64":false}`, payload, true),
			payload: payload,
			key:     pub,
			want:    false,
		},
		{
			name:    "attached payload",
			jws:     "eyJhbGciOiJFZERTQSJ9.cGF5bG9hZA.c2ln",
			payload: payload,
			key:     pub,
			wantErr: true,
		},
		{
			name:    "malformed",
			jws:     "not-a-jws",
			payload: payload,
			key:     pub,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifyDetachedJWS(tt.jws, tt.payload, tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJWSHeader(t *testing.T) {
	header, err := ParseJWSHeader("eyJhbGciOiJFZERTQSIsImI2NCI6ZmFsc2UsImNyaXQiOlsiYjY0Il19..c2ln")
	require.NoError(t, err)
	assert.Equal(t, "EdDSA", header.Alg)
	assert.True(t, header.Unencoded())

	_, err = ParseJWSHeader("e30..c2ln")
	assert.Error(t, err, "empty header has no alg")

	_, err = ParseJWSHeader("!!!..c2ln")
	assert.Error(t, err)
}

func TestNormalizeSecp256k1(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PubKey()
	uncompressed := pub.SerializeUncompressed()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "compressed", input: hex.EncodeToString(pub.SerializeCompressed())},
		{name: "compressed with prefix", input: "0x" + hex.EncodeToString(pub.SerializeCompressed())},
		{name: "uncompressed", input: hex.EncodeToString(uncompressed)},
		{name: "not hex", input: "zz", wantErr: true},
		{name: "not a point", input: "02" + "00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeSecp256k1Hex(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uncompressed, got)

			key, err := Secp256k1PublicKey(got)
			require.NoError(t, err)
			assert.Equal(t, 0, key.X.Cmp(pub.X()))
		})
	}
}

func TestSecp256k1FromCoordinates(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	uncompressed := priv.PubKey().SerializeUncompressed()

	point, err := Secp256k1FromCoordinates(uncompressed[1:33], uncompressed[33:])
	require.NoError(t, err)
	assert.Equal(t, uncompressed, point)

	badY := make([]byte, 32)
	_, err = Secp256k1FromCoordinates(uncompressed[1:33], badY)
	assert.Error(t, err)

	_, err = Secp256k1FromCoordinates([]byte{1}, badY)
	assert.Error(t, err)
}

func TestUnimplementedSuitesFailClosed(t *testing.T) {
	assert.False(t, VerifyRsaSignature2018(nil, []byte("data"), "sig"))
	assert.False(t, VerifyEcdsaSecp256k1Signature2019(nil, []byte("data"), "sig"))
}
