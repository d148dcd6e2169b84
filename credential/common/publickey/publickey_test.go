package publickey

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

func assertNotFound(t *testing.T, err error) {
	t.Helper()
	var notFound *verifyerr.PublicKeyNotFoundError
	assert.True(t, errors.As(err, &notFound), "expected PublicKeyNotFoundError, got %v", err)
}

func assertNotSupported(t *testing.T, err error) {
	t.Helper()
	var notSupported *verifyerr.PublicKeyTypeNotSupportedError
	assert.True(t, errors.As(err, &notSupported), "expected PublicKeyTypeNotSupportedError, got %v", err)
}

func TestSchemeOf(t *testing.T) {
	tests := map[string]Scheme{
		"did:key:z6Mk":                   SchemeDIDKey,
		"did:jwk:eyJ9":                   SchemeDIDJWK,
		"did:web:example.com#key-1":      SchemeDIDWeb,
		"https://example.com/keys/1":     SchemeHTTPS,
		"did:ethr:0xabc#controller":      SchemeUnsupported,
		"http://example.com/insecure#k1": SchemeUnsupported,
	}
	for vm, want := range tests {
		assert.Equal(t, want, SchemeOf(vm), vm)
	}
}

func TestDIDKeyRoundTrip(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p256Point, err := p256.PublicKey.ECDH()
	require.NoError(t, err)

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	require.NoError(t, err)
	p384Point, err := p384.PublicKey.ECDH()
	require.NoError(t, err)

	k1, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	tests := []struct {
		name      string
		alg       Algorithm
		input     []byte
		wantBytes []byte
	}{
		{name: "Ed25519", alg: AlgorithmEd25519, input: edPub, wantBytes: edPub},
		{name: "P-256 uncompressed", alg: AlgorithmP256, input: p256Point.Bytes(), wantBytes: p256Point.Bytes()},
		{
			name:      "P-256 compressed",
			alg:       AlgorithmP256,
			input:     elliptic.MarshalCompressed(elliptic.P256(), p256.X, p256.Y),
			wantBytes: p256Point.Bytes(),
		},
		{name: "P-384", alg: AlgorithmP384, input: p384Point.Bytes(), wantBytes: p384Point.Bytes()},
		{
			name:      "secp256k1",
			alg:       AlgorithmSecp256k1,
			input:     k1.PubKey().SerializeCompressed(),
			wantBytes: k1.PubKey().SerializeUncompressed(),
		},
	}

	resolver := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			did, err := EncodeDIDKey(tt.alg, tt.input)
			require.NoError(t, err)

			record, err := resolver.Resolve(did + "#" + did[len("did:key:"):])
			require.NoError(t, err)
			assert.Equal(t, tt.alg, record.Algorithm)
			assert.Equal(t, SourceDID, record.Source)
			assert.Equal(t, did, record.Controller)
			assert.Equal(t, tt.wantBytes, record.Bytes)

			again, err := EncodeDIDKey(record.Algorithm, record.Bytes)
			require.NoError(t, err)
			assert.Equal(t, did, again)

			if tt.alg != AlgorithmEd25519 {
				assert.Equal(t, hex.EncodeToString(tt.wantBytes), record.ECUncompressedHex)
			}
			if tt.alg != AlgorithmSecp256k1 {
				assert.Contains(t, record.PEM, "BEGIN PUBLIC KEY")
			}
			_, err = record.PublicKey()
			assert.NoError(t, err)
		})
	}
}

func TestDIDKey_Ed25519PEMIsSPKI(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	did, err := EncodeDIDKey(AlgorithmEd25519, pub)
	require.NoError(t, err)

	record, err := NewResolver().Resolve(did)
	require.NoError(t, err)

	block, _ := pem.Decode([]byte(record.PEM))
	require.NotNil(t, block)
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, pub, parsed)
}

func TestDIDKey_Errors(t *testing.T) {
	unknownCodec, err := multibase.Encode(multibase.Base58BTC, append(varint.ToUvarint(0x1205), make([]byte, 10)...))
	require.NoError(t, err)
	shortEd, err := multibase.Encode(multibase.Base58BTC, append(varint.ToUvarint(0xed), 1, 2, 3))
	require.NoError(t, err)
	badPoint, err := multibase.Encode(multibase.Base58BTC, append(varint.ToUvarint(0x1200), make([]byte, 33)...))
	require.NoError(t, err)

	resolver := NewResolver()

	_, err = resolver.Resolve("did:key:" + unknownCodec)
	assertNotSupported(t, err)

	for _, vm := range []string{
		"did:key:" + shortEd,
		"did:key:" + badPoint,
		"did:key:mAQID",
		"did:key:z0OIl",
		"did:key:",
	} {
		_, err = resolver.Resolve(vm)
		assertNotFound(t, err)
	}
}

func TestDIDJWK(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	encode := func(v interface{}) string {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		return "did:jwk:" + base64.RawURLEncoding.EncodeToString(data)
	}

	resolver := NewResolver()

	did := encode(map[string]string{"kty": "OKP", "crv": "Ed25519", "x": base64.RawURLEncoding.EncodeToString(pub)})
	record, err := resolver.Resolve(did + "#0")
	require.NoError(t, err)
	assert.Equal(t, AlgorithmEd25519, record.Algorithm)
	assert.Equal(t, SourceDID, record.Source)
	assert.Equal(t, []byte(pub), record.Bytes)
	assert.Equal(t, "OKP", record.JWK["kty"])

	_, err = resolver.Resolve(encode(map[string]string{"kty": "EC", "crv": "P-256", "x": "AA", "y": "AA"}))
	assertNotSupported(t, err)

	_, err = resolver.Resolve(encode(map[string]string{"kty": "OKP"}))
	assertNotFound(t, err)

	_, err = resolver.Resolve(encode(map[string]string{"kty": "OKP", "crv": "Ed25519", "x": "AQID"}))
	assertNotFound(t, err)

	_, err = resolver.Resolve("did:jwk:!!!")
	assertNotFound(t, err)
}

func TestResolveFromStore(t *testing.T) {
	edPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	edMultibase, err := multibase.Encode(multibase.Base58BTC, append(varint.ToUvarint(0xed), edPub...))
	require.NoError(t, err)
	rawMultibase, err := multibase.Encode(multibase.Base58BTC, edPub)
	require.NoError(t, err)

	k1, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	k1Uncompressed := k1.PubKey().SerializeUncompressed()

	p256, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	p256Point, err := p256.PublicKey.ECDH()
	require.NoError(t, err)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	rsaDER, err := x509.MarshalPKIXPublicKey(&rsaKey.PublicKey)
	require.NoError(t, err)
	rsaPEM := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: rsaDER}))

	b64 := base64.RawURLEncoding.EncodeToString
	store := keystore.NewMemoryStore()

	tests := []struct {
		name       string
		vm         string
		doc        keystore.KeyDocument
		wantAlg    Algorithm
		wantSource Source
		wantBytes  []byte
	}{
		{
			name:       "multibase with multicodec",
			vm:         "did:web:example.com#key-1",
			doc:        keystore.KeyDocument{Type: "Ed25519VerificationKey2020", PublicKeyMultibase: edMultibase},
			wantAlg:    AlgorithmEd25519,
			wantSource: SourceMultibase,
			wantBytes:  edPub,
		},
		{
			name:       "raw multibase",
			vm:         "did:web:example.com#key-2",
			doc:        keystore.KeyDocument{Type: "Ed25519VerificationKey2018", PublicKeyMultibase: rawMultibase},
			wantAlg:    AlgorithmEd25519,
			wantSource: SourceMultibase,
			wantBytes:  edPub,
		},
		{
			name:       "hex secp256k1 compressed",
			vm:         "https://example.com/keys/1",
			doc:        keystore.KeyDocument{Type: "EcdsaSecp256k1VerificationKey2019", PublicKeyHex: hex.EncodeToString(k1.PubKey().SerializeCompressed())},
			wantAlg:    AlgorithmSecp256k1,
			wantSource: SourceHex,
			wantBytes:  k1Uncompressed,
		},
		{
			name: "jwk secp256k1",
			vm:   "did:web:example.com#key-3",
			doc: keystore.KeyDocument{
				Type:         "JsonWebKey2020",
				PublicKeyJwk: json.RawMessage(`{"kty":"EC","crv":"secp256k1","x":"` + b64(k1Uncompressed[1:33]) + `","y":"` + b64(k1Uncompressed[33:]) + `"}`),
			},
			wantAlg:    AlgorithmSecp256k1,
			wantSource: SourceJWK,
			wantBytes:  k1Uncompressed,
		},
		{
			name: "jwk P-256",
			vm:   "did:web:example.com#key-4",
			doc: keystore.KeyDocument{
				Type:         "JsonWebKey2020",
				PublicKeyJwk: json.RawMessage(`{"kty":"EC","crv":"P-256","x":"` + b64(p256Point.Bytes()[1:33]) + `","y":"` + b64(p256Point.Bytes()[33:]) + `"}`),
			},
			wantAlg:    AlgorithmP256,
			wantSource: SourceJWK,
			wantBytes:  p256Point.Bytes(),
		},
		{
			name: "jwk Ed25519",
			vm:   "did:web:example.com#key-5",
			doc: keystore.KeyDocument{
				Type:         "JsonWebKey2020",
				PublicKeyJwk: json.RawMessage(`{"kty":"OKP","crv":"Ed25519","x":"` + b64(edPub) + `"}`),
			},
			wantAlg:    AlgorithmEd25519,
			wantSource: SourceJWK,
			wantBytes:  edPub,
		},
		{
			name:       "pem RSA",
			vm:         "https://example.com/keys/2",
			doc:        keystore.KeyDocument{Type: "RsaVerificationKey2018", PublicKeyPem: rsaPEM},
			wantAlg:    AlgorithmRSA,
			wantSource: SourcePEM,
			wantBytes:  x509.MarshalPKCS1PublicKey(&rsaKey.PublicKey),
		},
	}

	for _, tt := range tests {
		require.NoError(t, store.PutPublicKey(tt.vm, tt.doc))
	}

	resolver := NewResolver(WithKeyStore(store))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := resolver.Resolve(tt.vm)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAlg, record.Algorithm)
			assert.Equal(t, tt.wantSource, record.Source)
			assert.Equal(t, tt.wantBytes, record.Bytes)
			assert.Equal(t, tt.doc.Type, record.KeyType)
			assert.Equal(t, ControllerOf(tt.vm), record.Controller)
		})
	}
}

func TestResolveFromStore_Errors(t *testing.T) {
	store := keystore.NewMemoryStore()
	require.NoError(t, store.PutPublicKey("did:web:example.com#empty", keystore.KeyDocument{Type: "JsonWebKey2020"}))
	require.NoError(t, store.PutPublicKey("did:web:example.com#bad-hex", keystore.KeyDocument{PublicKeyHex: "xyz"}))
	require.NoError(t, store.PutPublicKey("did:web:example.com#bad-pem", keystore.KeyDocument{PublicKeyPem: "not pem"}))
	require.NoError(t, store.PutPublicKey("did:web:example.com#no-kty", keystore.KeyDocument{PublicKeyJwk: json.RawMessage(`{"crv":"P-256"}`)}))
	require.NoError(t, store.PutPublicKey("did:web:example.com#oct", keystore.KeyDocument{PublicKeyJwk: json.RawMessage(`{"kty":"oct","k":"AAAA"}`)}))

	resolver := NewResolver(WithKeyStore(store))

	for _, vm := range []string{
		"did:web:example.com#missing",
		"did:web:example.com#empty",
		"did:web:example.com#bad-hex",
		"did:web:example.com#bad-pem",
		"did:web:example.com#no-kty",
		"did:ethr:0x1234#controller",
		"",
	} {
		_, err := resolver.Resolve(vm)
		assertNotFound(t, err)
	}

	_, err := resolver.Resolve("did:web:example.com#oct")
	assertNotSupported(t, err)

	_, err = NewResolver().Resolve("did:web:example.com#key-1")
	assertNotFound(t, err)
}
