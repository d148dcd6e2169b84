package publickey

import (
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

// Scheme is the verification method family a URI belongs to.
type Scheme int

const (
	SchemeUnsupported Scheme = iota
	SchemeDIDKey
	SchemeDIDJWK
	SchemeDIDWeb
	SchemeHTTPS
)

const (
	didJWKPrefix = "did:jwk:"
	didWebPrefix = "did:web:"
	httpsPrefix  = "https:"
)

// SchemeOf classifies a verification method URI by prefix.
func SchemeOf(verificationMethod string) Scheme {
	switch {
	case strings.HasPrefix(verificationMethod, didKeyPrefix):
		return SchemeDIDKey
	case strings.HasPrefix(verificationMethod, didJWKPrefix):
		return SchemeDIDJWK
	case strings.HasPrefix(verificationMethod, didWebPrefix):
		return SchemeDIDWeb
	case strings.HasPrefix(verificationMethod, httpsPrefix):
		return SchemeHTTPS
	}
	return SchemeUnsupported
}

// ResolverOpt configures a Resolver.
type ResolverOpt func(*Resolver)

// WithKeyStore sets the cache consulted for did:web and https verification methods.
func WithKeyStore(store keystore.KeyStore) ResolverOpt {
	return func(r *Resolver) {
		r.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ResolverOpt {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver turns verification method URIs into Records. did:key and did:jwk
// are decoded locally; did:web and https come from the KeyStore. Resolution
// never touches the network.
type Resolver struct {
	store  keystore.KeyStore
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(opts ...ResolverOpt) *Resolver {
	r := &Resolver{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the key for verificationMethod. Errors are always a
// *verifyerr.PublicKeyNotFoundError or a *verifyerr.PublicKeyTypeNotSupportedError.
func (r *Resolver) Resolve(verificationMethod string) (*Record, error) {
	if verificationMethod == "" {
		return nil, verifyerr.NotFound(verificationMethod, "verification method is empty")
	}

	var (
		record *Record
		err    error
	)
	switch SchemeOf(verificationMethod) {
	case SchemeDIDKey:
		record, err = resolveDIDKey(verificationMethod)
	case SchemeDIDJWK:
		record, err = resolveDIDJWK(verificationMethod)
	case SchemeDIDWeb, SchemeHTTPS:
		record, err = r.resolveFromStore(verificationMethod)
	case SchemeUnsupported:
		err = verifyerr.NotFound(verificationMethod, "unsupported verification method scheme")
	}
	if err != nil {
		r.logger.Debug("public key resolution failed",
			zap.String("verificationMethod", verificationMethod), zap.Error(err))
		return nil, err
	}

	r.logger.Debug("public key resolved",
		zap.String("verificationMethod", verificationMethod),
		zap.String("algorithm", string(record.Algorithm)),
		zap.String("source", string(record.Source)))
	return record, nil
}

func (r *Resolver) resolveFromStore(vm string) (*Record, error) {
	if r.store == nil {
		return nil, verifyerr.NotFound(vm, "no key store configured")
	}
	doc, err := r.store.GetPublicKey(vm)
	if err != nil {
		if errors.Is(err, keystore.ErrNotFound) {
			return nil, verifyerr.NotFound(vm, "not present in key store")
		}
		return nil, verifyerr.NotFound(vm, "key store lookup failed: %v", err)
	}
	if doc == nil {
		return nil, verifyerr.NotFound(vm, "not present in key store")
	}
	return fromKeyDocument(vm, doc)
}

// resolveDIDJWK decodes a did:jwk verification method. Only Ed25519 OKP keys
// are accepted.
func resolveDIDJWK(vm string) (*Record, error) {
	did, _, _ := strings.Cut(vm, "#")
	data, err := decodeBase64URL(strings.TrimPrefix(did, didJWKPrefix))
	if err != nil {
		return nil, verifyerr.NotFound(vm, "invalid did:jwk encoding: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, verifyerr.NotFound(vm, "invalid did:jwk JSON: %v", err)
	}
	kty, _ := fields["kty"].(string)
	crv, _ := fields["crv"].(string)
	if kty == "" || crv == "" {
		return nil, verifyerr.NotFound(vm, "did:jwk is missing kty or crv")
	}
	if kty != ktyOKP || crv != crvEd25519 {
		return nil, verifyerr.NotSupported(vm, kty+"/"+crv)
	}

	record, err := fromJWK(vm, did, data)
	if err != nil {
		return nil, err
	}
	record.Source = SourceDID
	return record, nil
}

// ControllerOf returns the DID or URL a verification method belongs to.
func ControllerOf(verificationMethod string) string {
	controller, _, _ := strings.Cut(verificationMethod, "#")
	return controller
}
