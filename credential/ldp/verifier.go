// Package ldp verifies Linked Data Proofs attached to JSON-LD credentials.
package ldp

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	vccrypto "github.com/pilacorp/go-vc-verifier/credential/common/crypto"
	"github.com/pilacorp/go-vc-verifier/credential/common/dto"
	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/model"
	"github.com/pilacorp/go-vc-verifier/credential/common/processor"
	"github.com/pilacorp/go-vc-verifier/credential/common/publickey"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
	"github.com/pilacorp/go-vc-verifier/credential/ldp/validator"
)

// Opt configures a Verifier.
type Opt func(*Verifier)

// WithResolver sets the public key resolver.
func WithResolver(resolver *publickey.Resolver) Opt {
	return func(v *Verifier) {
		if resolver != nil {
			v.resolver = resolver
		}
	}
}

// WithValidator sets the structural validator run before any proof is checked.
func WithValidator(val *validator.Validator) Opt {
	return func(v *Verifier) {
		if val != nil {
			v.validator = val
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Verifier checks every proof of a credential against the key its
// verification method resolves to.
type Verifier struct {
	processor *processor.Processor
	resolver  *publickey.Resolver
	validator *validator.Validator
	logger    *zap.Logger
}

// New creates a Verifier canonicalizing with proc.
func New(proc *processor.Processor, opts ...Opt) *Verifier {
	v := &Verifier{
		processor: proc,
		resolver:  publickey.NewResolver(),
		validator: validator.New(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify validates credentialJSON and verifies all of its proofs. Expiry does
// not affect the result. A structural failure returns false with the
// *verifyerr.ValidationError describing it.
func (v *Verifier) Verify(credentialJSON string) (bool, error) {
	st := v.validator.Validate(credentialJSON)
	if !st.IsStructurallyValid() {
		v.logger.Debug("credential is structurally invalid",
			zap.String("errorCode", st.ErrorCode), zap.String("message", st.Message))
		return false, st.Err()
	}
	if st.IsExpired() {
		v.logger.Debug("credential is expired, verifying signature anyway")
	}

	cred, err := jsonmap.Parse([]byte(credentialJSON))
	if err != nil {
		return false, verifyerr.Wrap(err)
	}
	return v.VerifyMap(cred)
}

// VerifyMap verifies the proofs of an already validated credential. All
// proofs must verify; the first failure stops the check.
func (v *Verifier) VerifyMap(cred jsonmap.JSONMap) (bool, error) {
	if v.processor == nil {
		return false, &verifyerr.UnknownError{Err: fmt.Errorf("no JSON-LD processor configured")}
	}

	proofs, err := cred.RawProofs()
	if err != nil {
		return false, verifyerr.NewValidationError(constant.MissingFieldCode(constant.Proof), err.Error())
	}

	docDigest, err := v.processor.CanonicalDigest(cred.WithoutProof())
	if err != nil {
		return false, verifyerr.Wrap(fmt.Errorf("failed to canonicalize credential: %w", err))
	}

	for i, raw := range proofs {
		ok, err := v.verifyProof(raw, docDigest)
		if err != nil {
			v.logger.Warn("proof verification failed", zap.Int("proof", i), zap.Error(err))
			return false, verifyerr.Wrap(err)
		}
		if !ok {
			v.logger.Warn("proof signature is invalid", zap.Int("proof", i))
			return false, nil
		}
	}
	return true, nil
}

func (v *Verifier) verifyProof(raw jsonmap.JSONMap, docDigest []byte) (bool, error) {
	proof, err := jsonmap.ParseRawToProof(raw)
	if err != nil {
		return false, verifyerr.NewValidationError(constant.InvalidFieldCode(constant.Proof), err.Error())
	}
	v.logger.Debug("verifying proof",
		zap.String("proofType", proof.Type),
		zap.String("verificationMethod", proof.VerificationMethod))

	record, err := v.resolver.Resolve(proof.VerificationMethod)
	if err != nil {
		return false, err
	}

	doc := controllerDocument(record)
	if !doc.Authorizes(proof.ProofPurpose, proof.VerificationMethod) {
		v.logger.Debug("verification method not authorized for proof purpose",
			zap.String("proofPurpose", proof.ProofPurpose))
		return false, nil
	}

	payload, err := v.signingInput(raw, proof, docDigest)
	if err != nil {
		return false, err
	}
	return verifySignature(proof, record, payload)
}

// signingInput is sha256(canonical proof options) || sha256(canonical document).
func (v *Verifier) signingInput(raw jsonmap.JSONMap, proof dto.Proof, docDigest []byte) ([]byte, error) {
	options := raw.Without(constant.ProofJWS, constant.ProofValue)
	if !options.Has(constant.Context) {
		contexts, ok := constant.ProofTypeContexts[proof.Type]
		if !ok {
			return nil, verifyerr.NewValidationErrorf(constant.ErrCodeInvalidProofType, "unsupported proof type %q", proof.Type)
		}
		options[constant.Context] = append([]interface{}{}, contexts...)
	}

	proofDigest, err := v.processor.CanonicalDigest(options)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize proof: %w", err)
	}

	payload := make([]byte, 0, len(proofDigest)+len(docDigest))
	payload = append(payload, proofDigest...)
	return append(payload, docDigest...), nil
}

// verifySignature dispatches on the proof type. The RSA and secp256k1 suites
// always fail.
func verifySignature(proof dto.Proof, record *publickey.Record, payload []byte) (bool, error) {
	switch proof.Type {
	case constant.Ed25519Signature2018:
		key, err := record.Ed25519()
		if err != nil {
			return false, verifyerr.NotSupported(proof.VerificationMethod, string(record.Algorithm))
		}
		if proof.JWS == "" {
			return false, nil
		}
		ok, err := vccrypto.VerifyDetachedJWS(proof.JWS, payload, key)
		if err != nil {
			return false, verifyerr.NewValidationError(constant.ErrCodeInvalidJWS, err.Error())
		}
		return ok, nil

	case constant.Ed25519Signature2020:
		key, err := record.Ed25519()
		if err != nil {
			return false, verifyerr.NotSupported(proof.VerificationMethod, string(record.Algorithm))
		}
		signature, err := vccrypto.DecodeMultibase(proof.ProofValue)
		if err != nil {
			return false, nil
		}
		return vccrypto.VerifyEd25519(key, payload, signature), nil

	case constant.RsaSignature2018:
		key, _ := record.PublicKey()
		rsaKey, _ := key.(*rsa.PublicKey)
		return vccrypto.VerifyRsaSignature2018(rsaKey, payload, signatureValue(proof)), nil

	case constant.EcdsaSecp256k1Signature2019:
		key, _ := record.PublicKey()
		ecKey, _ := key.(*ecdsa.PublicKey)
		return vccrypto.VerifyEcdsaSecp256k1Signature2019(ecKey, payload, signatureValue(proof)), nil
	}
	return false, verifyerr.NewValidationErrorf(constant.ErrCodeInvalidProofType, "unsupported proof type %q", proof.Type)
}

func signatureValue(proof dto.Proof) string {
	if proof.JWS != "" {
		return proof.JWS
	}
	return proof.ProofValue
}

// controllerDocument synthesizes the controller document for a resolved key,
// with the key listed under assertionMethod.
func controllerDocument(record *publickey.Record) *model.ControllerDocument {
	controller := record.Controller
	if controller == "" {
		controller = publickey.ControllerOf(record.VerificationMethod)
	}

	entry := model.VerificationMethodEntry{
		ID:           record.VerificationMethod,
		Type:         record.KeyType,
		Controller:   controller,
		PublicKeyJwk: record.JWK,
		PublicKeyHex: record.ECUncompressedHex,
		PublicKeyPem: record.PEM,
	}
	if record.Algorithm == publickey.AlgorithmEd25519 {
		entry.PublicKeyMultibase, _ = vccrypto.EncodeMultibase(record.Bytes)
	}
	return model.NewControllerDocument(controller, entry)
}
