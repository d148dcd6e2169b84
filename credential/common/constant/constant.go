// Package constant holds the field names, context URLs, supported suites and
// stable error codes shared by the validators and verifiers.
package constant

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

// JSON-LD context URLs that select the credential data model version.
const (
	CredentialsContextV1URL = "https://www.w3.org/2018/credentials/v1"
	CredentialsContextV2URL = "https://www.w3.org/ns/credentials/v2"

	SecurityContextV1URL       = "https://w3id.org/security/v1"
	SecurityContextV2URL       = "https://w3id.org/security/v2"
	Ed25519Suite2020ContextURL = "https://w3id.org/security/suites/ed25519-2020/v1"
	Ed25519Suite2018ContextURL = "https://w3id.org/security/suites/ed25519-2018/v1"
	DIDContextV1URL            = "https://www.w3.org/ns/did/v1"
)

// Credential field names.
const (
	Context           = "@context"
	ID                = "id"
	Type              = "type"
	Issuer            = "issuer"
	CredentialSubject = "credentialSubject"
	Proof             = "proof"
	IssuanceDate      = "issuanceDate"
	ExpirationDate    = "expirationDate"
	ValidFrom         = "validFrom"
	ValidUntil        = "validUntil"
	CredentialStatus  = "credentialStatus"
	CredentialSchema  = "credentialSchema"
	Evidence          = "evidence"
	RefreshService    = "refreshService"
	TermsOfUse        = "termsOfUse"
	Name              = "name"
	Description       = "description"
	Language          = "language"
	JSONLDLanguage    = "@language"

	VerifiableCredentialType = "VerifiableCredential"
)

// Proof field names.
const (
	ProofType               = "type"
	ProofJWS                = "jws"
	ProofValue              = "proofValue"
	ProofPurpose            = "proofPurpose"
	ProofCreated            = "created"
	ProofVerificationMethod = "verificationMethod"
	PublicKeyMultibase      = "publicKeyMultibase"
	AssertionMethod         = "assertionMethod"
)

// Linked data proof suites.
const (
	RsaSignature2018            = "RsaSignature2018"
	Ed25519Signature2018        = "Ed25519Signature2018"
	Ed25519Signature2020        = "Ed25519Signature2020"
	EcdsaSecp256k1Signature2019 = "EcdsaSecp256k1Signature2019"
)

// JWS algorithms accepted in a proof's jws header.
const (
	AlgPS256  = "PS256"
	AlgRS256  = "RS256"
	AlgEdDSA  = "EdDSA"
	AlgES256K = "ES256K"
)

// SupportedProofTypes is the fixed whitelist of linked data proof types.
var SupportedProofTypes = []string{
	RsaSignature2018,
	Ed25519Signature2018,
	Ed25519Signature2020,
	EcdsaSecp256k1Signature2019,
}

// SupportedJWSAlgorithms is the fixed whitelist of JWS header algorithms.
var SupportedJWSAlgorithms = []string{AlgPS256, AlgRS256, AlgEdDSA, AlgES256K}

// ProofTypeContexts maps a proof type to the contexts used to canonicalize a
// proof object that carries no @context of its own.
var ProofTypeContexts = map[string][]interface{}{
	Ed25519Signature2020:        {SecurityContextV2URL, Ed25519Suite2020ContextURL},
	Ed25519Signature2018:        {SecurityContextV2URL, Ed25519Suite2020ContextURL},
	RsaSignature2018:            {SecurityContextV2URL},
	EcdsaSecp256k1Signature2019: {SecurityContextV2URL},
}

// FutureDateTolerance is the clock skew allowed before a start date counts as future.
const FutureDateTolerance = 3000 * time.Millisecond

// DateRegex is the strict ISO-8601 date-time format every credential date must match.
var DateRegex = regexp.MustCompile(
	`^(\d{4})-(0[1-9]|1[0-2])-(0[1-9]|[12]\d|3[01])T([01]\d|2[0-3]):([0-5]\d):([0-5]\d|60)(\.\d+)?(Z|z|[+-]([01]\d|2[0-3]):([0-5]\d))$`,
)

// Error codes. These strings are part of the public contract.
const (
	ErrCodeEmptyVC                  = "ERR_EMPTY_VC"
	ErrCodeMissingPrefix            = "ERR_MISSING_"
	ErrCodeInvalidPrefix            = "ERR_INVALID_"
	ErrCodeIssuanceDateIsFutureDate = "ERR_ISSUANCE_DATE_IS_FUTURE_DATE"
	ErrCodeValidFromIsFutureDate    = "ERR_VALID_FROM_IS_FUTURE_DATE"
	ErrCodeVCExpired                = "ERR_VC_EXPIRED"
	ErrCodeGeneric                  = "ERR_GENERIC"
	ErrCodeInvalidValidFromMSO      = "ERR_INVALID_VALID_FROM_MSO"
	ErrCodeInvalidValidUntilMSO     = "ERR_INVALID_VALID_UNTIL_MSO"
	ErrCodeInvalidDateMSO           = "ERR_INVALID_DATE_MSO"

	ErrCodeMissingContext          = "ERR_MISSING_CONTEXT"
	ErrCodeInvalidContext          = "ERR_INVALID_CONTEXT"
	ErrCodeInvalidProofType        = "ERR_INVALID_PROOF_TYPE"
	ErrCodeInvalidAlgorithm        = "ERR_INVALID_ALGORITHM"
	ErrCodeInvalidJWS              = "ERR_INVALID_JWS"
	ErrCodeInvalidCredentialSchema = "ERR_INVALID_CREDENTIAL_SCHEMA"

	ErrCodeInvalidMdoc               = "ERR_INVALID_MDOC"
	ErrCodeMissingDocType            = "ERR_MISSING_DOC_TYPE"
	ErrCodeInvalidDocType            = "ERR_INVALID_DOC_TYPE"
	ErrCodeMissingIssuingCountry     = "ERR_MISSING_ISSUING_COUNTRY"
	ErrCodeMissingCertificateCountry = "ERR_MISSING_CERTIFICATE_COUNTRY"
	ErrCodeInvalidIssuingCountry     = "ERR_INVALID_ISSUING_COUNTRY"
	ErrCodeInvalidSignature          = "ERR_INVALID_SIGNATURE"
	ErrCodeInvalidDigest             = "ERR_INVALID_DIGEST"
	ErrCodeInvalidCertificateChain   = "ERR_INVALID_CERTIFICATE_CHAIN"

	ErrCodeVCRevoked         = "ERR_VC_REVOKED"
	ErrCodeVCSuspended       = "ERR_VC_SUSPENDED"
	ErrCodeStatusUnavailable = "ERR_STATUS_UNAVAILABLE"
)

// Messages used by the validators.
const (
	MsgEmptyVC        = "verifiable credential is empty"
	MsgExpired        = "VC is expired"
	MsgUnknownContext = "unsupported @context: first entry must be " + CredentialsContextV1URL + " or " + CredentialsContextV2URL
)

// MissingFieldCode returns ERR_MISSING_<FIELD> for a (possibly dotted) field path.
func MissingFieldCode(path string) string {
	return ErrCodeMissingPrefix + FieldCode(path)
}

// InvalidFieldCode returns ERR_INVALID_<FIELD> for a (possibly dotted) field path.
func InvalidFieldCode(path string) string {
	return ErrCodeInvalidPrefix + FieldCode(path)
}

// FieldCode turns a field path like "proof.verificationMethod" into PROOF_VERIFICATION_METHOD.
func FieldCode(path string) string {
	var b strings.Builder
	path = strings.TrimPrefix(path, "@")
	prevLower := false
	for _, r := range path {
		switch {
		case r == '.' || r == '@' || r == '-':
			b.WriteByte('_')
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			prevLower = false
		default:
			b.WriteRune(unicode.ToUpper(r))
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return b.String()
}
