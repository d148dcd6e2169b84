// Package mdoc verifies ISO/IEC 18013-5 issuer-signed mobile documents.
package mdoc

import (
	"bytes"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"slices"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/samber/lo"
	"github.com/veraison/go-cose"
	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/dateutil"
	"github.com/pilacorp/go-vc-verifier/credential/common/status"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

var digestAlgorithms = map[string]func() hash.Hash{
	"SHA-256": sha256.New,
	"SHA-384": sha512.New384,
	"SHA-512": sha512.New,
}

// Opt configures a Verifier.
type Opt func(*Verifier)

// WithClock sets the clock used for the validity window.
func WithClock(clock dateutil.Clock) Opt {
	return func(v *Verifier) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// WithTrustAnchors enables chain validation of the document signer
// certificate against roots. Without anchors the chain is not checked.
func WithTrustAnchors(roots *x509.CertPool) Opt {
	return func(v *Verifier) {
		v.roots = roots
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

// Verifier checks issuer-signed mdocs. It is safe for concurrent use.
type Verifier struct {
	clock  dateutil.Clock
	roots  *x509.CertPool
	logger *zap.Logger
}

// New creates a Verifier.
func New(opts ...Opt) *Verifier {
	v := &Verifier{
		clock:  dateutil.SystemClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// parsedDocument is the decoded form every check works on.
type parsedDocument struct {
	doc   Document
	msg   *cose.Sign1Message
	chain []*x509.Certificate
	mso   *MobileSecurityObject
}

type check func(*parsedDocument) error

// Verify runs the full pipeline: certificate chain, issuing country, COSE
// signature, value digests, validity window and docType. Every failure is
// returned as one of the verifyerr types.
func (v *Verifier) Verify(encoded string) (bool, error) {
	p, err := v.parse(encoded)
	if err != nil {
		return false, err
	}

	checks := []check{
		v.checkChain,
		checkCountry,
		checkSignature,
		checkDigests,
		v.checkValidity,
		checkDocType,
	}
	if err := runChecks(p, checks); err != nil {
		v.logger.Warn("mdoc verification failed", zap.String("docType", p.doc.DocType), zap.Error(err))
		return false, verifyerr.Wrap(err)
	}

	v.logger.Debug("mdoc verified", zap.String("docType", p.doc.DocType))
	return true, nil
}

// Validate runs the checks that need no key material: issuing country, value
// digests, validity window and docType.
func (v *Verifier) Validate(encoded string) status.ValidationStatus {
	p, err := v.parse(encoded)
	if err != nil {
		return status.FromError(err)
	}

	checks := []check{
		checkCountry,
		checkDigests,
		v.checkValidity,
		checkDocType,
	}
	if err := runChecks(p, checks); err != nil {
		v.logger.Debug("mdoc failed validation", zap.String("docType", p.doc.DocType), zap.Error(err))
		return status.FromError(err)
	}
	return status.Success()
}

func runChecks(p *parsedDocument, checks []check) error {
	for _, c := range checks {
		if err := c(p); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) parse(encoded string) (*parsedDocument, error) {
	data, err := decodeInput(encoded)
	if err != nil {
		return nil, err
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, verifyerr.NewValidationError(constant.ErrCodeInvalidMdoc, err.Error())
	}

	msg, err := decodeIssuerAuth(doc.IssuerSigned.IssuerAuth)
	if err != nil {
		return nil, verifyerr.NewValidationError(constant.ErrCodeInvalidMdoc, err.Error())
	}
	chain, err := certificateChain(msg)
	if err != nil {
		return nil, verifyerr.NewValidationError(constant.ErrCodeInvalidMdoc, err.Error())
	}
	mso, err := decodeMSO(msg.Payload)
	if err != nil {
		return nil, verifyerr.NewValidationError(constant.ErrCodeInvalidMdoc, err.Error())
	}

	return &parsedDocument{doc: *doc, msg: msg, chain: chain, mso: mso}, nil
}

// decodeInput accepts base64url, with or without padding, optionally as a JSON string.
func decodeInput(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, verifyerr.NewValidationError(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
	}
	if strings.HasPrefix(encoded, `"`) {
		var s string
		if err := json.Unmarshal([]byte(encoded), &s); err != nil {
			return nil, verifyerr.NewValidationErrorf(constant.ErrCodeInvalidMdoc, "invalid JSON string: %v", err)
		}
		encoded = strings.TrimSpace(s)
	}

	trimmed := strings.TrimRight(encoded, "=")
	data, err := base64.RawURLEncoding.DecodeString(trimmed)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(trimmed); err != nil {
			return nil, verifyerr.NewValidationErrorf(constant.ErrCodeInvalidMdoc, "invalid base64url encoding: %v", err)
		}
	}
	if len(data) == 0 {
		return nil, verifyerr.NewValidationError(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
	}
	return data, nil
}

// decodeDocument accepts a {documents:[...]} wrapper, taking the first
// document, or a bare document.
func decodeDocument(data []byte) (*Document, error) {
	var probe map[string]cbor.RawMessage
	if err := cbor.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode CBOR: %w", err)
	}

	var doc Document
	switch {
	case probe["documents"] != nil:
		var resp DeviceResponse
		if err := cbor.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("failed to decode documents: %w", err)
		}
		if len(resp.Documents) == 0 {
			return nil, fmt.Errorf("documents is empty")
		}
		doc = resp.Documents[0]
	case probe["issuerSigned"] != nil:
		if err := cbor.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
	default:
		return nil, fmt.Errorf("neither documents nor issuerSigned is present")
	}
	return &doc, nil
}

// checkChain validates the document signer certificate against the trust
// anchors. It passes when no anchors are configured.
func (v *Verifier) checkChain(p *parsedDocument) error {
	if v.roots == nil {
		return nil
	}
	intermediates := x509.NewCertPool()
	for _, cert := range p.chain[1:] {
		intermediates.AddCert(cert)
	}
	_, err := p.chain[0].Verify(x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
		CurrentTime:   v.clock(),
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return verifyerr.NewValidationError(constant.ErrCodeInvalidCertificateChain, err.Error())
	}
	return nil
}

// checkCountry requires the issuing_country element to match the C= of the
// document signer certificate.
func checkCountry(p *parsedDocument) error {
	subject := p.chain[0].Subject
	if len(subject.Country) == 0 || subject.Country[0] == "" {
		return verifyerr.NewValidationError(constant.ErrCodeMissingCertificateCountry,
			"document signer certificate has no country")
	}
	certCountry := subject.Country[0]

	issuingCountry, found, err := findElement(p.doc.IssuerSigned.NameSpaces, ElementIssuingCountry)
	if err != nil {
		return verifyerr.NewValidationError(constant.ErrCodeInvalidMdoc, err.Error())
	}
	country, _ := issuingCountry.(string)
	if !found || country == "" {
		return verifyerr.NewValidationError(constant.ErrCodeMissingIssuingCountry, "issuing_country element is missing")
	}
	if !strings.EqualFold(country, certCountry) {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidIssuingCountry,
			"issuing_country %q does not match certificate country %q", country, certCountry)
	}
	return nil
}

func findElement(nameSpaces IssuerNameSpaces, identifier string) (interface{}, bool, error) {
	for _, ns := range sortedNamespaces(nameSpaces) {
		for _, raw := range nameSpaces[ns] {
			item, err := decodeItem(raw)
			if err != nil {
				return nil, false, fmt.Errorf("namespace %s: %w", ns, err)
			}
			if item.ElementIdentifier == identifier {
				return item.ElementValue, true, nil
			}
		}
	}
	return nil, false, nil
}

// checkSignature verifies issuerAuth with the document signer key. Only RSA
// keys with PS256, PS384 or PS512 are implemented.
func checkSignature(p *parsedDocument) error {
	cert := p.chain[0]
	alg, err := p.msg.Headers.Protected.Algorithm()
	if err != nil {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidSignature, "issuerAuth algorithm: %v", err)
	}

	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return verifyerr.NotSupported(cert.Subject.String(), cert.PublicKeyAlgorithm.String())
	}
	if !lo.Contains([]cose.Algorithm{cose.AlgorithmPS256, cose.AlgorithmPS384, cose.AlgorithmPS512}, alg) {
		return verifyerr.NotSupported(cert.Subject.String(), alg.String())
	}

	verifier, err := cose.NewVerifier(alg, key)
	if err != nil {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidSignature, "failed to create verifier: %v", err)
	}
	if err := p.msg.Verify(nil, verifier); err != nil {
		if errors.Is(err, cose.ErrVerification) {
			return verifyerr.NewValidationError(constant.ErrCodeInvalidSignature, "issuerAuth signature is invalid")
		}
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidSignature, "failed to verify issuerAuth: %v", err)
	}
	return nil
}

// checkDigests hashes every tag-24 item and compares it with the MSO digest
// recorded under the item's digestID.
func checkDigests(p *parsedDocument) error {
	newHash, ok := digestAlgorithms[strings.ToUpper(p.mso.DigestAlgorithm)]
	if !ok {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDigest,
			"unsupported digest algorithm %q", p.mso.DigestAlgorithm)
	}

	for _, ns := range sortedNamespaces(p.doc.IssuerSigned.NameSpaces) {
		digests, ok := p.mso.ValueDigests[ns]
		if !ok {
			return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDigest, "no value digests for namespace %s", ns)
		}
		for _, raw := range p.doc.IssuerSigned.NameSpaces[ns] {
			item, err := decodeItem(raw)
			if err != nil {
				return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDigest, "namespace %s: %v", ns, err)
			}
			expected, ok := digests[item.DigestID]
			if !ok {
				return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDigest,
					"missing digest for namespace %s digestID %d", ns, item.DigestID)
			}
			h := newHash()
			h.Write(raw)
			if !bytes.Equal(h.Sum(nil), expected) {
				return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDigest,
					"digest mismatch for namespace %s digestID %d", ns, item.DigestID)
			}
		}
	}
	return nil
}

// checkValidity requires validFrom < validUntil, validFrom not in the future
// and validUntil not in the past.
func (v *Verifier) checkValidity(p *parsedDocument) error {
	info := p.mso.ValidityInfo
	validFrom, err := decodeDate(info.ValidFrom)
	if err != nil {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDateMSO, "validityInfo.validFrom: %v", err)
	}
	validUntil, err := decodeDate(info.ValidUntil)
	if err != nil {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDateMSO, "validityInfo.validUntil: %v", err)
	}
	if !validUntil.After(validFrom) {
		return verifyerr.NewValidationError(constant.ErrCodeInvalidDateMSO, "validUntil must be after validFrom")
	}

	now := v.clock()
	if dateutil.IsFutureDate(validFrom, now) {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidValidFromMSO, "validFrom %s is in the future", validFrom)
	}
	if dateutil.IsPastDate(validUntil, now) {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidValidUntilMSO, "validUntil %s is in the past", validUntil)
	}
	return nil
}

func checkDocType(p *parsedDocument) error {
	if p.doc.DocType == "" {
		return verifyerr.NewValidationError(constant.ErrCodeMissingDocType, "docType is missing")
	}
	if p.doc.DocType != p.mso.DocType {
		return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidDocType,
			"docType %q does not match MSO docType %q", p.doc.DocType, p.mso.DocType)
	}
	return nil
}

func sortedNamespaces(nameSpaces IssuerNameSpaces) []string {
	keys := lo.Keys(nameSpaces)
	slices.Sort(keys)
	return keys
}
