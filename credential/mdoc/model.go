package mdoc

import (
	"crypto/x509"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/veraison/go-cose"

	"github.com/pilacorp/go-vc-verifier/credential/common/dateutil"
)

// Data element identifiers read by the verifier.
const (
	ElementIssuingCountry = "issuing_country"

	tagEncodedCBOR = 24
)

// DeviceResponse is the ISO 18013-5 wrapper holding one or more documents.
type DeviceResponse struct {
	Version   string     `cbor:"version"`
	Documents []Document `cbor:"documents"`
	Status    uint64     `cbor:"status"`
}

// Document is a single issuer-signed mdoc.
type Document struct {
	DocType      string       `cbor:"docType"`
	IssuerSigned IssuerSigned `cbor:"issuerSigned"`
}

// IssuerSigned holds the namespaced data elements and the COSE_Sign1 over the MSO.
type IssuerSigned struct {
	NameSpaces IssuerNameSpaces `cbor:"nameSpaces"`
	IssuerAuth cbor.RawMessage  `cbor:"issuerAuth"`
}

// IssuerNameSpaces maps a namespace to its tag-24 wrapped items. The raw bytes
// are kept because value digests are computed over them.
type IssuerNameSpaces map[string][]cbor.RawMessage

// IssuerSignedItem is a single disclosed data element.
type IssuerSignedItem struct {
	DigestID          uint64      `cbor:"digestID"`
	Random            []byte      `cbor:"random"`
	ElementIdentifier string      `cbor:"elementIdentifier"`
	ElementValue      interface{} `cbor:"elementValue"`
}

// MobileSecurityObject is the issuer-signed payload of issuerAuth.
type MobileSecurityObject struct {
	Version         string                       `cbor:"version"`
	DigestAlgorithm string                       `cbor:"digestAlgorithm"`
	ValueDigests    map[string]map[uint64][]byte `cbor:"valueDigests"`
	DocType         string                       `cbor:"docType"`
	ValidityInfo    ValidityInfo                 `cbor:"validityInfo"`
}

// ValidityInfo keeps the dates undecoded so a bad value can be reported on its own.
type ValidityInfo struct {
	Signed     cbor.RawMessage `cbor:"signed"`
	ValidFrom  cbor.RawMessage `cbor:"validFrom"`
	ValidUntil cbor.RawMessage `cbor:"validUntil"`
}

// decodeItem unwraps a tag-24 item.
func decodeItem(raw cbor.RawMessage) (*IssuerSignedItem, error) {
	content, err := unwrapEncodedCBOR(raw)
	if err != nil {
		return nil, err
	}
	var item IssuerSignedItem
	if err := cbor.Unmarshal(content, &item); err != nil {
		return nil, fmt.Errorf("failed to decode issuer signed item: %w", err)
	}
	return &item, nil
}

// unwrapEncodedCBOR returns the embedded bytes of a #6.24(bstr) item.
func unwrapEncodedCBOR(raw cbor.RawMessage) ([]byte, error) {
	var tag cbor.RawTag
	if err := cbor.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("expected tag %d: %w", tagEncodedCBOR, err)
	}
	if tag.Number != tagEncodedCBOR {
		return nil, fmt.Errorf("expected tag %d, got %d", tagEncodedCBOR, tag.Number)
	}
	var content []byte
	if err := cbor.Unmarshal(tag.Content, &content); err != nil {
		return nil, fmt.Errorf("tag %d content is not a byte string: %w", tagEncodedCBOR, err)
	}
	return content, nil
}

// decodeIssuerAuth accepts a tagged or untagged COSE_Sign1.
func decodeIssuerAuth(raw cbor.RawMessage) (*cose.Sign1Message, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("issuerAuth is missing")
	}
	var untagged cose.UntaggedSign1Message
	if err := untagged.UnmarshalCBOR(raw); err == nil {
		return (*cose.Sign1Message)(&untagged), nil
	}
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(raw); err != nil {
		return nil, fmt.Errorf("failed to decode issuerAuth: %w", err)
	}
	return &msg, nil
}

// decodeMSO reads the MSO from the issuerAuth payload, which is normally
// wrapped in tag 24.
func decodeMSO(payload []byte) (*MobileSecurityObject, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("issuerAuth payload is empty")
	}
	content := payload
	if unwrapped, err := unwrapEncodedCBOR(payload); err == nil {
		content = unwrapped
	}
	var mso MobileSecurityObject
	if err := cbor.Unmarshal(content, &mso); err != nil {
		return nil, fmt.Errorf("failed to decode MSO: %w", err)
	}
	return &mso, nil
}

// certificateChain returns the x5chain certificates, document signer first.
func certificateChain(msg *cose.Sign1Message) ([]*x509.Certificate, error) {
	raw, ok := msg.Headers.Unprotected[cose.HeaderLabelX5Chain]
	if !ok {
		raw, ok = msg.Headers.Protected[cose.HeaderLabelX5Chain]
	}
	if !ok {
		return nil, fmt.Errorf("x5chain header is missing")
	}

	var ders [][]byte
	switch v := raw.(type) {
	case []byte:
		ders = [][]byte{v}
	case [][]byte:
		ders = v
	case []interface{}:
		for _, el := range v {
			der, ok := el.([]byte)
			if !ok {
				return nil, fmt.Errorf("x5chain entry is %T, not a byte string", el)
			}
			ders = append(ders, der)
		}
	default:
		return nil, fmt.Errorf("x5chain header is %T", raw)
	}
	if len(ders) == 0 {
		return nil, fmt.Errorf("x5chain header is empty")
	}

	certs := make([]*x509.Certificate, 0, len(ders))
	for _, der := range ders {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse x5chain certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// decodeDate accepts tag 0, tag 1 and plain RFC 3339 strings.
func decodeDate(raw cbor.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, fmt.Errorf("date is missing")
	}
	var t time.Time
	if err := cbor.Unmarshal(raw, &t); err == nil && !t.IsZero() {
		return t, nil
	}
	var s string
	if err := cbor.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("date is not a string or time tag: %w", err)
	}
	return dateutil.Parse(s)
}
