package dto

// Proof represents a Linked Data Proof attached to a Verifiable Credential.
type Proof struct {
	Context            interface{} `json:"@context,omitempty"`
	Type               string      `json:"type"`
	Created            string      `json:"created,omitempty"`
	VerificationMethod string      `json:"verificationMethod"`
	ProofPurpose       string      `json:"proofPurpose"`
	ProofValue         string      `json:"proofValue,omitempty"`
	JWS                string      `json:"jws,omitempty"`
	Challenge          string      `json:"challenge,omitempty"`
	Domain             string      `json:"domain,omitempty"`
	PublicKeyMultibase string      `json:"publicKeyMultibase,omitempty"`
}

// HasSignatureValue reports whether the proof carries either a jws or a proofValue.
func (p Proof) HasSignatureValue() bool {
	return p.JWS != "" || p.ProofValue != ""
}
