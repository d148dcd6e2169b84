package credentialstatus

// Status entry types understood by the checker.
const (
	TypeStatusList2021Entry      = "StatusList2021Entry"
	TypeBitstringStatusListEntry = "BitstringStatusListEntry"
)

// Status purposes.
const (
	PurposeRevocation = "revocation"
	PurposeSuspension = "suspension"
)

// Entry is one credentialStatus entry of a credential.
type Entry struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	StatusPurpose        string `json:"statusPurpose"`
	StatusListIndex      string `json:"statusListIndex"`
	StatusListCredential string `json:"statusListCredential"`
}

// StatusListCredentialResponse is the wrapper some status services put
// around the status list credential.
type StatusListCredentialResponse struct {
	Data StatusListCredential `json:"data"`
}

// StatusListCredential models the parts of a status list credential the
// checker reads.
type StatusListCredential struct {
	ID                string                      `json:"id"`
	Type              interface{}                 `json:"type"`
	Issuer            interface{}                 `json:"issuer"`
	CredentialSubject StatusListCredentialSubject `json:"credentialSubject"`
	ValidFrom         string                      `json:"validFrom,omitempty"`
	ValidUntil        string                      `json:"validUntil,omitempty"`
}

// StatusListCredentialSubject carries the encoded bitstring.
type StatusListCredentialSubject struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	StatusPurpose string `json:"statusPurpose"`
	EncodedList   string `json:"encodedList"`
}

// Result is the outcome of checking one entry.
type Result struct {
	Entry Entry
	// Set reports whether the bit at the entry's index is 1.
	Set bool
}
