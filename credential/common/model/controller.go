package model

import (
	"github.com/samber/lo"
)

// Proof purposes a controller document can authorize.
const (
	PurposeAssertionMethod = "assertionMethod"
	PurposeAuthentication  = "authentication"
)

// ControllerDocument is the minimal controller document built around a
// resolved key. It lets proof purpose be checked without fetching a DID document.
type ControllerDocument struct {
	Context            []string                  `json:"@context"`
	ID                 string                    `json:"id"`
	VerificationMethod []VerificationMethodEntry `json:"verificationMethod"`
	Authentication     []string                  `json:"authentication,omitempty"`
	AssertionMethod    []string                  `json:"assertionMethod"`
}

// VerificationMethodEntry represents a single verification method in a controller document.
type VerificationMethodEntry struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Controller         string                 `json:"controller"`
	PublicKeyMultibase string                 `json:"publicKeyMultibase,omitempty"`
	PublicKeyHex       string                 `json:"publicKeyHex,omitempty"`
	PublicKeyJwk       map[string]interface{} `json:"publicKeyJwk,omitempty"`
	PublicKeyPem       string                 `json:"publicKeyPem,omitempty"`
}

// NewControllerDocument returns a document whose only verification method is
// vm, referenced from assertionMethod.
func NewControllerDocument(controller string, vm VerificationMethodEntry) *ControllerDocument {
	return &ControllerDocument{
		Context:            []string{"https://www.w3.org/ns/did/v1"},
		ID:                 controller,
		VerificationMethod: []VerificationMethodEntry{vm},
		AssertionMethod:    []string{vm.ID},
	}
}

// Method returns the verification method with the given id.
func (d *ControllerDocument) Method(id string) (VerificationMethodEntry, bool) {
	return lo.Find(d.VerificationMethod, func(vm VerificationMethodEntry) bool {
		return vm.ID == id
	})
}

// Authorizes reports whether the document lists vm under purpose and the
// method is controlled by this document.
func (d *ControllerDocument) Authorizes(purpose, vm string) bool {
	method, ok := d.Method(vm)
	if !ok || method.Controller != d.ID {
		return false
	}
	switch purpose {
	case PurposeAssertionMethod:
		return lo.Contains(d.AssertionMethod, vm)
	case PurposeAuthentication:
		return lo.Contains(d.Authentication, vm)
	}
	return false
}
