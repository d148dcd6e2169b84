package validator

import (
	"net/url"

	"github.com/samber/lo"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	vccrypto "github.com/pilacorp/go-vc-verifier/credential/common/crypto"
	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

// typedFields carry nested objects that must declare a type.
var typedFields = []string{
	constant.Proof,
	constant.CredentialStatus,
	constant.Evidence,
	constant.CredentialSchema,
	constant.RefreshService,
	constant.TermsOfUse,
}

func (v *Validator) validateCommonFields(cred jsonmap.JSONMap, r rules) error {
	checks := []func(jsonmap.JSONMap) error{
		validateContexts,
		validateID,
		validateTypes,
		validateIssuer,
		validateSubject,
		func(c jsonmap.JSONMap) error { return validateTypedFields(c, r.idRequired) },
		validateProofs,
	}
	if r.languageCheck {
		checks = append(checks,
			func(c jsonmap.JSONMap) error { return validateLanguageField(c, constant.Name) },
			func(c jsonmap.JSONMap) error { return validateLanguageField(c, constant.Description) },
		)
	}

	for _, check := range checks {
		if err := check(cred); err != nil {
			return err
		}
	}
	return nil
}

// IsURI reports whether value parses as an absolute URI.
func IsURI(value string) bool {
	if value == "" {
		return false
	}
	u, err := url.Parse(value)
	return err == nil && u.Scheme != ""
}

func validateContexts(cred jsonmap.JSONMap) error {
	for i, ctx := range cred.Contexts() {
		switch c := ctx.(type) {
		case string:
			if !IsURI(c) {
				return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidContext, "@context entry %d is not a URI", i)
			}
		case map[string]interface{}:
		default:
			return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidContext, "@context entry %d must be a string or an object", i)
		}
	}
	return nil
}

func validateID(cred jsonmap.JSONMap) error {
	raw, exists := cred[constant.ID]
	if !exists {
		return nil
	}
	if id, ok := raw.(string); !ok || !IsURI(id) {
		return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.ID), "id must be a URI")
	}
	return nil
}

func validateTypes(cred jsonmap.JSONMap) error {
	raw := jsonmap.AsSlice(cred[constant.Type])
	types := cred.Types()
	if len(types) != len(raw) {
		return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.Type), "type entries must be strings")
	}
	if !lo.Contains(types, constant.VerifiableCredentialType) {
		return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(constant.Type), "type must include %s", constant.VerifiableCredentialType)
	}
	return nil
}

func validateIssuer(cred jsonmap.JSONMap) error {
	switch issuer := cred[constant.Issuer].(type) {
	case string:
		if IsURI(issuer) {
			return nil
		}
	case map[string]interface{}:
		id, exists := issuer[constant.ID]
		if !exists {
			return verifyerr.NewValidationError(constant.MissingFieldCode(constant.Issuer+"."+constant.ID), "issuer.id is required")
		}
		if s, ok := id.(string); ok && IsURI(s) {
			return nil
		}
	}
	return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.Issuer), "issuer must be a URI or an object with a URI id")
}

func validateSubject(cred jsonmap.JSONMap) error {
	subjects := jsonmap.AsSlice(cred[constant.CredentialSubject])
	if len(subjects) == 0 {
		return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.CredentialSubject), "credentialSubject must not be empty")
	}
	for _, s := range subjects {
		subject, ok := s.(map[string]interface{})
		if !ok {
			return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.CredentialSubject), "credentialSubject must be an object")
		}
		if raw, exists := subject[constant.ID]; exists {
			if id, ok := raw.(string); !ok || !IsURI(id) {
				return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.CredentialSubject+"."+constant.ID), "credentialSubject.id must be a URI")
			}
		}
	}
	return nil
}

// validateTypedFields requires a type on every nested object and an id on
// the fields listed in idRequired.
func validateTypedFields(cred jsonmap.JSONMap, idRequired []string) error {
	for _, field := range typedFields {
		raw, exists := cred[field]
		if !exists {
			continue
		}
		for _, entry := range jsonmap.AsSlice(raw) {
			obj, ok := entry.(map[string]interface{})
			if !ok {
				return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(field), "%s must be an object", field)
			}
			if !hasType(obj[constant.Type]) {
				return verifyerr.NewValidationErrorf(constant.MissingFieldCode(field+"."+constant.Type), "%s.type is required", field)
			}
			id, hasID := obj[constant.ID]
			if !hasID {
				if lo.Contains(idRequired, field) {
					return verifyerr.NewValidationErrorf(constant.MissingFieldCode(field+"."+constant.ID), "%s.id is required", field)
				}
				continue
			}
			if s, ok := id.(string); !ok || !IsURI(s) {
				return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(field+"."+constant.ID), "%s.id must be a URI", field)
			}
		}
	}
	return nil
}

func hasType(raw interface{}) bool {
	types := jsonmap.AsSlice(raw)
	if len(types) == 0 {
		return false
	}
	for _, t := range types {
		if s, ok := t.(string); !ok || s == "" {
			return false
		}
	}
	return true
}

// validateProofs checks proof type and JWS algorithm against the supported
// sets. The signature itself is not verified here.
func validateProofs(cred jsonmap.JSONMap) error {
	proofs, err := cred.RawProofs()
	if err != nil {
		return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.Proof), err.Error())
	}

	for _, raw := range proofs {
		proof, err := jsonmap.ParseRawToProof(raw)
		if err != nil {
			return verifyerr.NewValidationError(constant.InvalidFieldCode(constant.Proof), err.Error())
		}

		if !lo.Contains(constant.SupportedProofTypes, proof.Type) {
			return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidProofType, "unsupported proof type %q", proof.Type)
		}
		if !IsURI(proof.VerificationMethod) {
			return verifyerr.NewValidationError(
				constant.InvalidFieldCode(constant.Proof+"."+constant.ProofVerificationMethod),
				"proof.verificationMethod must be a URI")
		}
		if !proof.HasSignatureValue() {
			return verifyerr.NewValidationError(constant.MissingFieldCode(constant.Proof+"."+constant.ProofValue),
				"proof must carry a jws or a proofValue")
		}

		if raw.Has(constant.ProofJWS) {
			if proof.JWS == "" {
				return verifyerr.NewValidationError(constant.ErrCodeInvalidJWS, "proof.jws must be a non-empty string")
			}
			header, err := vccrypto.ParseJWSHeader(proof.JWS)
			if err != nil {
				return verifyerr.NewValidationError(constant.ErrCodeInvalidJWS, err.Error())
			}
			if !lo.Contains(constant.SupportedJWSAlgorithms, header.Alg) {
				return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidAlgorithm, "unsupported JWS algorithm %q", header.Alg)
			}
		}
	}
	return nil
}

// validateLanguageField accepts a string, or an array whose elements are all
// language objects.
func validateLanguageField(cred jsonmap.JSONMap, field string) error {
	raw, exists := cred[field]
	if !exists {
		return nil
	}
	switch value := raw.(type) {
	case string:
		return nil
	case []interface{}:
		if len(value) == 0 {
			break
		}
		valid := lo.EveryBy(value, func(item interface{}) bool {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return false
			}
			_, hasLanguage := obj[constant.Language]
			_, hasJSONLDLanguage := obj[constant.JSONLDLanguage]
			return hasLanguage || hasJSONLDLanguage
		})
		if valid {
			return nil
		}
	}
	return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(field),
		"%s must be a string or an array of language objects", field)
}
