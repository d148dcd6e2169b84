package validator

import (
	"errors"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

// validateSchemas validates the credential against each credentialSchema
// whose JSON schema is cached. Schemas absent from the store are skipped.
func (v *Validator) validateSchemas(cred jsonmap.JSONMap, _ rules) error {
	if !v.validateSchema || v.schemaStore == nil {
		return nil
	}

	for _, entry := range jsonmap.AsSlice(cred[constant.CredentialSchema]) {
		schemaMap, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		schemaID, _ := schemaMap[constant.ID].(string)
		if schemaID == "" {
			continue
		}

		schemaDoc, err := v.schemaStore.GetContext(schemaID)
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				v.logger.Debug("credential schema not cached, skipping", zap.String("schema", schemaID))
				continue
			}
			return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidCredentialSchema, "failed to load schema %s: %v", schemaID, err)
		}

		result, err := gojsonschema.Validate(
			gojsonschema.NewGoLoader(schemaDoc),
			gojsonschema.NewGoLoader(map[string]interface{}(cred)),
		)
		if err != nil {
			return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidCredentialSchema, "failed to validate schema %s: %v", schemaID, err)
		}
		if !result.Valid() {
			descriptions := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				descriptions = append(descriptions, e.String())
			}
			return verifyerr.NewValidationErrorf(constant.ErrCodeInvalidCredentialSchema,
				"credential does not match schema %s: %s", schemaID, strings.Join(descriptions, "; "))
		}
	}
	return nil
}
