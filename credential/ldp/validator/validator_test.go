package validator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
)

var fixedNow = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func baseCredential(version Version) map[string]interface{} {
	cred := map[string]interface{}{
		"id":     "urn:uuid:3978344f-8596-4c3a-a978-8fcaba3903c5",
		"type":   []interface{}{"VerifiableCredential", "UniversityDegreeCredential"},
		"issuer": "did:example:issuer",
		"credentialSubject": map[string]interface{}{
			"id":     "did:example:subject",
			"degree": "BSc",
		},
		"proof": map[string]interface{}{
			"type":               "Ed25519Signature2020",
			"created":            "2024-01-01T00:00:00Z",
			"proofPurpose":       "assertionMethod",
			"verificationMethod": "did:example:issuer#key-1",
			"proofValue":         "z3FXQjecWufY46yg5abdVZsXqLhxhueuSoZgNSARiKBk9czhSePTFehP8c3PGfb6a22gkfUKKiZnjzjLHWoZ5oGTo",
		},
	}
	if version == Version11 {
		cred["@context"] = []interface{}{constant.CredentialsContextV1URL}
		cred["issuanceDate"] = "2024-01-01T00:00:00Z"
	} else {
		cred["@context"] = []interface{}{constant.CredentialsContextV2URL}
		cred["validFrom"] = "2024-01-01T00:00:00Z"
	}
	return cred
}

func toJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		version  Version
		mutate   func(map[string]interface{})
		wantCode string
	}{
		{name: "valid v1.1", version: Version11},
		{name: "valid v2.0", version: Version20},
		{
			name:     "missing context",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { delete(c, "@context") },
			wantCode: constant.ErrCodeMissingContext,
		},
		{
			name:     "unknown context",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["@context"] = []interface{}{"https://example.com/credentials/v3"} },
			wantCode: constant.ErrCodeInvalidContext,
		},
		{
			name:     "context object first",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["@context"] = []interface{}{map[string]interface{}{}} },
			wantCode: constant.ErrCodeInvalidContext,
		},
		{
			name:     "v1.1 missing issuanceDate",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { delete(c, "issuanceDate") },
			wantCode: "ERR_MISSING_ISSUANCE_DATE",
		},
		{
			name:    "v2.0 without validFrom",
			version: Version20,
			mutate:  func(c map[string]interface{}) { delete(c, "validFrom") },
		},
		{
			name:     "missing credentialSubject",
			version:  Version20,
			mutate:   func(c map[string]interface{}) { delete(c, "credentialSubject") },
			wantCode: "ERR_MISSING_CREDENTIAL_SUBJECT",
		},
		{
			name:    "missing proof verificationMethod",
			version: Version11,
			mutate: func(c map[string]interface{}) {
				delete(c["proof"].(map[string]interface{}), "verificationMethod")
			},
			wantCode: "ERR_MISSING_PROOF_VERIFICATION_METHOD",
		},
		{
			name:    "second proof missing type",
			version: Version11,
			mutate: func(c map[string]interface{}) {
				c["proof"] = []interface{}{c["proof"], map[string]interface{}{
					"proofPurpose":       "assertionMethod",
					"verificationMethod": "did:example:issuer#key-1",
					"proofValue":         "z1",
				}}
			},
			wantCode: "ERR_MISSING_PROOF_TYPE",
		},
		{
			name:     "malformed issuanceDate",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["issuanceDate"] = "2024-01-01" },
			wantCode: "ERR_INVALID_ISSUANCE_DATE",
		},
		{
			name:     "malformed validUntil",
			version:  Version20,
			mutate:   func(c map[string]interface{}) { c["validUntil"] = "tomorrow" },
			wantCode: "ERR_INVALID_VALID_UNTIL",
		},
		{
			name:     "unsupported proof type",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["proof"].(map[string]interface{})["type"] = "SomeFutureSuite2099" },
			wantCode: constant.ErrCodeInvalidProofType,
		},
		{
			name:    "unsupported jws algorithm",
			version: Version11,
			mutate: func(c map[string]interface{}) {
				proof := c["proof"].(map[string]interface{})
				proof["type"] = "Ed25519Signature2018"
				delete(proof, "proofValue")
				proof["jws"] = "eyJhbGciOiJIUzI1NiJ9..c2ln"
			},
			wantCode: constant.ErrCodeInvalidAlgorithm,
		},
		{
			name:    "undecodable jws",
			version: Version11,
			mutate: func(c map[string]interface{}) {
				proof := c["proof"].(map[string]interface{})
				proof["type"] = "Ed25519Signature2018"
				proof["jws"] = "not-a-jws"
			},
			wantCode: constant.ErrCodeInvalidJWS,
		},
		{
			name:    "proof without signature value",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				delete(c["proof"].(map[string]interface{}), "proofValue")
			},
			wantCode: "ERR_MISSING_PROOF_PROOF_VALUE",
		},
		{
			name:     "type without VerifiableCredential",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["type"] = []interface{}{"UniversityDegreeCredential"} },
			wantCode: "ERR_INVALID_TYPE",
		},
		{
			name:     "issuer not a URI",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["issuer"] = "example issuer" },
			wantCode: "ERR_INVALID_ISSUER",
		},
		{
			name:    "issuer object",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				c["issuer"] = map[string]interface{}{"id": "did:example:issuer", "name": "Example University"}
			},
		},
		{
			name:     "id not a URI",
			version:  Version20,
			mutate:   func(c map[string]interface{}) { c["id"] = "1234" },
			wantCode: "ERR_INVALID_ID",
		},
		{
			name:    "v1.1 credentialStatus without id",
			version: Version11,
			mutate: func(c map[string]interface{}) {
				c["credentialStatus"] = map[string]interface{}{"type": "StatusList2021Entry"}
			},
			wantCode: "ERR_MISSING_CREDENTIAL_STATUS_ID",
		},
		{
			name:    "v2.0 credentialStatus without id",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				c["credentialStatus"] = map[string]interface{}{"type": "BitstringStatusListEntry"}
			},
		},
		{
			name:    "v2.0 credentialSchema without id",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				c["credentialSchema"] = map[string]interface{}{"type": "JsonSchema"}
			},
			wantCode: "ERR_MISSING_CREDENTIAL_SCHEMA_ID",
		},
		{
			name:    "evidence without type",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				c["evidence"] = []interface{}{map[string]interface{}{"id": "https://example.com/evidence/1"}}
			},
			wantCode: "ERR_MISSING_EVIDENCE_TYPE",
		},
		{
			name:    "v2.0 name language objects",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				c["name"] = []interface{}{
					map[string]interface{}{"@value": "Degree", "@language": "en"},
					map[string]interface{}{"value": "Diplôme", "language": "fr"},
				}
			},
		},
		{
			name:    "v2.0 description without language",
			version: Version20,
			mutate: func(c map[string]interface{}) {
				c["description"] = []interface{}{map[string]interface{}{"@value": "A degree"}}
			},
			wantCode: "ERR_INVALID_DESCRIPTION",
		},
		{
			name:    "v1.1 name is not checked",
			version: Version11,
			mutate: func(c map[string]interface{}) {
				c["name"] = []interface{}{map[string]interface{}{"@value": "Degree"}}
			},
		},
		{
			name:     "empty credentialSubject array",
			version:  Version11,
			mutate:   func(c map[string]interface{}) { c["credentialSubject"] = []interface{}{} },
			wantCode: "ERR_INVALID_CREDENTIAL_SUBJECT",
		},
	}

	v := New(WithClock(fixedClock))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := baseCredential(tt.version)
			if tt.mutate != nil {
				tt.mutate(cred)
			}
			got := v.Validate(toJSON(t, cred))
			assert.Equal(t, tt.wantCode, got.ErrorCode, got.Message)
			if tt.wantCode == "" {
				assert.True(t, got.IsSuccess())
			} else {
				assert.NotEmpty(t, got.Message)
			}
		})
	}
}

func TestValidate_EmptyAndMalformed(t *testing.T) {
	v := New()

	for _, input := range []string{"", "   ", "{}"} {
		got := v.Validate(input)
		assert.Equal(t, constant.ErrCodeEmptyVC, got.ErrorCode, input)
	}

	got := v.Validate("{invalid")
	assert.Equal(t, constant.ErrCodeGeneric, got.ErrorCode)
}

func TestValidate_FutureDateTolerance(t *testing.T) {
	tests := []struct {
		name     string
		version  Version
		date     string
		wantCode string
	}{
		{name: "v1.1 exactly at tolerance", version: Version11, date: "2025-01-01T00:00:03Z"},
		{name: "v1.1 one ms past tolerance", version: Version11, date: "2025-01-01T00:00:03.001Z", wantCode: constant.ErrCodeIssuanceDateIsFutureDate},
		{name: "v2.0 exactly at tolerance", version: Version20, date: "2025-01-01T00:00:03.000Z"},
		{name: "v2.0 one ms past tolerance", version: Version20, date: "2025-01-01T00:00:03.001Z", wantCode: constant.ErrCodeValidFromIsFutureDate},
		{name: "v2.0 offset timezone", version: Version20, date: "2025-01-01T07:00:02+07:00"},
	}

	v := New(WithClock(fixedClock))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred := baseCredential(tt.version)
			if tt.version == Version11 {
				cred["issuanceDate"] = tt.date
			} else {
				cred["validFrom"] = tt.date
			}
			got := v.Validate(toJSON(t, cred))
			assert.Equal(t, tt.wantCode, got.ErrorCode, got.Message)
		})
	}
}

func TestValidate_ExpiryIsNonFatal(t *testing.T) {
	v := New(WithClock(fixedClock))

	v1 := baseCredential(Version11)
	v1["expirationDate"] = "2024-12-31T23:59:59Z"
	got := v.Validate(toJSON(t, v1))
	assert.Equal(t, constant.ErrCodeVCExpired, got.ErrorCode)
	assert.Equal(t, constant.MsgExpired, got.Message)
	assert.True(t, got.IsExpired())
	assert.True(t, got.IsStructurallyValid())

	v2 := baseCredential(Version20)
	v2["validUntil"] = "2024-06-01T00:00:00Z"
	got = v.Validate(toJSON(t, v2))
	assert.True(t, got.IsExpired())

	v2["validUntil"] = "2026-01-01T00:00:00Z"
	got = v.Validate(toJSON(t, v2))
	assert.True(t, got.IsSuccess())

	// A structural error wins over expiry.
	v1["type"] = []interface{}{"Other"}
	got = v.Validate(toJSON(t, v1))
	assert.Equal(t, "ERR_INVALID_TYPE", got.ErrorCode)
}

func TestDetectVersion(t *testing.T) {
	tests := []struct {
		name     string
		context  interface{}
		want     Version
		wantCode string
	}{
		{name: "v1.1", context: []interface{}{constant.CredentialsContextV1URL, "https://w3id.org/security/suites/ed25519-2020/v1"}, want: Version11},
		{name: "v2.0", context: []interface{}{constant.CredentialsContextV2URL}, want: Version20},
		{name: "string context", context: constant.CredentialsContextV2URL, want: Version20},
		{name: "v1 second", context: []interface{}{"https://example.com/ctx", constant.CredentialsContextV1URL}, wantCode: constant.ErrCodeInvalidContext},
		{name: "empty array", context: []interface{}{}, wantCode: constant.ErrCodeMissingContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectVersion(jsonmap.JSONMap{"@context": tt.context})
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantCode)
				assert.Equal(t, VersionUnknown, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidate_Schema(t *testing.T) {
	store := keystore.NewMemoryStore()
	require.NoError(t, store.PutContext("https://example.com/schemas/degree.json", `{
		"type": "object",
		"required": ["credentialSubject"],
		"properties": {
			"credentialSubject": {"type": "object", "required": ["degree"]}
		}
	}`))

	v := New(WithClock(fixedClock), WithSchemaValidation(store))

	cred := baseCredential(Version20)
	cred["credentialSchema"] = map[string]interface{}{
		"id":   "https://example.com/schemas/degree.json",
		"type": "JsonSchema",
	}
	assert.True(t, v.Validate(toJSON(t, cred)).IsSuccess())

	delete(cred["credentialSubject"].(map[string]interface{}), "degree")
	got := v.Validate(toJSON(t, cred))
	assert.Equal(t, constant.ErrCodeInvalidCredentialSchema, got.ErrorCode)

	cred["credentialSchema"] = map[string]interface{}{
		"id":   "https://example.com/schemas/unknown.json",
		"type": "JsonSchema",
	}
	assert.True(t, v.Validate(toJSON(t, cred)).IsSuccess(), "uncached schemas are skipped")
}

func TestIsURI(t *testing.T) {
	assert.True(t, IsURI("did:example:123"))
	assert.True(t, IsURI("https://example.com/a"))
	assert.True(t, IsURI("urn:uuid:1234"))
	assert.False(t, IsURI(""))
	assert.False(t, IsURI("1234"))
	assert.False(t, IsURI("example issuer"))
}
