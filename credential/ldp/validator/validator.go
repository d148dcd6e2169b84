// Package validator checks the structure and dates of JSON-LD credentials
// for data model v1.1 and v2.0.
package validator

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/dateutil"
	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
	"github.com/pilacorp/go-vc-verifier/credential/common/status"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

// Version is the credential data model version.
type Version int

const (
	VersionUnknown Version = iota
	Version11
	Version20
)

func (v Version) String() string {
	switch v {
	case Version11:
		return "1.1"
	case Version20:
		return "2.0"
	}
	return "unknown"
}

// rules holds the version specific parts of validation.
type rules struct {
	mandatory     []string
	idRequired    []string
	startDate     string
	endDate       string
	futureCode    string
	languageCheck bool
}

var commonMandatoryFields = []string{
	constant.Context,
	constant.Type,
	constant.CredentialSubject,
	constant.Issuer,
	constant.Proof,
	constant.Proof + "." + constant.ProofType,
	constant.Proof + "." + constant.ProofPurpose,
	constant.Proof + "." + constant.ProofVerificationMethod,
}

var versionRules = map[Version]rules{
	Version11: {
		mandatory:  append(append([]string{}, commonMandatoryFields...), constant.IssuanceDate),
		idRequired: []string{constant.CredentialStatus, constant.CredentialSchema, constant.RefreshService},
		startDate:  constant.IssuanceDate,
		endDate:    constant.ExpirationDate,
		futureCode: constant.ErrCodeIssuanceDateIsFutureDate,
	},
	Version20: {
		mandatory:     commonMandatoryFields,
		idRequired:    []string{constant.CredentialSchema},
		startDate:     constant.ValidFrom,
		endDate:       constant.ValidUntil,
		futureCode:    constant.ErrCodeValidFromIsFutureDate,
		languageCheck: true,
	},
}

// Opt configures a Validator.
type Opt func(*Validator)

// WithClock sets the clock used for the future and expiry checks.
func WithClock(clock dateutil.Clock) Opt {
	return func(v *Validator) {
		if clock != nil {
			v.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Opt {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithSchemaValidation validates credentials against the JSON schemas named
// in credentialSchema, looked up in store.
func WithSchemaValidation(store keystore.ContextStore) Opt {
	return func(v *Validator) {
		v.schemaStore = store
		v.validateSchema = true
	}
}

// Validator runs the structural checks. It holds no per-call state and is
// safe for concurrent use.
type Validator struct {
	clock          dateutil.Clock
	logger         *zap.Logger
	schemaStore    keystore.ContextStore
	validateSchema bool
}

// New creates a Validator.
func New(opts ...Opt) *Validator {
	v := &Validator{
		clock:  dateutil.SystemClock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate parses credentialJSON and validates it. An expired but otherwise
// valid credential yields the ERR_VC_EXPIRED status.
func (v *Validator) Validate(credentialJSON string) status.ValidationStatus {
	if strings.TrimSpace(credentialJSON) == "" {
		return status.Failure(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
	}
	cred, err := jsonmap.Parse([]byte(credentialJSON))
	if err != nil {
		return status.Failure(constant.ErrCodeGeneric, err.Error())
	}
	return v.ValidateMap(cred)
}

// ValidateMap validates an already decoded credential.
func (v *Validator) ValidateMap(cred jsonmap.JSONMap) status.ValidationStatus {
	if len(cred) == 0 {
		return status.Failure(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
	}

	version, err := DetectVersion(cred)
	if err != nil {
		return status.FromError(err)
	}
	r := versionRules[version]

	steps := []func(jsonmap.JSONMap, rules) error{
		v.validateMandatoryFields,
		v.validateDates,
		v.validateCommonFields,
		v.validateSchemas,
	}
	for _, step := range steps {
		if err := step(cred, r); err != nil {
			v.logger.Debug("credential failed structural validation",
				zap.String("version", version.String()), zap.Error(err))
			return status.FromError(err)
		}
	}

	return v.computeExpiry(cred, r)
}

// DetectVersion selects the data model version from the first @context entry.
func DetectVersion(cred jsonmap.JSONMap) (Version, error) {
	if !cred.Has(constant.Context) || len(cred.Contexts()) == 0 {
		return VersionUnknown, verifyerr.NewValidationError(constant.ErrCodeMissingContext, "@context is required")
	}
	first, ok := cred.FirstContext()
	if !ok {
		return VersionUnknown, verifyerr.NewValidationError(constant.ErrCodeInvalidContext, constant.MsgUnknownContext)
	}
	switch first {
	case constant.CredentialsContextV1URL:
		return Version11, nil
	case constant.CredentialsContextV2URL:
		return Version20, nil
	}
	return VersionUnknown, verifyerr.NewValidationError(constant.ErrCodeInvalidContext, constant.MsgUnknownContext)
}

func (v *Validator) validateMandatoryFields(cred jsonmap.JSONMap, r rules) error {
	for _, path := range r.mandatory {
		if !cred.Lookup(path) {
			return verifyerr.NewValidationErrorf(constant.MissingFieldCode(path), "%s is required", path)
		}
	}
	return nil
}

func (v *Validator) validateDates(cred jsonmap.JSONMap, r rules) error {
	now := v.clock()

	if raw, exists := cred[r.startDate]; exists {
		value, ok := raw.(string)
		if !ok || !dateutil.IsValidFormat(value) {
			return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(r.startDate), "%s is not a valid date-time", r.startDate)
		}
		future, err := dateutil.IsFutureDateString(value, now)
		if err != nil {
			return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(r.startDate), "%s: %v", r.startDate, err)
		}
		if future {
			return verifyerr.NewValidationErrorf(r.futureCode, "%s %s is in the future", r.startDate, value)
		}
	}

	if raw, exists := cred[r.endDate]; exists {
		value, ok := raw.(string)
		if !ok || !dateutil.IsValidFormat(value) {
			return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(r.endDate), "%s is not a valid date-time", r.endDate)
		}
		if _, err := dateutil.Parse(value); err != nil {
			return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(r.endDate), "%s: %v", r.endDate, err)
		}
	}

	proofs, _ := cred.RawProofs()
	for _, proof := range proofs {
		raw, exists := proof[constant.ProofCreated]
		if !exists {
			continue
		}
		if value, ok := raw.(string); !ok || !dateutil.IsValidFormat(value) {
			return verifyerr.NewValidationErrorf(constant.InvalidFieldCode(constant.Proof+"."+constant.ProofCreated), "proof.created is not a valid date-time")
		}
	}
	return nil
}

// computeExpiry is the last step. Expiry is reported, not treated as a failure.
func (v *Validator) computeExpiry(cred jsonmap.JSONMap, r rules) status.ValidationStatus {
	value, ok := cred.String(r.endDate)
	if !ok {
		return status.Success()
	}
	expired, err := dateutil.IsExpired(value, v.clock())
	if err != nil {
		return status.Failure(constant.InvalidFieldCode(r.endDate), err.Error())
	}
	if expired {
		return status.Expired()
	}
	return status.Success()
}
