// Package verifier is the entry point for offline verification of JSON-LD
// and mdoc credentials.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-vc-verifier/config"
	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	credentialstatus "github.com/pilacorp/go-vc-verifier/credential/common/credential-status"
	"github.com/pilacorp/go-vc-verifier/credential/common/dateutil"
	"github.com/pilacorp/go-vc-verifier/credential/common/jsonmap"
	"github.com/pilacorp/go-vc-verifier/credential/common/keystore"
	"github.com/pilacorp/go-vc-verifier/credential/common/processor"
	"github.com/pilacorp/go-vc-verifier/credential/common/publickey"
	"github.com/pilacorp/go-vc-verifier/credential/common/status"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
	"github.com/pilacorp/go-vc-verifier/credential/ldp"
	"github.com/pilacorp/go-vc-verifier/credential/ldp/validator"
	"github.com/pilacorp/go-vc-verifier/credential/mdoc"
)

// Format is the encoding of a credential.
type Format int

const (
	FormatUnknown Format = iota
	FormatLdp
	FormatMdoc
)

func (f Format) String() string {
	switch f {
	case FormatLdp:
		return "ldp"
	case FormatMdoc:
		return "mdoc"
	}
	return "unknown"
}

// DetectFormat sniffs the encoding: JSON objects are linked data
// credentials, anything else is treated as base64url mdoc.
func DetectFormat(credential string) Format {
	trimmed := strings.TrimSpace(credential)
	switch {
	case trimmed == "":
		return FormatUnknown
	case strings.HasPrefix(trimmed, "{"):
		return FormatLdp
	default:
		return FormatMdoc
	}
}

// Result is the outcome of one credential in a batch.
type Result struct {
	Index int
	Valid bool
	Err   error
}

// Verifier wires the validators, resolvers and signature verifiers together.
// It holds no per-call state and is safe for concurrent use.
type Verifier struct {
	cfg         *config.Config
	logger      *zap.Logger
	loader      *processor.ContextLoader
	validator   *validator.Validator
	ldp         *ldp.Verifier
	mdoc        *mdoc.Verifier
	statusStore keystore.StatusListStore
	status      *credentialstatus.Checker
}

// New builds a Verifier. Close releases the context cache.
func New(opts ...Option) (*Verifier, error) {
	o := &options{
		logger: zap.NewNop(),
		clock:  dateutil.SystemClock,
		cfg:    config.New(config.Config{}),
	}
	for _, opt := range opts {
		opt(o)
	}

	loader, err := processor.NewContextLoader(o.contextStore,
		processor.WithCacheSize(o.cfg.ContextCacheSize),
		processor.WithLoaderLogger(o.logger.Named("processor")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create context loader: %w", err)
	}

	validatorOpts := []validator.Opt{
		validator.WithClock(o.clock),
		validator.WithLogger(o.logger.Named("validator")),
	}
	if o.schemaValidation {
		validatorOpts = append(validatorOpts, validator.WithSchemaValidation(o.contextStore))
	}
	val := validator.New(validatorOpts...)

	resolver := publickey.NewResolver(
		publickey.WithKeyStore(o.keyStore),
		publickey.WithLogger(o.logger.Named("publickey")),
	)

	return &Verifier{
		cfg:       o.cfg,
		logger:    o.logger,
		loader:    loader,
		validator: val,
		ldp: ldp.New(processor.NewProcessor(loader),
			ldp.WithResolver(resolver),
			ldp.WithValidator(val),
			ldp.WithLogger(o.logger.Named("ldp")),
		),
		mdoc: mdoc.New(
			mdoc.WithClock(o.clock),
			mdoc.WithTrustAnchors(o.roots),
			mdoc.WithLogger(o.logger.Named("mdoc")),
		),
		statusStore: o.statusStore,
		status:      credentialstatus.NewChecker(o.statusStore),
	}, nil
}

// Close releases the context cache.
func (v *Verifier) Close() {
	v.loader.Close()
}

// ValidateLdp checks the structure and dates of a JSON-LD credential. An
// expired but well-formed credential yields ERR_VC_EXPIRED.
func (v *Verifier) ValidateLdp(credentialJSON string) status.ValidationStatus {
	return v.validator.Validate(credentialJSON)
}

// VerifyLdp validates a JSON-LD credential and verifies all of its proofs.
func (v *Verifier) VerifyLdp(credentialJSON string) (ok bool, err error) {
	defer recoverUnknown(&ok, &err)
	ok, err = v.ldp.Verify(credentialJSON)
	return ok, verifyerr.Wrap(err)
}

// ValidateMdoc checks the digests, validity window, docType and issuing
// country of a base64url mdoc.
func (v *Verifier) ValidateMdoc(credential string) status.ValidationStatus {
	return v.mdoc.Validate(credential)
}

// VerifyMdoc runs ValidateMdoc's checks plus the issuer signature and chain.
func (v *Verifier) VerifyMdoc(credential string) (ok bool, err error) {
	defer recoverUnknown(&ok, &err)
	ok, err = v.mdoc.Verify(credential)
	return ok, verifyerr.Wrap(err)
}

// Validate dispatches to ValidateLdp or ValidateMdoc.
func (v *Verifier) Validate(credential string) status.ValidationStatus {
	switch DetectFormat(credential) {
	case FormatLdp:
		return v.ValidateLdp(credential)
	case FormatMdoc:
		return v.ValidateMdoc(credential)
	}
	return status.Failure(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
}

// Verify dispatches to VerifyLdp or VerifyMdoc.
func (v *Verifier) Verify(credential string) (bool, error) {
	switch DetectFormat(credential) {
	case FormatLdp:
		return v.VerifyLdp(credential)
	case FormatMdoc:
		return v.VerifyMdoc(credential)
	}
	return false, verifyerr.NewValidationError(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
}

// VerifyBatch verifies credentials concurrently, at most
// Config.BatchConcurrency at a time. Results keep the input order. Items not
// started before ctx is done carry the context error.
func (v *Verifier) VerifyBatch(ctx context.Context, credentials []string) []Result {
	results := make([]Result, len(credentials))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(v.cfg.BatchConcurrency)
	for i, credential := range credentials {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Index: i, Err: &verifyerr.UnknownError{Err: err}}
				return nil
			}
			ok, err := v.Verify(credential)
			results[i] = Result{Index: i, Valid: ok, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	v.logger.Debug("batch verified", zap.Int("count", len(credentials)))
	return results
}

// CheckStatus looks up every StatusList2021Entry and BitstringStatusListEntry
// of a JSON-LD credential in the status list store. Other entry types are
// ignored.
func (v *Verifier) CheckStatus(credentialJSON string) status.ValidationStatus {
	if strings.TrimSpace(credentialJSON) == "" {
		return status.Failure(constant.ErrCodeEmptyVC, constant.MsgEmptyVC)
	}
	cred, err := jsonmap.Parse([]byte(credentialJSON))
	if err != nil {
		return status.Failure(constant.ErrCodeGeneric, err.Error())
	}
	if !cred.Has(constant.CredentialStatus) {
		return status.Success()
	}

	entries, err := credentialstatus.ParseEntries(cred[constant.CredentialStatus])
	if err != nil {
		return status.Failure(constant.InvalidFieldCode(constant.CredentialStatus), err.Error())
	}

	for _, entry := range entries {
		if entry.Type != credentialstatus.TypeStatusList2021Entry &&
			entry.Type != credentialstatus.TypeBitstringStatusListEntry {
			v.logger.Debug("skipping credential status entry", zap.String("type", entry.Type))
			continue
		}
		if v.statusStore == nil {
			return status.Failure(constant.ErrCodeStatusUnavailable, "no status list store configured")
		}

		result, err := v.status.Check(entry)
		if err != nil {
			if errors.Is(err, keystore.ErrNotFound) {
				return status.Failure(constant.ErrCodeStatusUnavailable,
					fmt.Sprintf("status list %s is not available", entry.StatusListCredential))
			}
			return status.Failure(constant.InvalidFieldCode(constant.CredentialStatus), err.Error())
		}
		if !result.Set {
			continue
		}
		if entry.StatusPurpose == credentialstatus.PurposeSuspension {
			return status.Failure(constant.ErrCodeVCSuspended, "VC is suspended")
		}
		return status.Failure(constant.ErrCodeVCRevoked, "VC is revoked")
	}
	return status.Success()
}

// recoverUnknown turns a panic raised below the entry points into an UnknownError.
func recoverUnknown(ok *bool, err *error) {
	if r := recover(); r != nil {
		*ok = false
		*err = &verifyerr.UnknownError{Err: fmt.Errorf("panic during verification: %v", r)}
	}
}
