// Package status holds the outcome model returned by the validation entry points.
package status

import (
	"errors"

	"github.com/pilacorp/go-vc-verifier/credential/common/constant"
	"github.com/pilacorp/go-vc-verifier/credential/common/verifyerr"
)

// ValidationStatus is the result of a validation call. An empty message means
// success; an expired but well-formed credential carries ERR_VC_EXPIRED.
type ValidationStatus struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// Success returns the success status.
func Success() ValidationStatus {
	return ValidationStatus{}
}

// Failure returns a status carrying code and message.
func Failure(code, message string) ValidationStatus {
	return ValidationStatus{Message: message, ErrorCode: code}
}

// Expired returns the non-fatal expiry status.
func Expired() ValidationStatus {
	return ValidationStatus{Message: constant.MsgExpired, ErrorCode: constant.ErrCodeVCExpired}
}

// FromError converts an error into a status. ValidationError keeps its code,
// anything else maps to ERR_GENERIC.
func FromError(err error) ValidationStatus {
	if err == nil {
		return Success()
	}
	var validationErr *verifyerr.ValidationError
	if errors.As(err, &validationErr) {
		return Failure(validationErr.Code, validationErr.Message)
	}
	return Failure(constant.ErrCodeGeneric, err.Error())
}

// IsSuccess reports a fully successful validation.
func (s ValidationStatus) IsSuccess() bool {
	return s.Message == "" && s.ErrorCode == ""
}

// IsExpired reports the expired-but-well-formed outcome.
func (s ValidationStatus) IsExpired() bool {
	return s.ErrorCode == constant.ErrCodeVCExpired
}

// IsStructurallyValid is true for success and for expiry.
func (s ValidationStatus) IsStructurallyValid() bool {
	return s.IsSuccess() || s.IsExpired()
}

// Err returns the status as a ValidationError, nil on success.
func (s ValidationStatus) Err() error {
	if s.IsSuccess() {
		return nil
	}
	return verifyerr.NewValidationError(s.ErrorCode, s.Message)
}
