package businessflow

import (
	"errors"
	"fmt"
)

// UploadErrorKind classifies why a single image was rejected
type UploadErrorKind string

const (
	UploadErrInvalidFormat    UploadErrorKind = "INVALID_FORMAT"
	UploadErrDecodeFailure    UploadErrorKind = "DECODE_FAILURE"
	UploadErrSizeViolation    UploadErrorKind = "SIZE_VIOLATION"
	UploadErrTypeMismatch     UploadErrorKind = "TYPE_MISMATCH"
	UploadErrMaliciousContent UploadErrorKind = "MALICIOUS_CONTENT_DETECTED"
	UploadErrResolution       UploadErrorKind = "RESOLUTION_VIOLATION"
	UploadErrStorageFailure   UploadErrorKind = "STORAGE_FAILURE"
)

// UploadError is the rejection of one image in a batch.
// Message is safe to show to the shopper; Detail is for the audit log only.
type UploadError struct {
	Kind    UploadErrorKind
	Index   int
	Message string
	Detail  string
	Err     error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image %d: %s: %v", e.Index, e.Detail, e.Err)
	}
	return fmt.Sprintf("image %d: %s", e.Index, e.Detail)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func newUploadError(kind UploadErrorKind, index int, message, detail string, err error) *UploadError {
	if detail == "" {
		detail = message
	}
	return &UploadError{Kind: kind, Index: index, Message: message, Detail: detail, Err: err}
}

// AsUploadError extracts the UploadError carried by err, if any
func AsUploadError(err error) (*UploadError, bool) {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// IsUploadErrorKind reports whether err is an UploadError of the given kind
func IsUploadErrorKind(err error, kind UploadErrorKind) bool {
	ue, ok := AsUploadError(err)
	return ok && ue.Kind == kind
}
