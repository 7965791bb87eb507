// Package businessflow contains the core business logic for the product image upload service
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Catalog errors
	ErrProductNotFound           = errors.New("product not found")
	ErrProductTypeNotSupported   = errors.New("product type does not support custom images")
	ErrProductNotConfigured      = errors.New("custom image upload is not enabled for this product")
	ErrInvalidProductID          = errors.New("invalid product ID")
	ErrInvalidImageCount         = errors.New("invalid data or image count")
	ErrNoImagesProvided          = errors.New("no images provided")
	ErrInvalidPolicy             = errors.New("invalid upload policy")
	ErrSubmitterIdentityRequired = errors.New("submitter identity is required")
	ErrGuestThrottled            = errors.New("please wait a few seconds before uploading again")
	ErrCartAddFailed             = errors.New("failed to add product to cart")
	ErrUploadedFileNotFound      = errors.New("uploaded file not found")
	ErrInvalidUploadedFileName   = errors.New("invalid uploaded file name")
	ErrPreviewTooLarge           = errors.New("image is too large to preview")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsProductNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

func IsProductTypeNotSupported(err error) bool {
	return errors.Is(err, ErrProductTypeNotSupported)
}

func IsProductNotConfigured(err error) bool {
	return errors.Is(err, ErrProductNotConfigured)
}

func IsInvalidImageCount(err error) bool {
	return errors.Is(err, ErrInvalidImageCount)
}

func IsGuestThrottled(err error) bool {
	return errors.Is(err, ErrGuestThrottled)
}

func IsCartAddFailed(err error) bool {
	return errors.Is(err, ErrCartAddFailed)
}

func IsUploadedFileNotFound(err error) bool {
	return errors.Is(err, ErrUploadedFileNotFound)
}

func IsPreviewTooLarge(err error) bool {
	return errors.Is(err, ErrPreviewTooLarge)
}
