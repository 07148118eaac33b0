package storage

import (
	"errors"
	"fmt"
)

// ErrInvalidDescriptor is returned when a descriptor cannot address an asset.
var ErrInvalidDescriptor = errors.New("invalid asset descriptor")

// ErrInvalidNamespace is returned when Store is given an unusable namespace.
var ErrInvalidNamespace = errors.New("invalid namespace")

// ErrEmptyUpload is returned when Store is given no body to upload.
var ErrEmptyUpload = errors.New("upload has no body")

// ProviderError is the failure reported by an object store.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// UploadError reports a failed Store. No descriptor exists for it.
type UploadError struct {
	Key        string
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q failed (status %d): %s", e.Key, e.StatusCode, e.Message)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError reports a transport or auth failure while deleting. The
// object must be presumed still present.
type DeleteError struct {
	Key        string
	StatusCode int
	Message    string
	Err        error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete %q failed (status %d): %s", e.Key, e.StatusCode, e.Message)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// providerContext extracts the status and message carried by err.
func providerContext(err error) (int, string) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.StatusCode, pe.Message
	}
	return 0, err.Error()
}

func isNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && (pe.StatusCode == 404 || pe.Code == "NoSuchKey")
}
