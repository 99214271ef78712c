package pipeline

import "errors"

var (
	// ErrConfig marks a required credential or setting as missing. Not
	// retryable without user action.
	ErrConfig = errors.New("required configuration missing")

	// ErrProvider marks a transient or permanent failure from an external
	// provider call.
	ErrProvider = errors.New("provider call failed")

	// ErrVerification marks an artifact that is missing or invalid after a
	// stage that claimed success.
	ErrVerification = errors.New("artifact verification failed")

	// ErrQuota marks a provider-side rate or upload limit.
	ErrQuota = errors.New("provider quota exceeded")

	// ErrUpload marks an upload that returned no video ID.
	ErrUpload = errors.New("upload returned no video id")
)
