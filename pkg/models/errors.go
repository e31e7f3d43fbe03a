package models

import "errors"

// Shared AI failure classes. Provider implementations wrap these so callers
// can classify without knowing the vendor.
var (
	ErrNoCredential        = errors.New("no credential configured for provider")
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrInferenceTimeout    = errors.New("ai inference timeout")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
)
