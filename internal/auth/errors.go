package auth

import "errors"

var (
	errVerifierMissing = errors.New("auth: verifier not configured")
	errMissingSubject  = errors.New("auth: identity missing subject")
)
