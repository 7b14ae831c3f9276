package errors

import (
	"errors"
)

// AsError attempts to convert an error to an *Error.
// Returns the Error and true if successful, nil and false otherwise.
// This function traverses the error chain using errors.As.
//
// Example:
//
//	if e, ok := errors.AsError(err); ok {
//	    log.Printf("error code: %s, message: %s", e.Code, e.Message)
//	}
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the error code from an error.
// If the error is not an *Error or is nil, returns an empty string.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode checks if an error has the specified error code.
// Returns false if the error is nil or not an *Error.
//
// Example:
//
//	if errors.HasCode(err, errors.CodeTokenExpired) {
//	    // ask the caller to mint a fresh token
//	}
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

func hasCategory(err error, category string) bool {
	e, ok := AsError(err)
	return ok && e.Code.Category() == category
}

// IsValidation checks if the error is a validation error (VAL_xxx).
func IsValidation(err error) bool {
	return hasCategory(err, "VAL")
}

// IsToken checks if the error is a token or authorization header error
// (TOKEN_xxx).
func IsToken(err error) bool {
	return hasCategory(err, "TOKEN")
}

// IsKeyID checks if the error is a key id error (KID_xxx). Key id errors
// are always raised before any network I/O.
func IsKeyID(err error) bool {
	return hasCategory(err, "KID")
}

// IsClaims checks if the error is a claims validation error (CLAIM_xxx).
func IsClaims(err error) bool {
	return hasCategory(err, "CLAIM")
}

// IsKeyFetch checks if the error is a key fetch error (FETCH_xxx).
//
// Example:
//
//	if errors.IsKeyFetch(err) {
//	    e, _ := errors.AsError(err)
//	    log.Printf("key server %v failed", e.Details["url"])
//	}
func IsKeyFetch(err error) bool {
	return hasCategory(err, "FETCH")
}

// IsConfig checks if the error is a configuration error (CFG_xxx).
func IsConfig(err error) bool {
	return hasCategory(err, "CFG")
}

// IsGeneration checks if the error is a token generation error (GEN_xxx).
func IsGeneration(err error) bool {
	return hasCategory(err, "GEN")
}

// IsInternal checks if the error is an internal error (INT_xxx).
func IsInternal(err error) bool {
	return hasCategory(err, "INT")
}

// IsUnavailable checks if the error is a service unavailable error (UNAVAIL_xxx).
func IsUnavailable(err error) bool {
	return hasCategory(err, "UNAVAIL")
}

// IsTimeout checks if the error is a timeout error (TIMEOUT_xxx).
func IsTimeout(err error) bool {
	return hasCategory(err, "TIMEOUT")
}

// IsRetryable checks if the error is potentially retryable.
// Timeout, unavailable and key fetch errors are considered retryable: the
// same token may validate once the key server recovers.
func IsRetryable(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "TIMEOUT", "UNAVAIL", "FETCH":
		return true
	default:
		return false
	}
}

// IsRejection reports whether the error means the presented credential
// itself was rejected (TOKEN, KID or CLAIM), as opposed to a failure of
// the validating side.
func IsRejection(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Code.Category() {
	case "TOKEN", "KID", "CLAIM":
		return true
	default:
		return false
	}
}
