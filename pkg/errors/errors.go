// Package errors provides the structured error type used across the ASAP
// token libraries. Every failure surfaced by token validation, key fetching,
// token generation, and configuration loading is an [*Error] carrying a
// stable machine-readable [Code].
//
// # Error Categories
//
//   - Token errors: the token or authorization header cannot be used
//   - Key id errors: the kid header failed sanitization
//   - Claims errors: a claims rule was violated
//   - Key fetch errors: the issuer's public key could not be retrieved
//   - Configuration errors: required settings are missing or invalid
//   - Validation errors: bad input to token generation
//   - Internal, unavailable and timeout errors
//
// # Usage
//
// Create a new error:
//
//	err := errors.New(errors.CodeBlankIssuer, "auth: issuer cannot be blank")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeInvalidSignature, "auth: invalid signature")
//
// Check error category:
//
//	if errors.IsClaims(err) {
//	    // the token was well-formed and signed but not acceptable
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Warn("token rejected",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
