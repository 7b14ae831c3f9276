package errors

// Code represents a machine-readable error code for categorizing errors.
// Error codes follow the pattern CATEGORY_XXX where CATEGORY is a short
// identifier (e.g., KID, CLAIM, FETCH) and XXX is a three-digit numeric code.
//
// Codes are stable once assigned. Callers should branch on codes (or the
// category helpers in checks.go) rather than on message text.
type Code string

// Error code categories and the HTTP status each maps to:
//
//	VAL_xxx     - Caller input to token generation (400 Bad Request)
//	TOKEN_xxx   - Token or authorization header unusable (401 Unauthorized)
//	KID_xxx     - Key id header rejected (401 Unauthorized)
//	CLAIM_xxx   - Claims rule violated (401 Unauthorized)
//	FETCH_xxx   - Public key could not be retrieved (502 Bad Gateway)
//	CFG_xxx     - Configuration missing or invalid (500 Internal Server Error)
//	GEN_xxx     - Token generation failed (500 Internal Server Error)
//	INT_xxx     - Internal errors (500 Internal Server Error)
//	UNAVAIL_xxx - Dependency unavailable (503 Service Unavailable)
//	TIMEOUT_xxx - Timeout errors (504 Gateway Timeout)
const (
	// Validation errors (VAL_xxx) - HTTP 400

	// CodeValidation indicates a general validation failure.
	CodeValidation Code = "VAL_001"

	// CodeValidationRequired indicates a required field is missing.
	CodeValidationRequired Code = "VAL_002"

	// CodeValidationFormat indicates a field has an invalid format.
	CodeValidationFormat Code = "VAL_003"

	// Token errors (TOKEN_xxx) - HTTP 401

	// CodeMalformedToken indicates the token could not be decoded at all.
	CodeMalformedToken Code = "TOKEN_001"

	// CodeInvalidSignature indicates signature verification failed.
	CodeInvalidSignature Code = "TOKEN_002"

	// CodeMissingAuthorization indicates the request carried no credentials.
	CodeMissingAuthorization Code = "TOKEN_003"

	// CodeInvalidAuthorization indicates the authorization header could not
	// be parsed as a bearer credential.
	CodeInvalidAuthorization Code = "TOKEN_004"

	// Key id errors (KID_xxx) - HTTP 401

	// CodeMissingKeyID indicates the kid header is absent.
	CodeMissingKeyID Code = "KID_001"

	// CodePathTraversal indicates a "." or ".." segment in the kid.
	CodePathTraversal Code = "KID_002"

	// CodeInvalidKeyIDFormat indicates an empty segment in the kid.
	CodeInvalidKeyIDFormat Code = "KID_003"

	// CodeInvalidKeyIDCharacter indicates a character outside the allow-list.
	CodeInvalidKeyIDCharacter Code = "KID_004"

	// Claims errors (CLAIM_xxx) - HTTP 401

	// CodeBlankIssuer indicates a missing or whitespace-only iss claim.
	CodeBlankIssuer Code = "CLAIM_001"

	// CodeUnauthorizedSubject indicates the subject is not in the allow-list.
	CodeUnauthorizedSubject Code = "CLAIM_002"

	// CodeKeyIDIssuerMismatch indicates the kid is outside the issuer's namespace.
	CodeKeyIDIssuerMismatch Code = "CLAIM_003"

	// CodeUnrecognisedAudience indicates the resource server is not an audience.
	CodeUnrecognisedAudience Code = "CLAIM_004"

	// CodeExpiryBeforeIssue indicates exp precedes iat.
	CodeExpiryBeforeIssue Code = "CLAIM_005"

	// CodeLifetimeExceeded indicates exp - iat exceeds the maximum lifetime.
	CodeLifetimeExceeded Code = "CLAIM_006"

	// CodeNotBeforeAfterExpiry indicates nbf is later than exp.
	CodeNotBeforeAfterExpiry Code = "CLAIM_007"

	// CodeNotBeforeBeforeIssue indicates nbf precedes iat.
	CodeNotBeforeBeforeIssue Code = "CLAIM_008"

	// CodeTokenExpired indicates exp is in the past beyond the leeway.
	CodeTokenExpired Code = "CLAIM_009"

	// CodeTokenNotYetValid indicates nbf is in the future beyond the leeway.
	CodeTokenNotYetValid Code = "CLAIM_010"

	// CodeInvalidTimeClaim indicates iat or exp is missing or not numeric.
	CodeInvalidTimeClaim Code = "CLAIM_011"

	// Key fetch errors (FETCH_xxx) - HTTP 502

	// CodeKeyFetch indicates the transport failed while fetching a key.
	CodeKeyFetch Code = "FETCH_001"

	// CodeKeyFetchStatus indicates the key server answered with a non-200 status.
	CodeKeyFetchStatus Code = "FETCH_002"

	// Configuration errors (CFG_xxx) - HTTP 500

	// CodeConfigMissing indicates a required configuration value is missing.
	CodeConfigMissing Code = "CFG_001"

	// CodeConfigInvalid indicates a configuration value is present but unusable.
	CodeConfigInvalid Code = "CFG_002"

	// Generation errors (GEN_xxx) - HTTP 500

	// CodeTokenGeneration indicates signing a new token failed.
	CodeTokenGeneration Code = "GEN_001"

	// Internal errors (INT_xxx) - HTTP 500

	// CodeInternal indicates a general internal error.
	CodeInternal Code = "INT_001"

	// CodeInternalCache indicates a key cache backend operation failed.
	CodeInternalCache Code = "INT_002"

	// Unavailable errors (UNAVAIL_xxx) - HTTP 503

	// CodeUnavailable indicates a general service unavailable error.
	CodeUnavailable Code = "UNAVAIL_001"

	// CodeUnavailableDependency indicates a dependent service is unavailable.
	CodeUnavailableDependency Code = "UNAVAIL_002"

	// Timeout errors (TIMEOUT_xxx) - HTTP 504

	// CodeTimeout indicates a general timeout error.
	CodeTimeout Code = "TIMEOUT_001"

	// CodeTimeoutCache indicates a key cache backend operation timed out.
	CodeTimeoutCache Code = "TIMEOUT_002"

	// CodeTimeoutKeyFetch indicates the caller's deadline expired while a
	// public key fetch was pending.
	CodeTimeoutKeyFetch Code = "TIMEOUT_003"
)

// String returns the string representation of the error code.
func (c Code) String() string {
	return string(c)
}

// Category returns the category prefix of the error code (e.g., "KID", "CLAIM").
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}
