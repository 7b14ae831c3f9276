package auth

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

const (
	// MaxLifetime is the longest permitted gap between iat and exp.
	MaxLifetime = time.Hour

	// DefaultLeeway is the clock skew tolerated by the wall-clock checks.
	DefaultLeeway = 30 * time.Second
)

// ClaimsValidator applies the claims rules to a decoded token. The zero
// value checks against an empty audience with no leeway; set Audience and
// Leeway before use.
type ClaimsValidator struct {
	// Audience is the resource server's own audience name. It must appear
	// in the token's aud claim.
	Audience string

	// IgnoreMaxLifeTime disables the [MaxLifetime] check.
	IgnoreMaxLifeTime bool

	// Leeway widens the expiry and not-before checks against the current
	// time. It does not affect the checks between claims.
	Leeway time.Duration

	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// Validate checks header and claims and returns claims unchanged on
// success. Rules run in a fixed order and the first violation is
// returned as a [sserr.IsClaims] error:
//
//  1. iss is present and not blank
//  2. the subject (sub, or iss when sub is absent) is in
//     authorizedSubjects, unless authorizedSubjects is empty
//  3. the kid header starts with "<iss>/"
//  4. aud (a string or a list) contains the audience
//  5. exp >= iat, exp-iat <= MaxLifetime, iat <= nbf <= exp
//  6. exp >= now-leeway and nbf <= now+leeway
//
// An absent nbf is treated as equal to iat.
func (cv ClaimsValidator) Validate(authorizedSubjects []string, header map[string]any, claims jwt.MapClaims) (jwt.MapClaims, error) {
	issuer, _ := claims["iss"].(string)
	if strings.TrimSpace(issuer) == "" {
		return nil, errBlankIssuer()
	}

	subject := issuer
	switch sub := claims["sub"].(type) {
	case nil:
	case string:
		if sub != "" {
			subject = sub
		}
	default:
		// A non-string sub names no subject and never falls back to iss.
		return nil, errUnauthorizedSubject(sub)
	}
	if len(authorizedSubjects) > 0 && !slices.Contains(authorizedSubjects, subject) {
		return nil, errUnauthorizedSubject(subject)
	}

	kid, _ := header["kid"].(string)
	if !strings.HasPrefix(kid, issuer+"/") {
		return nil, errKeyIDIssuerMismatch()
	}

	audience, err := claims.GetAudience()
	if err != nil || !slices.Contains([]string(audience), cv.Audience) {
		return nil, sserr.New(sserr.CodeUnrecognisedAudience, "auth: unrecognised audience")
	}

	if err := cv.validateTimes(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func (cv ClaimsValidator) validateTimes(claims jwt.MapClaims) error {
	issuedAt, ok := numericClaim(claims, "iat")
	if !ok {
		return errTimeClaim("iat")
	}
	expiry, ok := numericClaim(claims, "exp")
	if !ok {
		return errTimeClaim("exp")
	}
	notBefore := issuedAt
	if _, present := claims["nbf"]; present {
		if notBefore, ok = numericClaim(claims, "nbf"); !ok {
			return errTimeClaim("nbf")
		}
	}

	if expiry < issuedAt {
		return sserr.New(sserr.CodeExpiryBeforeIssue, "auth: expiry time set before issue time")
	}
	if !cv.IgnoreMaxLifeTime && expiry-issuedAt > MaxLifetime.Seconds() {
		return sserr.Newf(sserr.CodeLifetimeExceeded,
			"auth: token exceeds lifetime limit of %d seconds", int(MaxLifetime.Seconds()))
	}
	if notBefore > expiry {
		return sserr.New(sserr.CodeNotBeforeAfterExpiry,
			"auth: the expiry time must be after the not-before time")
	}
	if notBefore < issuedAt {
		return sserr.New(sserr.CodeNotBeforeBeforeIssue,
			"auth: the token must not be valid before it was issued")
	}

	now := float64(cv.now().Unix())
	leeway := cv.Leeway.Seconds()
	if expiry < now-leeway {
		return sserr.New(sserr.CodeTokenExpired, "auth: the token has already expired")
	}
	if notBefore > now+leeway {
		return sserr.New(sserr.CodeTokenNotYetValid, "auth: the token is not valid yet")
	}
	return nil
}

func (cv ClaimsValidator) now() time.Time {
	if cv.Now != nil {
		return cv.Now()
	}
	return time.Now()
}

// numericClaim reads a NumericDate claim as seconds since the epoch.
// Decoded tokens carry float64; claims built in Go may carry integers.
func numericClaim(claims jwt.MapClaims, name string) (float64, bool) {
	switch v := claims[name].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	default:
		return 0, false
	}
}

func errBlankIssuer() error {
	return sserr.New(sserr.CodeBlankIssuer, "auth: issuer cannot be blank")
}

func errTimeClaim(name string) error {
	return sserr.Newf(sserr.CodeInvalidTimeClaim,
		"auth: the %s claim must be a numeric date", name).WithDetail("claim", name)
}

func errUnauthorizedSubject(sub any) error {
	return sserr.New(sserr.CodeUnauthorizedSubject,
		"auth: unknown or unauthorized subject").WithDetail("sub", sub)
}

func errKeyIDIssuerMismatch() error {
	return sserr.New(sserr.CodeKeyIDIssuerMismatch,
		"auth: the issuer claim does not match the key id")
}
