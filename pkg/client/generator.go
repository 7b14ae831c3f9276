// Package client issues ASAP tokens for outgoing service-to-service calls.
//
// A token asserts the caller's identity (iss, sub) to a resource server
// (aud) and is signed with RS256 using the caller's private key. The
// resource server fetches the matching public key from the key server by
// issuer, so KeyID must live in the issuer's namespace ("<iss>/<name>").
//
//	header, err := client.GenerateAuthorizationHeader(
//	    map[string]any{"iss": "checkout", "sub": "checkout", "aud": "billing"},
//	    client.Options{PrivateKey: os.Getenv("ASAP_PRIVATE_KEY"), KeyID: "checkout/key1.pem"},
//	)
//	req.Header.Set("Authorization", header)
package client

import (
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// DefaultExpiresIn is the token lifetime when Options.ExpiresIn is unset.
const DefaultExpiresIn = 30 * time.Second

// Options controls how a token is signed.
type Options struct {
	// PrivateKey is the RSA signing key: PEM, or a data URI accepted by
	// [CanonicalizePrivateKey]. Required.
	PrivateKey string

	// KeyID is written to the kid header. Required.
	KeyID string

	// ExpiresIn is the lifetime from iat to exp. Non-positive values
	// mean [DefaultExpiresIn].
	ExpiresIn time.Duration

	// NotBefore sets nbf. When nil the token has no nbf claim.
	NotBefore *time.Time

	// IssuedAt overrides iat, which defaults to the current time.
	IssuedAt *time.Time
}

// Generator signs tokens. The zero value is not usable; use
// [NewGenerator].
type Generator struct {
	now func() time.Time
}

// GeneratorOption configures a [Generator].
type GeneratorOption func(*Generator)

// WithClock sets the time source for iat.
func WithClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGenerator creates a Generator.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var defaultGenerator = NewGenerator()

// GenerateToken signs claims with the default [Generator].
func GenerateToken(claims map[string]any, opts Options) (string, error) {
	return defaultGenerator.GenerateToken(claims, opts)
}

// GenerateAuthorizationHeader returns "Bearer <token>" using the default
// [Generator].
func GenerateAuthorizationHeader(claims map[string]any, opts Options) (string, error) {
	return defaultGenerator.GenerateAuthorizationHeader(claims, opts)
}

// GenerateToken returns a signed token carrying claims.
//
// claims must contain string iss and sub and an aud that is a string or a
// list of strings. Other claims are passed through. jti, iat, exp and nbf
// are always set by the generator and any caller values are replaced.
//
// Error codes returned:
//   - [sserr.CodeConfigMissing]: PrivateKey or KeyID is empty
//   - [sserr.CodeValidationRequired]: iss, sub or aud is missing
//   - VAL_xxx from [CanonicalizePrivateKey]
//   - [sserr.CodeTokenGeneration]: the key cannot be parsed or signing failed
func (g *Generator) GenerateToken(claims map[string]any, opts Options) (string, error) {
	if opts.PrivateKey == "" {
		return "", sserr.ConfigMissing("privateKey")
	}
	if opts.KeyID == "" {
		return "", sserr.ConfigMissing("kid")
	}
	if !hasRequiredClaims(claims) {
		return "", sserr.New(sserr.CodeValidationRequired,
			`client: claims body must contain "iss", "sub" and "aud" fields`)
	}

	keyPEM, err := CanonicalizePrivateKey(opts.KeyID, opts.PrivateKey)
	if err != nil {
		return "", err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(keyPEM))
	if err != nil {
		return "", sserr.Wrap(err, sserr.CodeTokenGeneration, "client: error generating token")
	}

	issuedAt := g.now()
	if opts.IssuedAt != nil {
		issuedAt = *opts.IssuedAt
	}
	expiresIn := opts.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = DefaultExpiresIn
	}

	mc := make(jwt.MapClaims, len(claims)+4)
	maps.Copy(mc, claims)
	delete(mc, "nbf")
	mc["jti"] = uuid.NewString()
	mc["iat"] = issuedAt.Unix()
	mc["exp"] = issuedAt.Add(expiresIn).Unix()
	if opts.NotBefore != nil {
		mc["nbf"] = opts.NotBefore.Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, mc)
	token.Header["kid"] = opts.KeyID

	signed, err := token.SignedString(key)
	if err != nil {
		return "", sserr.Wrap(err, sserr.CodeTokenGeneration, "client: error generating token")
	}
	return signed, nil
}

// GenerateAuthorizationHeader returns "Bearer <token>" for use as an
// Authorization header value.
func (g *Generator) GenerateAuthorizationHeader(claims map[string]any, opts Options) (string, error) {
	token, err := g.GenerateToken(claims, opts)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

func hasRequiredClaims(claims map[string]any) bool {
	if _, ok := claims["iss"].(string); !ok {
		return false
	}
	if _, ok := claims["sub"].(string); !ok {
		return false
	}
	switch aud := claims["aud"].(type) {
	case string, []string:
		return true
	case []any:
		for _, a := range aud {
			if _, ok := a.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}
