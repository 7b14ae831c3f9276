package auth

import (
	"context"
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/StricklySoft/stricklysoft-asap/internal/testutil/fixtures"
)

// ---------------------------------------------------------------------------
// Test doubles shared across the package tests
// ---------------------------------------------------------------------------

// stubValidator implements TokenValidator for middleware tests.
type stubValidator struct {
	claims jwt.MapClaims
	err    error

	mu       sync.Mutex
	token    string
	subjects []string
}

func (s *stubValidator) Validate(_ context.Context, token string, authorizedSubjects []string) (jwt.MapClaims, error) {
	s.mu.Lock()
	s.token = token
	s.subjects = authorizedSubjects
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.claims, nil
}

func (s *stubValidator) lastToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// spyFetcher implements KeyFetcher and records every requested URL.
type spyFetcher struct {
	pem string
	err error

	mu   sync.Mutex
	urls []string
}

func (s *spyFetcher) FetchKey(_ context.Context, url string) (string, error) {
	s.mu.Lock()
	s.urls = append(s.urls, url)
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.pem, nil
}

func (s *spyFetcher) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.urls...)
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

// testNow is the fixed wall clock used by time-sensitive tests.
var testNow = time.Unix(1_700_000_000, 0)

func fixedClock() time.Time { return testNow }

// validClaims returns claims that pass every rule at testNow for the
// fixture issuer and audience.
func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss": fixtures.Issuer,
		"aud": fixtures.Audience,
		"iat": testNow.Unix(),
		"exp": testNow.Unix() + 30,
		"jti": "test-jti",
	}
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		token.Header["kid"] = kid
	}
	signed, err := token.SignedString(key)
	require.NoError(t, err, "failed to sign RS256 token")
	return signed
}
