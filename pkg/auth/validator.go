// Package auth validates ASAP bearer tokens on the receiving side of a
// service-to-service call.
//
// A [Validator] decodes the token, checks its kid header, fetches the
// issuer's public key from the key server (through a cache), verifies the
// signature, and finally applies the claims rules in [ClaimsValidator].
// The first failing step ends validation and its error is returned
// unchanged. Every error is an [*sserr.Error]; use the category checks in
// the errors package (IsToken, IsKeyID, IsClaims, IsKeyFetch) to branch.
//
// # Usage
//
//	cfg := auth.DefaultValidatorConfig()
//	cfg.PublicKeyBaseURL = "https://keys.internal/"
//	cfg.ResourceServerAudience = "billing"
//
//	validator, err := auth.NewValidator(cfg)
//	if err != nil {
//	    return err
//	}
//	defer validator.Close()
//
//	claims, err := validator.Validate(ctx, token, []string{"checkout"})
//
// [HTTPMiddleware] and the gRPC interceptors wrap a [TokenValidator] for
// use in servers.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
	"github.com/StricklySoft/stricklysoft-asap/pkg/keycache"
	"github.com/StricklySoft/stricklysoft-asap/pkg/keyfetch"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/StricklySoft/stricklysoft-asap/pkg/auth"

// PublicKeyFile is the file name of every issuer's key on the key server.
const PublicKeyFile = "public.pem"

// validMethods are the asymmetric algorithms a token may be signed with.
var validMethods = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
}

// TokenValidator validates a bearer token and returns its claims.
// [*Validator] implements it; servers depend on the interface so tests can
// substitute a stub.
type TokenValidator interface {
	Validate(ctx context.Context, token string, authorizedSubjects []string) (jwt.MapClaims, error)
}

// KeyFetcher returns the PEM public key served at a URL. [*keyfetch.Fetcher]
// implements it.
type KeyFetcher interface {
	FetchKey(ctx context.Context, url string) (string, error)
}

type validatorOptions struct {
	fetcher    KeyFetcher
	store      keycache.Store
	now        func() time.Time
	httpClient keyfetch.HTTPClient
	logger     *slog.Logger
	tp         trace.TracerProvider
}

// Option configures a [Validator].
type Option func(*validatorOptions)

// WithKeyFetcher replaces the default cached key fetcher. The key cache
// and HTTP client options are ignored when it is set.
func WithKeyFetcher(f KeyFetcher) Option {
	return func(o *validatorOptions) { o.fetcher = f }
}

// WithKeyCache sets the store the default fetcher caches keys in, for
// example a [keycache.Redis] shared by several replicas. The caller owns
// the store.
func WithKeyCache(store keycache.Store) Option {
	return func(o *validatorOptions) { o.store = store }
}

// WithClock sets the time source for the expiry and not-before checks.
func WithClock(now func() time.Time) Option {
	return func(o *validatorOptions) { o.now = now }
}

// WithHTTPClient sets the client the default fetcher uses.
func WithHTTPClient(client keyfetch.HTTPClient) Option {
	return func(o *validatorOptions) { o.httpClient = client }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *validatorOptions) { o.logger = logger }
}

// WithTracerProvider sets the provider for validation and fetch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *validatorOptions) { o.tp = tp }
}

// Validator is the server-side token validator. It is safe for
// concurrent use; the only shared mutable state is the key cache.
type Validator struct {
	baseURL string
	claims  ClaimsValidator
	fetcher KeyFetcher
	parser  *jwt.Parser
	tracer  trace.Tracer
	logger  *slog.Logger

	// owned is the cache created by NewValidator, released by Close.
	owned *keycache.Memory
}

var _ TokenValidator = (*Validator)(nil)

// NewValidator checks cfg and builds a Validator. Configuration errors
// ([sserr.IsConfig]) are returned before any network activity.
func NewValidator(cfg ValidatorConfig, opts ...Option) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := validatorOptions{logger: slog.Default(), tp: otel.GetTracerProvider()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.tp == nil {
		o.tp = otel.GetTracerProvider()
	}

	v := &Validator{
		baseURL: strings.TrimRight(cfg.PublicKeyBaseURL, "/"),
		claims: ClaimsValidator{
			Audience:          cfg.ResourceServerAudience,
			IgnoreMaxLifeTime: cfg.IgnoreMaxLifeTime,
			Leeway:            cfg.Leeway(),
			Now:               o.now,
		},
		fetcher: o.fetcher,
		parser:  jwt.NewParser(jwt.WithValidMethods(validMethods), jwt.WithoutClaimsValidation()),
		tracer:  o.tp.Tracer(tracerName),
		logger:  o.logger,
	}

	if v.fetcher == nil {
		store := o.store
		if store == nil {
			v.owned = keycache.NewMemory(
				keycache.WithTTL(cfg.KeyCacheTTL),
				keycache.WithSweepInterval(cfg.KeyCacheSweepInterval),
			)
			store = v.owned
		}
		v.fetcher = keyfetch.New(store,
			keyfetch.WithTimeout(cfg.KeyFetchTimeout),
			keyfetch.WithHTTPClient(o.httpClient),
			keyfetch.WithLogger(o.logger),
			keyfetch.WithTracerProvider(o.tp),
		)
	}

	return v, nil
}

// Close stops the key cache created by NewValidator, if any. Injected
// fetchers and stores are left to their owners.
func (v *Validator) Close() error {
	if v.owned != nil {
		return v.owned.Close()
	}
	return nil
}

// KeyURL returns the URL the public key of issuer is fetched from.
func (v *Validator) KeyURL(issuer string) string {
	return fmt.Sprintf("%s/%s/%s", v.baseURL, url.PathEscape(issuer), PublicKeyFile)
}

// Validate runs the full validation pipeline on token and returns its
// claims. An empty authorizedSubjects accepts any subject.
//
// Error codes returned:
//   - [sserr.CodeMalformedToken]: the token cannot be decoded
//   - KID_xxx: the kid header is missing or unsafe
//   - FETCH_xxx or [sserr.CodeTimeoutKeyFetch]: the public key is unavailable
//   - [sserr.CodeInvalidSignature]: the signature does not verify
//   - CLAIM_xxx: a claims rule failed. An issuer that is not a safe key
//     path fails with [sserr.CodeKeyIDIssuerMismatch] before any fetch.
func (v *Validator) Validate(ctx context.Context, token string, authorizedSubjects []string) (jwt.MapClaims, error) {
	ctx, span := v.tracer.Start(ctx, "auth.Validate")
	defer span.End()

	claims, err := v.validate(ctx, token, authorizedSubjects)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("auth.error_code", sserr.GetCode(err).String()))
		v.logger.DebugContext(ctx, "auth: token rejected", "error", err)
		return nil, err
	}

	iss, _ := claims["iss"].(string)
	span.SetAttributes(attribute.String("auth.issuer", iss))
	span.SetStatus(codes.Ok, "")
	return claims, nil
}

func (v *Validator) validate(ctx context.Context, token string, authorizedSubjects []string) (jwt.MapClaims, error) {
	unverified, _, err := v.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeMalformedToken, "auth: token could not be parsed")
	}

	if _, err := ValidateKeyID(unverified.Header); err != nil {
		return nil, err
	}

	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, sserr.New(sserr.CodeMalformedToken, "auth: token could not be parsed")
	}
	issuer, _ := claims["iss"].(string)
	if strings.TrimSpace(issuer) == "" {
		return nil, errBlankIssuer()
	}
	// The issuer becomes a URL path segment. One that is not a key path
	// can never prefix the validated kid, so it fails the binding now.
	if !isKeyPath(issuer) {
		return nil, errKeyIDIssuerMismatch()
	}

	keyURL := v.KeyURL(issuer)
	pemKey, err := v.fetcher.FetchKey(ctx, keyURL)
	if err != nil {
		return nil, err
	}

	publicKey, err := parsePublicKey(pemKey)
	if err != nil {
		return nil, sserr.Wrapf(err, sserr.CodeInvalidSignature,
			"auth: public key served at %q is not a usable PEM key", keyURL)
	}

	verified, err := v.parser.ParseWithClaims(token, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return publicKey, nil
	})
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeInvalidSignature, "auth: invalid signature")
	}

	verifiedClaims, ok := verified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, sserr.New(sserr.CodeMalformedToken, "auth: token could not be parsed")
	}
	return v.claims.Validate(authorizedSubjects, verified.Header, verifiedClaims)
}

// parsePublicKey accepts an RSA or ECDSA public key in PEM form.
func parsePublicKey(pemKey string) (any, error) {
	rsaKey, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err == nil {
		return rsaKey, nil
	}
	ecKey, ecErr := jwt.ParseECPublicKeyFromPEM([]byte(pemKey))
	if ecErr == nil {
		return ecKey, nil
	}
	return nil, err
}
