// Package keyfetch retrieves issuer public keys from a key server, serving
// repeat requests from a [keycache.Store].
//
// A [Fetcher] consults its store first. On a miss it issues
//
//	GET <url>
//	Accept: application/x-pem-file
//
// bounded by the fetch timeout, and stores the response body on a 200.
// Bodies larger than 1 MiB are rejected and never cached.
// Concurrent misses for the same URL share a single request. Any other
// status, or a transport failure, is reported as a key fetch error
// ([sserr.IsKeyFetch]) naming the URL and the status or cause.
package keyfetch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
	"github.com/StricklySoft/stricklysoft-asap/pkg/keycache"
)

const tracerName = "github.com/StricklySoft/stricklysoft-asap/pkg/keyfetch"

const (
	// DefaultTimeout bounds a single key server request.
	DefaultTimeout = 2 * time.Minute

	// AcceptPEM is the media type requested from the key server.
	AcceptPEM = "application/x-pem-file"

	// maxKeySize caps the key server response body.
	maxKeySize = 1 << 20
)

// HTTPClient abstracts HTTP request execution. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves public keys through a cache. It is safe for
// concurrent use.
type Fetcher struct {
	store   keycache.Store
	client  HTTPClient
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
	group   singleflight.Group
}

// Option configures a [Fetcher].
type Option func(*Fetcher)

// WithHTTPClient replaces the default client, an *http.Client whose
// transport is instrumented with otelhttp.
func WithHTTPClient(client HTTPClient) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout overrides [DefaultTimeout]. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithLogger sets the logger used for cache backend warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithTracerProvider sets the provider used for fetch spans. The global
// provider is used by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Fetcher) {
		if tp != nil {
			f.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates a Fetcher backed by store.
func New(store keycache.Store, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:   store,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return f
}

// FetchKey returns the PEM-encoded public key served at url.
//
// If ctx ends while the request is pending, FetchKey returns immediately:
// a deadline yields [sserr.CodeTimeoutKeyFetch], a cancellation yields
// [sserr.CodeKeyFetch]. The request itself continues in the background,
// bounded by the fetch timeout, and caches its result for later callers.
func (f *Fetcher) FetchKey(ctx context.Context, url string) (string, error) {
	ctx, span := f.tracer.Start(ctx, "keyfetch.FetchKey")
	defer span.End()

	key := keycache.CacheKey(url)

	if blob, ok := f.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("keyfetch.cache_hit", true))
		return blob, nil
	}
	span.SetAttributes(attribute.Bool("keyfetch.cache_hit", false))

	if ctx.Err() != nil {
		err := contextError(ctx, url)
		recordError(span, err)
		return "", err
	}

	detached := context.WithoutCancel(ctx)
	results := f.group.DoChan(key, func() (any, error) {
		return f.fetchAndStore(detached, url, key)
	})

	select {
	case res := <-results:
		if res.Err != nil {
			recordError(span, res.Err)
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		err := contextError(ctx, url)
		recordError(span, err)
		return "", err
	}
}

// Flush empties the underlying store, forcing the next FetchKey for every
// URL to go to the network.
func (f *Fetcher) Flush(ctx context.Context) error {
	return f.store.FlushAll(ctx)
}

func (f *Fetcher) lookup(ctx context.Context, key string) (string, bool) {
	blob, ok, err := f.store.Get(ctx, key)
	if err != nil {
		f.logger.WarnContext(ctx, "keyfetch: key cache read failed, fetching from key server",
			"cache_key", key,
			"error", err,
		)
		return "", false
	}
	return blob, ok
}

func (f *Fetcher) fetchAndStore(ctx context.Context, url, key string) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	blob, err := f.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.store.Set(ctx, key, blob); err != nil {
		f.logger.WarnContext(ctx, "keyfetch: key cache write failed",
			"cache_key", key,
			"error", err,
		)
	}
	return blob, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", transportError(url, err)
	}
	req.Header.Set("Accept", AcceptPEM)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", transportError(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", sserr.Newf(sserr.CodeKeyFetchStatus,
			"keyfetch: unable to retrieve public key from %q: expected status code 200, got %d",
			url, resp.StatusCode).
			WithDetails(map[string]any{"url": url, "status_code": resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySize+1))
	if err != nil {
		return "", transportError(url, err)
	}
	if len(body) > maxKeySize {
		return "", sserr.Newf(sserr.CodeKeyFetch,
			"keyfetch: unable to retrieve public key from %q: response exceeds %d bytes",
			url, maxKeySize).
			WithDetails(map[string]any{"url": url, "max_bytes": maxKeySize})
	}
	return string(body), nil
}

func transportError(url string, err error) error {
	return sserr.Wrapf(err, sserr.CodeKeyFetch,
		"keyfetch: unable to retrieve public key from %q", url).
		WithDetail("url", url)
}

func contextError(ctx context.Context, url string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return sserr.Wrapf(ctx.Err(), sserr.CodeTimeoutKeyFetch,
			"keyfetch: timed out waiting for public key from %q", url).
			WithDetail("url", url)
	}
	return transportError(url, ctx.Err())
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
