package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// KeyPair is an RSA key pair with both halves PEM-encoded.
type KeyPair struct {
	Private    *rsa.PrivateKey
	PrivatePEM string // PKCS#1 "RSA PRIVATE KEY"
	PublicPEM  string // PKIX "PUBLIC KEY"
	PKCS8DER   []byte
}

// GenerateRSAKeyPair generates a fresh 2048-bit RSA key pair.
func GenerateRSAKeyPair(t testing.TB) KeyPair {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err, "failed to generate RSA key")

	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	return KeyPair{
		Private: priv,
		PrivatePEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(priv),
		})),
		PublicPEM: string(pem.EncodeToMemory(&pem.Block{
			Type:  "PUBLIC KEY",
			Bytes: pubDER,
		})),
		PKCS8DER: pkcs8,
	}
}

// KeyServer is an httptest key server. Keys are registered by path
// relative to the server root (e.g. "svc-a/public.pem"); unknown paths
// return 404. It counts requests and records the last Accept header.
type KeyServer struct {
	*httptest.Server

	mu         sync.Mutex
	keys       map[string]string
	status     int
	lastAccept string
	calls      atomic.Int64
}

// NewKeyServer starts a KeyServer that is closed on test cleanup.
func NewKeyServer(t testing.TB) *KeyServer {
	t.Helper()
	ks := &KeyServer{keys: make(map[string]string)}
	ks.Server = httptest.NewServer(http.HandlerFunc(ks.serve))
	t.Cleanup(ks.Close)
	return ks
}

func (ks *KeyServer) serve(w http.ResponseWriter, r *http.Request) {
	ks.calls.Add(1)

	ks.mu.Lock()
	ks.lastAccept = r.Header.Get("Accept")
	status := ks.status
	body, ok := ks.keys[strings.TrimPrefix(r.URL.Path, "/")]
	ks.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/x-pem-file")
	_, _ = w.Write([]byte(body))
}

// AddKey serves pem at path.
func (ks *KeyServer) AddKey(path, pem string) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.keys[strings.TrimPrefix(path, "/")] = pem
}

// ForceStatus makes every request answer with status and an empty body.
// Zero restores normal behavior.
func (ks *KeyServer) ForceStatus(status int) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.status = status
}

// Calls returns the number of requests served so far.
func (ks *KeyServer) Calls() int64 {
	return ks.calls.Load()
}

// LastAccept returns the Accept header of the most recent request.
func (ks *KeyServer) LastAccept() string {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	return ks.lastAccept
}
