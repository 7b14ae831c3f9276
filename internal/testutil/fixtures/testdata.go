// Package fixtures provides shared identity constants for the ASAP test
// suites so that issuers, audiences and key ids are spelled the same way
// everywhere.
package fixtures

// Standard service identities.
const (
	// Issuer is the calling service.
	Issuer = "svc-a"

	// Audience is the resource server receiving the call.
	Audience = "svc-b"

	// KeyID is Issuer's signing key id.
	KeyID = Issuer + "/key1.pem"

	// AltIssuer is a second, unrelated service.
	AltIssuer = "svc-c"

	// AltKeyID is AltIssuer's signing key id.
	AltKeyID = AltIssuer + "/key1.pem"
)

// PublicKeyPath returns the key server path for issuer's public key,
// relative to the key server root.
func PublicKeyPath(issuer string) string {
	return issuer + "/public.pem"
}
