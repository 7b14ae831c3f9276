package client

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"net/url"
	"regexp"
	"strings"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// dataURIPattern matches a private key data URI and captures its kid and
// base64 payload.
var dataURIPattern = regexp.MustCompile(`^data:application/(?:pkcs8|x-pem-file);kid=([\w.\-+/]+);?(?:base64)?,([a-zA-Z0-9+/=]+)$`)

// CanonicalizePrivateKey turns a private key as supplied by deployment
// configuration into PEM.
//
// Keys are accepted either as PEM or as a (possibly URL-encoded) data URI
//
//	data:application/pkcs8;kid=<keyID>;base64,<payload>
//
// whose payload is base64 PEM, PKCS#8 DER or PKCS#1 DER. Anything that is
// not a data URI is returned unchanged. The kid embedded in the URI must
// equal keyID.
//
// Error codes returned:
//   - [sserr.CodeValidationFormat]: malformed data URI or undecodable payload
//   - [sserr.CodeValidation]: the URI's kid differs from keyID
func CanonicalizePrivateKey(keyID, raw string) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	if !strings.HasPrefix(decoded, "data:") {
		return raw, nil
	}

	match := dataURIPattern.FindStringSubmatch(decoded)
	if match == nil {
		return "", sserr.New(sserr.CodeValidationFormat, "client: malformed data uri")
	}
	if match[1] != keyID {
		return "", sserr.New(sserr.CodeValidation,
			"client: supplied key id does not match the one included in data uri").
			WithDetails(map[string]any{"kid": keyID, "data_uri_kid": match[1]})
	}

	payload, err := base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return "", sserr.Wrap(err, sserr.CodeValidationFormat, "client: malformed data uri")
	}

	text := string(payload)
	if strings.Contains(text, "BEGIN PRIVATE KEY") || strings.Contains(text, "BEGIN RSA PRIVATE KEY") {
		return strings.TrimSpace(text), nil
	}

	key, err := parseDERPrivateKey(payload)
	if err != nil {
		return "", sserr.Wrap(err, sserr.CodeValidationFormat,
			"client: data uri does not contain a usable private key")
	}
	block := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return strings.TrimSpace(string(block)), nil
}

func parseDERPrivateKey(der []byte) (*rsa.PrivateKey, error) {
	if parsed, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("pkcs8 payload is not an RSA key")
		}
		return key, nil
	}
	return x509.ParsePKCS1PrivateKey(der)
}
