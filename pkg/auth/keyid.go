package auth

import (
	"regexp"
	"strings"

	sserr "github.com/StricklySoft/stricklysoft-asap/pkg/errors"
)

// keyIDPattern is the allow-list for kid characters.
var keyIDPattern = regexp.MustCompile(`^[\w.\-+/]*$`)

// ValidateKeyID checks the kid header of an unverified token and returns
// it. The kid is attacker controlled and is later interpolated into a key
// server URL, so it must pass every check before any I/O happens.
//
// Checks run in order and the first failure is returned:
//   - [sserr.CodeMissingKeyID]: kid absent, empty, or not a string
//   - [sserr.CodePathTraversal]: a "." or ".." path segment
//   - [sserr.CodeInvalidKeyIDFormat]: an empty path segment
//   - [sserr.CodeInvalidKeyIDCharacter]: a character outside [\w.\-+/]
func ValidateKeyID(header map[string]any) (string, error) {
	kid, _ := header["kid"].(string)
	if kid == "" {
		return "", sserr.New(sserr.CodeMissingKeyID, "auth: the kid header is required")
	}

	segments := strings.Split(kid, "/")
	for _, s := range segments {
		if s == "." || s == ".." {
			return "", sserr.New(sserr.CodePathTraversal,
				"auth: path traversal components not allowed in kid").WithDetail("kid", kid)
		}
	}
	for _, s := range segments {
		if s == "" {
			return "", sserr.New(sserr.CodeInvalidKeyIDFormat,
				"auth: invalid format of kid").WithDetail("kid", kid)
		}
	}

	if !keyIDPattern.MatchString(kid) {
		return "", sserr.New(sserr.CodeInvalidKeyIDCharacter,
			"auth: invalid character found in kid").WithDetail("kid", kid)
	}

	return kid, nil
}

// isKeyPath reports whether s can be placed in a key server URL: every
// "/" separated segment is non-empty, neither "." nor "..", and uses only
// kid characters. Any kid that passes [ValidateKeyID] is a key path, and
// so is each of its "/" prefixes.
func isKeyPath(s string) bool {
	if !keyIDPattern.MatchString(s) {
		return false
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
