package config

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// hashAuthSecret replaces a site's plaintext authSecret (as written by an
// operator into lwfm.yaml) with its bcrypt hash, so the resolved Config
// never holds the plaintext credential in memory past config load. A
// remote site's RemoteJobEvent poll that needs to present a bearer
// credential reads it from the site's own venv/props, not from here;
// this hash exists so lwfmd can authenticate an *inbound* callback from
// a site that pushes status back with a shared secret.
func hashAuthSecret(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash auth secret: %w", err)
	}
	return string(hashed), nil
}

// VerifySiteSecret reports whether candidate matches the hashed
// authSecret configured for siteName. A site with no configured secret
// rejects every candidate, including the empty string.
func (c *Config) VerifySiteSecret(siteName, candidate string) bool {
	desc, ok := c.Sites[siteName]
	if !ok || desc.AuthSecret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(desc.AuthSecret), []byte(candidate)) == nil
}
