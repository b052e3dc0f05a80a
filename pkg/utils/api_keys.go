package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
)

// GenerateRandomKey returns length random bytes, URL-safe base64 encoded.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateSecretKey returns a 32 character key, the size AES-256 expects
// from SECRET_KEY.
func GenerateSecretKey() (string, error) {
	return GenerateRandomKey(24)
}

// KeyMatches compares an API key against the configured one in constant
// time. An empty configured key never matches.
func KeyMatches(configured, given string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}
