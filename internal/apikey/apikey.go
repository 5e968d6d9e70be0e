// Package apikey generates and hashes bearer API keys.
package apikey

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// Prefix marks every raw key issued by this service.
	Prefix = "et_"
	// PrefixLen is how many leading characters are stored in clear for lookup.
	PrefixLen = 8

	randomBytes = 20
)

// Key is a freshly generated key. Raw is shown once and never stored.
type Key struct {
	Raw    string
	Prefix string
	Hash   string
}

// Generate returns a new random key with its lookup prefix and bcrypt hash.
func Generate() (*Key, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	raw := Prefix + hex.EncodeToString(buf)

	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash key: %w", err)
	}

	return &Key{Raw: raw, Prefix: raw[:PrefixLen], Hash: string(hash)}, nil
}

// Valid reports whether raw has the shape of a key issued by Generate.
func Valid(raw string) bool {
	if !strings.HasPrefix(raw, Prefix) || len(raw) != len(Prefix)+2*randomBytes {
		return false
	}
	_, err := hex.DecodeString(raw[len(Prefix):])
	return err == nil
}
