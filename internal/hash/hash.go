// Package hash fingerprints verification results with a server-side secret.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/awnumar/memguard"
)

// ErrEmptySecret is returned when no hashing secret is configured
var ErrEmptySecret = errors.New("hash secret is empty")

// Hasher computes verification hashes. The secret stays sealed in a memguard
// enclave and is only decrypted for the duration of a digest.
type Hasher struct {
	secret *memguard.Enclave
}

// New seals secret into an enclave
func New(secret string) (*Hasher, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	enclave := memguard.NewEnclave([]byte(secret))
	if enclave == nil {
		return nil, ErrEmptySecret
	}
	return &Hasher{secret: enclave}, nil
}

// Hash digests "username:skills:secret" with SHA-256, where skills are
// lower-cased, sorted and comma-joined, so skill order and case never matter
func (h *Hasher) Hash(username string, verifiedSkills []string) (string, error) {
	normalized := make([]string, len(verifiedSkills))
	for i, s := range verifiedSkills {
		normalized[i] = strings.ToLower(s)
	}
	sort.Strings(normalized)

	key, err := h.secret.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open hash secret: %w", err)
	}
	defer key.Destroy()

	digest := sha256.New()
	digest.Write([]byte(username + ":" + strings.Join(normalized, ",") + ":"))
	digest.Write(key.Bytes())
	return hex.EncodeToString(digest.Sum(nil)), nil
}
