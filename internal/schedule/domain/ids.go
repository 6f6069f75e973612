package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	shareIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	ShareIDLength   = 12

	ownerSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	ownerSuffixLength   = 9
)

// NewShareID returns a 12-character alphanumeric token, uniform per
// character. Uniqueness is not checked here; the remote share_id constraint
// is the only guard.
func NewShareID() (string, error) {
	return randomString(shareIDAlphabet, ShareIDLength)
}

// NewOwnerID generates a per-device owner identifier, e.g.
// "owner_1760601600000_k3j9x0a1b".
func NewOwnerID(now time.Time) (string, error) {
	suffix, err := randomString(ownerSuffixAlphabet, ownerSuffixLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("owner_%d_%s", now.UnixMilli(), suffix), nil
}

// NewID generates an identifier for projects and tasks.
func NewID() string {
	return uuid.New().String()
}

// IsShareID reports whether s has the shape of a generated share id.
func IsShareID(s string) bool {
	if len(s) != ShareIDLength {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune(shareIDAlphabet, r) {
			return false
		}
	}
	return true
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String(), nil
}
