package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

const (
	PublicIDLength   = 8
	publicIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewPublicID returns 8 uppercase alphanumerics. Bytes above the largest
// multiple of the alphabet size are discarded so every symbol is equally likely.
func NewPublicID() (string, error) {
	const limit = 256 - 256%len(publicIDAlphabet)
	var sb strings.Builder
	sb.Grow(PublicIDLength)
	buf := make([]byte, PublicIDLength*2)
	for sb.Len() < PublicIDLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generate public id: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			sb.WriteByte(publicIDAlphabet[int(b)%len(publicIDAlphabet)])
			if sb.Len() == PublicIDLength {
				break
			}
		}
	}
	return sb.String(), nil
}

// IsPublicID reports whether s has the shape NewPublicID produces.
func IsPublicID(s string) bool {
	if len(s) != PublicIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(publicIDAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}
