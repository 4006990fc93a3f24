// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package passreset

import (
	"crypto/rand"
	"fmt"
)

const (
	// CodeLength is the length of a reset code.
	CodeLength = 20
	// Alphabet holds the 62 symbols a reset code is drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// maxUnbiased is the largest multiple of len(Alphabet) that fits in a byte.
// Bytes at or above it are discarded so every symbol is equally likely.
const maxUnbiased = 256 - 256%len(Alphabet)

// GenerateCode returns a random reset code using crypto/rand.
func GenerateCode() (string, error) {
	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)

	for len(code) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			code = append(code, Alphabet[int(b)%len(Alphabet)])
			if len(code) == CodeLength {
				break
			}
		}
	}

	return string(code), nil
}
