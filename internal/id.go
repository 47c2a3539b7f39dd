// Package internal holds helpers shared by the sinks.
package internal

import (
	"math/rand/v2"
	"strings"
)

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idLength   = 12
)

// NewID returns a random alphanumeric key for a stored batch or a produced message.
func NewID() string {
	var b strings.Builder
	b.Grow(idLength)
	for range idLength {
		b.WriteByte(idAlphabet[rand.IntN(len(idAlphabet))])
	}
	return b.String()
}
