package links

import (
	"crypto/rand"
)

const base62Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// DefaultIDLength matches the 8-character ids the public short URLs use.
const DefaultIDLength = 8

type CryptoIDGenerator struct{}

func NewCryptoIDGenerator() *CryptoIDGenerator { return &CryptoIDGenerator{} }

func (g *CryptoIDGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultIDLength
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i := range buf {
		out[i] = base62Alphabet[int(buf[i])%len(base62Alphabet)]
	}

	return string(out), nil
}
