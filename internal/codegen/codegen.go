// Package codegen produces confirmation codes.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Generator draws each character independently and uniformly from Alphabet.
type Generator struct {
	length   int
	alphabet []rune
}

func New(length int, alphabet string) (*Generator, error) {
	if length <= 0 {
		return nil, errors.New("code length must be positive")
	}
	runes := []rune(alphabet)
	if len(runes) == 0 {
		return nil, errors.New("code alphabet must not be empty")
	}
	return &Generator{length: length, alphabet: runes}, nil
}

// Generate returns a new code of the configured length.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.alphabet)))
	out := make([]rune, g.length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate confirmation code: %w", err)
		}
		out[i] = g.alphabet[n.Int64()]
	}
	return string(out), nil
}
