package session

import (
	"crypto/rand"
	"io"
	"math/big"
	mathrand "math/rand/v2"
	"strconv"
)

const (
	DefaultRoomPrefix    = "room"
	DefaultRoomSuffixMax = 100
)

// CodeGenerator produces candidate room codes: a fixed prefix followed by
// a random integer in [0, max). Codes are provisional; the server decides
// the final one.
type CodeGenerator struct {
	prefix string
	max    int64
	reader io.Reader
}

// NewCodeGenerator returns a generator, using the defaults for an empty
// prefix or a non-positive max.
func NewCodeGenerator(prefix string, max int) *CodeGenerator {
	if prefix == "" {
		prefix = DefaultRoomPrefix
	}
	if max <= 0 {
		max = DefaultRoomSuffixMax
	}
	return &CodeGenerator{prefix: prefix, max: int64(max), reader: rand.Reader}
}

// Next returns a new candidate code.
func (g *CodeGenerator) Next() string {
	n, err := rand.Int(g.reader, big.NewInt(g.max))
	if err != nil {
		return g.prefix + strconv.FormatInt(mathrand.Int64N(g.max), 10)
	}
	return g.prefix + n.String()
}
