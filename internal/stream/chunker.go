package stream

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
)

// ErrInvalidChunkSize is returned for a size range with min < 1 or min > max.
var ErrInvalidChunkSize = errors.New("invalid chunk size")

// Chunker splits a payload into fragments the way a model emits tokens:
// variable length, preferring to end on a natural boundary.
type Chunker struct {
	min, max int
}

// NewChunker returns a Chunker producing fragments of at most maxSize runes
// and, except for the last one, at least minSize runes.
func NewChunker(minSize, maxSize int) (*Chunker, error) {
	if minSize < 1 || minSize > maxSize {
		return nil, fmt.Errorf("%w: min %d, max %d", ErrInvalidChunkSize, minSize, maxSize)
	}
	return &Chunker{min: minSize, max: maxSize}, nil
}

// Chunk yields the fragments of payload in order. A fragment ends when it
// reaches the maximum size, or when it has reached the minimum size and its
// last rune is a boundary. Whatever remains at the end is yielded as is.
func (c *Chunker) Chunk(payload string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var b strings.Builder
		n := 0
		for _, r := range payload {
			b.WriteRune(r)
			n++
			if n >= c.max || (n >= c.min && isBoundary(r)) {
				if !yield(b.String()) {
					return
				}
				b.Reset()
				n = 0
			}
		}
		if n > 0 {
			yield(b.String())
		}
	}
}

// Split collects every fragment of payload.
func (c *Chunker) Split(payload string) []string {
	return slices.Collect(c.Chunk(payload))
}

func isBoundary(r rune) bool {
	switch r {
	case '\n', ',', '}', ']':
		return true
	}
	return false
}
