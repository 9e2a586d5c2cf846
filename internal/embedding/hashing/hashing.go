// Package hashing is an offline embedding model based on feature hashing.
//
// Each lower-cased token and each pair of adjacent tokens is hashed into one
// of Dimension buckets with a hash-derived sign, and the result is scaled to
// unit length. Texts that share vocabulary end up close under cosine similarity.
package hashing

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/spigell/hh-matcher/internal/embedding"
)

const modelPrefix = "hashing-v1"

// ModelName is the name vectors of the given length are stored under. Vectors
// of another length belong to another model.
func ModelName(dimension int) string {
	return modelPrefix + "-" + strconv.Itoa(dimension)
}

// IsModelName reports whether name was produced by ModelName. The bare
// prefix used by older configs also counts.
func IsModelName(name string) bool {
	if name == modelPrefix {
		return true
	}
	rest, ok := strings.CutPrefix(name, modelPrefix+"-")
	if !ok {
		return false
	}
	dim, err := strconv.Atoi(rest)
	return err == nil && dim > 0
}

const bigramWeight = 0.5

// Model implements embedding.Model.
type Model struct {
	dimension int
}

// New returns a model producing vectors of the given length.
func New(dimension int) *Model {
	return &Model{dimension: dimension}
}

// Loader adapts New to embedding.Loader.
func Loader(dimension int) embedding.Loader {
	return func(context.Context) (embedding.Model, error) {
		return New(dimension), nil
	}
}

func (m *Model) Dimension() int { return m.dimension }

func (m *Model) Close() error { return nil }

func (m *Model) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *Model) vector(text string) []float32 {
	acc := make([]float64, m.dimension)
	tokens := Tokenize(text)
	for i, token := range tokens {
		m.add(acc, token, 1)
		if i > 0 {
			m.add(acc, tokens[i-1]+" "+token, bigramWeight)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}

	out := make([]float32, m.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

func (m *Model) add(acc []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum(nil)
	value := binary.BigEndian.Uint64(sum)

	bucket := int(value % uint64(m.dimension))
	if value>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// Tokenize splits lower-cased text into runs of letters, digits and the symbols
// that appear inside skill names such as "c++", "c#" and "node.js".
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '.' || r == '_')
	})

	tokens := fields[:0]
	for _, field := range fields {
		field = strings.Trim(field, ".")
		if field != "" {
			tokens = append(tokens, field)
		}
	}
	return tokens
}
