// Package search holds the scoring primitives of the hybrid candidate retriever:
// dense vector similarity, keyword overlap and their fusion into one relevance score.
package search

import (
	"math"
	"strings"
	"unicode"
)

// DefaultVectorWeight is the share of the vector similarity in the fused score.
const DefaultVectorWeight = 0.7

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "to": {}, "in": {}, "on": {}, "for": {},
	"with": {}, "or": {}, "is": {}, "are": {}, "be": {}, "we": {}, "you": {}, "our": {},
	"job": {}, "title": {}, "description": {}, "client": {},
}

// Cosine returns the cosine similarity of two vectors clamped to [0, 1].
// Vectors of different length or zero norm have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// Tokenize lowercases text and splits it into distinct terms, keeping characters
// that matter in technology names ("c++", "c#", "node.js").
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})

	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, ".")
		if field == "" {
			continue
		}
		if _, stop := stopWords[field]; stop {
			continue
		}
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		tokens = append(tokens, field)
	}
	return tokens
}

// KeywordScore is the share of query terms present in the document terms.
func KeywordScore(queryTerms []string, documentText string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	document := make(map[string]struct{})
	for _, term := range Tokenize(documentText) {
		document[term] = struct{}{}
	}

	hits := 0
	for _, term := range queryTerms {
		if _, ok := document[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

// Fuse combines vector and keyword relevance. Without keyword terms the vector
// similarity is returned unchanged.
func Fuse(vectorScore, keywordScore float64, hasKeywords bool, vectorWeight float64) float64 {
	if !hasKeywords {
		return clamp01(vectorScore)
	}
	return clamp01(vectorWeight*vectorScore + (1-vectorWeight)*keywordScore)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
