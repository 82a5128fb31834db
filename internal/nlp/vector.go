package nlp

import "math"

// Vector is an L2-normalized term-frequency vector. It is either empty or
// has a Euclidean norm of 1.
type Vector map[string]float64

// NewVector counts tokens and scales the counts to unit length.
func NewVector(tokens []string) Vector {
	if len(tokens) == 0 {
		return Vector{}
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var sumSquares float64
	for _, c := range counts {
		sumSquares += c * c
	}
	norm := math.Sqrt(sumSquares)
	vec := make(Vector, len(counts))
	for token, c := range counts {
		vec[token] = c / norm
	}
	return vec
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	var sumSquares float64
	for _, w := range v {
		sumSquares += w * w
	}
	return math.Sqrt(sumSquares)
}

// Cosine returns the cosine similarity of two normalized vectors, which is
// their dot product. It walks the smaller map.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for token, w := range a {
		if other, ok := b[token]; ok {
			dot += w * other
		}
	}
	return dot
}
