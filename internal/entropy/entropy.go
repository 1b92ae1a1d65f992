// Package entropy scores client tokens before they are allowed to seed an
// identity. A token must be both long enough over its own alphabet and
// evenly spread across that alphabet.
package entropy

import (
	"fmt"
	"math"
)

const (
	// MinBits is the minimum bits estimate a token must reach.
	MinBits = 128.0
	// MinShannon is the minimum normalized Shannon entropy a token must reach.
	MinShannon = 0.7
	// alphabetSize is the log base for Shannon entropy: [0-9A-Za-z].
	alphabetSize = 62
)

// Result carries the metrics computed for a token
type Result struct {
	Shannon  float64 `json:"token_shannon_entropy"`
	Bits     float64 `json:"token_bits_entropy"`
	Accepted bool    `json:"-"`
}

// InsufficientError is returned for tokens that fail the entropy gate
type InsufficientError struct {
	Shannon float64
	Bits    float64
}

func (e *InsufficientError) Error() string {
	return fmt.Sprintf("insufficient token entropy: %.2f bits, shannon %.3f", e.Bits, e.Shannon)
}

// Err returns an *InsufficientError if the token was rejected, nil otherwise.
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	return &InsufficientError{Shannon: r.Shannon, Bits: r.Bits}
}

// Validate scores a token. It never fails; rejection is reported through
// Result.Accepted and Result.Err.
func Validate(token string) Result {
	counts := make(map[rune]int)
	n := 0
	for _, r := range token {
		counts[r]++
		n++
	}

	r := Result{
		Shannon: shannon(counts, n),
		Bits:    bits(len(counts), n),
	}
	r.Accepted = r.Bits >= MinBits && r.Shannon >= MinShannon
	return r
}

// shannon is the entropy of the symbol frequency distribution in base 62.
func shannon(counts map[rune]int, n int) float64 {
	if n == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / float64(n)
		h -= p * math.Log(p)
	}
	h /= math.Log(alphabetSize)
	// a single-symbol token can come out as -0
	if h <= 0 {
		return 0
	}
	return h
}

// bits is log2(distinct^length), evaluated as length*log2(distinct) so long
// tokens cannot overflow.
func bits(distinct, length int) float64 {
	if distinct == 0 || length == 0 {
		return 0
	}
	return float64(length) * math.Log2(float64(distinct))
}
