package knowledge

import (
	"math"
	"math/bits"

	"github.com/hbollon/go-edlib"
)

// Similarity scores how well needle matches haystack on a 0-100 scale.
// Implementations must be deterministic.
type Similarity func(needle, haystack string) float64

// Ratio is the normalized insertion/deletion similarity of a and b:
// 200·LCS(a, b) / (|a| + |b|), measured in runes.
func Ratio(a, b string) float64 {
	return ratioRunes([]rune(a), []rune(b))
}

// PartialRatio aligns the shorter string against every same-length window
// of the longer one, plus the shorter edge windows, and keeps the best Ratio.
// A string contained in the other scores 100; typos and reordered words
// degrade the score gradually.
//
// Each window is scored with a bit-parallel LCS over the shorter string, so
// a window costs one pass over its runes instead of a full DP table.
func PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	m, n := len(short), len(long)
	if m == 0 {
		return 0
	}

	lcs := newBitLCS(short)
	best := 0.0
	consider := func(window []rune) bool {
		if r := 200 * float64(lcs.length(window)) / float64(m+len(window)); r > best {
			best = r
		}
		return best >= 100
	}
	for k := 1; k < m; k++ {
		if consider(long[:k]) || consider(long[n-k:]) {
			return 100
		}
	}
	for i := 0; i+m <= n; i++ {
		if consider(long[i : i+m]) {
			return 100
		}
	}
	return best
}

// bitLCS computes LCS lengths against a fixed pattern using one bit per
// pattern rune. The row buffer is reused between calls; not safe for
// concurrent use.
type bitLCS struct {
	m     int
	match map[rune][]uint64
	row   []uint64
	last  uint64 // valid bits in the final word
}

func newBitLCS(pattern []rune) *bitLCS {
	words := (len(pattern) + 63) / 64
	l := &bitLCS{
		m:     len(pattern),
		match: make(map[rune][]uint64),
		row:   make([]uint64, words),
		last:  ^uint64(0),
	}
	if rem := len(pattern) % 64; rem != 0 {
		l.last = 1<<uint(rem) - 1
	}
	for i, r := range pattern {
		mask, ok := l.match[r]
		if !ok {
			mask = make([]uint64, words)
			l.match[r] = mask
		}
		mask[i/64] |= 1 << uint(i%64)
	}
	return l
}

func (l *bitLCS) length(text []rune) int {
	for w := range l.row {
		l.row[w] = ^uint64(0)
	}
	for _, r := range text {
		mask, ok := l.match[r]
		if !ok {
			continue
		}
		var carry, borrow uint64
		for w, v := range l.row {
			u := v & mask[w]
			var sum, diff uint64
			sum, carry = bits.Add64(v, u, carry)
			diff, borrow = bits.Sub64(v, u, borrow)
			l.row[w] = sum | diff
		}
	}
	common := 0
	last := len(l.row) - 1
	for w, v := range l.row {
		zeros := ^v
		if w == last {
			zeros &= l.last
		}
		common += bits.OnesCount64(zeros)
	}
	return common
}

func ratioRunes(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 100
	}
	common := edlib.LCS(string(a), string(b))
	return 200 * float64(common) / float64(total)
}

// roundScore keeps two decimals so equal matches compare equal.
func roundScore(score float64) float64 {
	return math.Round(score*100) / 100
}
