// Package controlled classifies medication names against DEA schedule II-IV
// aliases. Names are split into words at punctuation, spaces and letter/digit
// boundaries. An alias matches a whole word run, or the start of a word when
// the alias is at least minPrefixRunes long ("AdderallXR"). There is no fuzzy
// matching.
package controlled

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minPrefixRunes keeps short aliases like "soma" from matching "somatropin".
const minPrefixRunes = 5

// Schedule is a DEA controlled-substance schedule.
type Schedule int

const (
	ScheduleII  Schedule = 2
	ScheduleIII Schedule = 3
	ScheduleIV  Schedule = 4
)

func (s Schedule) String() string {
	switch s {
	case ScheduleII:
		return "II"
	case ScheduleIII:
		return "III"
	case ScheduleIV:
		return "IV"
	default:
		return "unknown"
	}
}

// Registry is an immutable alias table. Safe for concurrent use.
type Registry struct {
	aliases  map[string]Schedule
	prefixes []string // single-word aliases usable as a word prefix, longest first
	maxWords int
}

// NewRegistry builds a registry from alias → schedule entries. Aliases are
// normalized the same way lookups are.
func NewRegistry(entries map[string]Schedule) *Registry {
	r := &Registry{aliases: make(map[string]Schedule, len(entries))}
	for alias, schedule := range entries {
		words := tokenize(alias)
		if len(words) == 0 {
			continue
		}
		r.aliases[strings.Join(words, " ")] = schedule
		if len(words) > r.maxWords {
			r.maxWords = len(words)
		}
		if len(words) == 1 && utf8.RuneCountInString(words[0]) >= minPrefixRunes {
			r.prefixes = append(r.prefixes, words[0])
		}
	}
	sort.Slice(r.prefixes, func(i, j int) bool {
		if len(r.prefixes[i]) != len(r.prefixes[j]) {
			return len(r.prefixes[i]) > len(r.prefixes[j])
		}
		return r.prefixes[i] < r.prefixes[j]
	})
	return r
}

// IsControlled reports whether name, or any contiguous word run inside it,
// is a registered alias. "Adderall XR 20mg", "Oxycodone5mg" and "AdderallXR"
// all match.
func (r *Registry) IsControlled(name string) bool {
	_, ok := r.Schedule(name)
	return ok
}

// Schedule returns the schedule of the first alias found in name. When an
// alias spans more words it wins over a shorter alias at the same position,
// and a whole-word match wins over a prefix match.
func (r *Registry) Schedule(name string) (Schedule, bool) {
	if r == nil || len(r.aliases) == 0 {
		return 0, false
	}
	words := tokenize(name)
	for start := range words {
		for n := min(r.maxWords, len(words)-start); n > 0; n-- {
			if s, ok := r.aliases[strings.Join(words[start:start+n], " ")]; ok {
				return s, true
			}
		}
		for _, alias := range r.prefixes {
			if strings.HasPrefix(words[start], alias) {
				return r.aliases[alias], true
			}
		}
	}
	return 0, false
}

// Len returns the number of registered aliases.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.aliases)
}

// tokenize lower-cases s and splits it into runs of letters or runs of
// digits, so "xanax0.5mg" yields xanax, 0, 5, mg.
func tokenize(s string) []string {
	var (
		words   []string
		current []rune
		digits  bool
	)
	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r):
			if digits {
				flush()
			}
			digits = false
			current = append(current, r)
		case unicode.IsDigit(r):
			if !digits {
				flush()
			}
			digits = true
			current = append(current, r)
		default:
			flush()
		}
	}
	flush()
	return words
}

var defaultRegistry = NewRegistry(scheduledAliases)

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// IsControlled checks name against the default registry.
func IsControlled(name string) bool { return defaultRegistry.IsControlled(name) }
