package analyzer

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultPaddingPattern matches padding members such as pad, _pad2 or __pad
const DefaultPaddingPattern = `^_*pad\d*$`

var defaultPadding = regexp.MustCompile(DefaultPaddingPattern)

// Heuristics classifies fields by their short name. The rules are guesses
// about naming conventions, not schema facts, so they can be replaced
// from configuration.
type Heuristics struct {
	StringContains []string
	StringEquals   []string
	StringSuffixes []string
	FlagContains   []string
	padding        *regexp.Regexp
}

// DefaultHeuristics returns the built-in naming rules
func DefaultHeuristics() *Heuristics {
	return &Heuristics{
		StringContains: []string{"name", "title", "filepath", "string"},
		StringEquals:   []string{"dir", "file"},
		StringSuffixes: []string{"str"},
		FlagContains:   []string{"flag", "type"},
		padding:        defaultPadding,
	}
}

// SetPaddingPattern replaces the padding rule
func (h *Heuristics) SetPaddingPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("padding pattern %q: %w", pattern, err)
	}
	h.padding = re
	return nil
}

// IsPadding reports whether a field only exists for alignment
func (h *Heuristics) IsPadding(shortName string) bool {
	re := h.padding
	if re == nil {
		re = defaultPadding
	}
	return re.MatchString(shortName)
}

// IsStringLike reports whether a char block with binary content should
// still be shown as an escaped string
func (h *Heuristics) IsStringLike(shortName string) bool {
	name := strings.ToLower(shortName)
	for _, s := range h.StringContains {
		if strings.Contains(name, s) {
			return true
		}
	}
	for _, s := range h.StringEquals {
		if name == s {
			return true
		}
	}
	for _, s := range h.StringSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// IsFlagLike reports whether a scalar integer reads better as a bitmask
func (h *Heuristics) IsFlagLike(shortName string) bool {
	name := strings.ToLower(shortName)
	for _, s := range h.FlagContains {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}
