// Package pattern provides the bank pattern registry used to parse
// bank-specific notification formats.
package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/harishnv/smartspend/internal/model"
)

// CompiledPattern holds a bank pattern with its compiled sender matcher.
type CompiledPattern struct {
	senderRegex *regexp.Regexp
	model.BankPattern
}

// Registry resolves message senders to registered bank patterns. Patterns
// are checked in registration order; the first match wins.
type Registry struct {
	patterns []CompiledPattern
}

// NewRegistry compiles the given patterns into a registry. A pattern with an
// empty sender matcher is rejected.
func NewRegistry(patterns []model.BankPattern) (*Registry, error) {
	compiled := make([]CompiledPattern, 0, len(patterns))

	for _, p := range patterns {
		if !p.Valid() {
			return nil, fmt.Errorf("pattern %q has an empty sender matcher", p.Name)
		}

		regexStr := p.SenderMatch
		if !strings.HasPrefix(regexStr, "(?i)") {
			regexStr = "(?i)" + regexStr // Case-insensitive by default
		}

		regex, err := regexp.Compile(regexStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile sender matcher for %q: %w", p.Name, err)
		}

		compiled = append(compiled, CompiledPattern{
			BankPattern: p,
			senderRegex: regex,
		})
	}

	return &Registry{patterns: compiled}, nil
}

// Find returns the first registered pattern whose sender matcher matches the
// given sender token, or nil when no bank is registered for it. No match is
// a common, valid outcome.
func (r *Registry) Find(sender string) *model.BankPattern {
	for i := range r.patterns {
		if r.patterns[i].senderRegex.MatchString(sender) {
			return &r.patterns[i].BankPattern
		}
	}
	return nil
}

// FindByName returns the registered pattern with the given bank name, or
// nil. Used when re-deriving classification for a stored transaction, which
// carries the bank name rather than the original sender token.
func (r *Registry) FindByName(name string) *model.BankPattern {
	if name == "" {
		return nil
	}
	for i := range r.patterns {
		if r.patterns[i].Name == name {
			return &r.patterns[i].BankPattern
		}
	}
	return nil
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	return len(r.patterns)
}
