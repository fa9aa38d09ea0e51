package contacts

import (
	"fmt"
	"strings"
)

// Rule selects how phone strings are canonicalized into matching keys.
type Rule string

const (
	// RuleLast10 keeps the last 10 characters so that country-code prefixes
	// on either side do not prevent a match.
	RuleLast10 Rule = "last10"
	// RuleCountryPrefix prepends CountryCode to numbers that are exactly 10
	// characters long and leaves everything else as stripped.
	RuleCountryPrefix Rule = "country-prefix"
)

// KeyLength is the suffix length kept by RuleLast10.
const KeyLength = 10

// Normalizer binds a canonicalization rule to its parameters.
type Normalizer struct {
	Rule        Rule
	CountryCode string
}

// DefaultNormalizer uses RuleLast10.
var DefaultNormalizer = Normalizer{Rule: RuleLast10}

// NewNormalizer validates the rule name coming from configuration.
func NewNormalizer(rule string, countryCode string) (Normalizer, error) {
	switch Rule(rule) {
	case RuleLast10:
		return Normalizer{Rule: RuleLast10}, nil
	case RuleCountryPrefix:
		cc := strings.TrimSpace(strings.TrimPrefix(countryCode, "+"))
		if cc == "" {
			return Normalizer{}, fmt.Errorf("country code is required for rule %q", rule)
		}
		return Normalizer{Rule: RuleCountryPrefix, CountryCode: cc}, nil
	default:
		return Normalizer{}, fmt.Errorf("unknown phone rule %q", rule)
	}
}

// Normalize maps a raw phone string to its matching key. It never fails;
// garbage input yields a well-defined but meaningless key.
func (n Normalizer) Normalize(raw string) string {
	s := stripPhone(raw)
	switch n.Rule {
	case RuleCountryPrefix:
		if len([]rune(s)) == KeyLength {
			return n.CountryCode + s
		}
		return s
	default:
		r := []rune(s)
		if len(r) <= KeyLength {
			return s
		}
		return string(r[len(r)-KeyLength:])
	}
}

// NormalizePhone normalizes with the default rule.
func NormalizePhone(raw string) string {
	return DefaultNormalizer.Normalize(raw)
}

func stripPhone(raw string) string {
	s := strings.ReplaceAll(raw, "+", "")
	s = strings.ReplaceAll(s, "-", "")
	return strings.TrimSpace(s)
}
