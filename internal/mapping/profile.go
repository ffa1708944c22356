package mapping

import "strings"

// Profile declares the field correspondences for one source shape: explicit
// source→target field mappings and source fields excluded from any mapping.
// An explicit correspondence always wins over name-based fallback; an
// ignored field is never copied regardless of name match.
//
// Profiles are built once per shape (pair) and registered on a Mapper; they
// are immutable after registration.
type Profile struct {
	rules   []fieldRule
	ignored []string
}

type fieldRule struct {
	source string
	target string
}

// NewProfile creates an empty profile.
func NewProfile() *Profile { return &Profile{} }

// Map declares that sourceField supplies targetField.
func (p *Profile) Map(sourceField, targetField string) *Profile {
	p.rules = append(p.rules, fieldRule{source: sourceField, target: targetField})
	return p
}

// Ignore excludes source fields from any mapping, overriding name matches.
func (p *Profile) Ignore(sourceFields ...string) *Profile {
	p.ignored = append(p.ignored, sourceFields...)
	return p
}

// sourceFor returns the explicitly declared source field for a target field,
// honoring the case-sensitivity rule.
func (p *Profile) sourceFor(targetField string, caseSensitive bool) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, r := range p.rules {
		if nameEqual(r.target, targetField, caseSensitive) {
			return r.source, true
		}
	}
	return "", false
}

// isIgnored reports whether a source field is excluded from mapping.
func (p *Profile) isIgnored(sourceField string, caseSensitive bool) bool {
	if p == nil {
		return false
	}
	for _, f := range p.ignored {
		if nameEqual(f, sourceField, caseSensitive) {
			return true
		}
	}
	return false
}

func nameEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}
