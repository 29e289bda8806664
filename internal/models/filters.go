package models

import "strings"

// LocationFilter selects locations by optional city, state, and name-or-alias
// patterns. An empty field matches everything; every non-empty field must
// match for the filter to match (AND within a filter).
type LocationFilter struct {
	City  string
	State string
	Name  string
}

// IsEmpty reports whether no pattern is set.
func (f LocationFilter) IsEmpty() bool {
	return f.City == "" && f.State == "" && f.Name == ""
}

// Matches reports whether the location satisfies every non-empty pattern in
// the filter. An empty filter matches nothing on its own; LocationFilters
// handles the match-everything case.
func (f LocationFilter) Matches(location Location) bool {
	if f.IsEmpty() {
		return false
	}
	if f.City != "" && !MatchPattern(f.City, location.City) {
		return false
	}
	if f.State != "" && !matchState(f.State, location) {
		return false
	}
	if f.Name != "" && !matchName(f.Name, location) {
		return false
	}
	return true
}

// LocationFilters is an ordered collection of filters combined with OR
// semantics: a location matches when any filter matches. An empty collection
// matches every location.
type LocationFilters []LocationFilter

// Match reports whether the location matches the filter collection.
func (fs LocationFilters) Match(location Location) bool {
	if len(fs) == 0 {
		return true
	}
	for _, filter := range fs {
		if filter.Matches(location) {
			return true
		}
	}
	return false
}

// MatchPattern tests a wildcard pattern against a value. Patterns support a
// single leading and/or trailing asterisk (*text, text*, *text*), a bare *
// matching everything, or an exact match. Comparison is case-insensitive.
func MatchPattern(pattern, value string) bool {
	pattern = strings.ToLower(pattern)
	value = strings.ToLower(value)
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") && len(pattern) > 1:
		return strings.Contains(value, pattern[1:len(pattern)-1])
	case strings.HasPrefix(pattern, "*"):
		return strings.HasSuffix(value, pattern[1:])
	case strings.HasSuffix(pattern, "*"):
		return strings.HasPrefix(value, pattern[:len(pattern)-1])
	default:
		return pattern == value
	}
}

// matchState tests the pattern against the full state name when the pattern is
// longer than an abbreviation, and always against the two-letter form.
func matchState(pattern string, location Location) bool {
	if len(pattern) > 2 && MatchPattern(pattern, location.State) {
		return true
	}
	return MatchPattern(pattern, location.StateID)
}

// matchName tests the pattern against the alias and the display name.
func matchName(pattern string, location Location) bool {
	return MatchPattern(pattern, location.Alias) || MatchPattern(pattern, location.Name())
}
