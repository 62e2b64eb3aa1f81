package preflight

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ExcludeFilter approximates rsync's --exclude matching so a preview can
// show which files a job will skip.
//
//   - a pattern ending in "/" matches directories only
//   - a pattern starting with "/" is anchored at the transfer root
//   - a pattern containing "/" is matched against the whole relative path
//     (and any trailing portion of it when not anchored)
//   - any other pattern is matched against the final path component
//
// Wildcards follow doublestar syntax, which covers rsync's *, ? and **.
type ExcludeFilter struct {
	rules []excludeRule
}

type excludeRule struct {
	pattern  string
	dirOnly  bool
	anchored bool
	hasSlash bool
}

// NewExcludeFilter compiles the patterns. Invalid patterns never match.
func NewExcludeFilter(patterns []string) *ExcludeFilter {
	rules := make([]excludeRule, 0, len(patterns))

	for _, raw := range patterns {
		rule := excludeRule{pattern: raw}

		if strings.HasSuffix(rule.pattern, "/") {
			rule.dirOnly = true
			rule.pattern = strings.TrimSuffix(rule.pattern, "/")
		}

		if strings.HasPrefix(rule.pattern, "/") {
			rule.anchored = true
			rule.pattern = strings.TrimPrefix(rule.pattern, "/")
		}

		rule.hasSlash = strings.Contains(rule.pattern, "/")

		if rule.pattern != "" && doublestar.ValidatePattern(rule.pattern) {
			rules = append(rules, rule)
		}
	}

	return &ExcludeFilter{rules: rules}
}

// Excluded reports whether the entry at relativePath (slash-separated)
// would be skipped, and by which pattern.
func (f *ExcludeFilter) Excluded(relativePath string, isDir bool) (string, bool) {
	relativePath = strings.TrimPrefix(path.Clean("/"+relativePath), "/")

	for _, rule := range f.rules {
		if rule.dirOnly && !isDir {
			continue
		}

		if rule.matches(relativePath) {
			return rule.pattern, true
		}
	}

	return "", false
}

// Empty reports whether the filter has no usable patterns.
func (f *ExcludeFilter) Empty() bool {
	return len(f.rules) == 0
}

func (r excludeRule) matches(relativePath string) bool {
	switch {
	case r.anchored:
		return match(r.pattern, relativePath)
	case r.hasSlash:
		// Unanchored patterns with a slash may match any trailing run of
		// path components.
		for candidate := relativePath; ; {
			if match(r.pattern, candidate) {
				return true
			}

			_, rest, found := strings.Cut(candidate, "/")
			if !found {
				return false
			}

			candidate = rest
		}
	default:
		return match(r.pattern, path.Base(relativePath))
	}
}

func match(pattern, name string) bool {
	matched, err := doublestar.Match(pattern, name)

	return err == nil && matched
}
