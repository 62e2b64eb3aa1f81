package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Categories are tried in order, so more specific ones come first.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		rules: []categoryRule{
			{CategoryTool, []string{
				"executable file not found",
				"command not found",
				"fork/exec",
				"exec format error",
			}},
			{CategoryRemote, []string{
				"connection refused",
				"connection unexpectedly closed",
				"could not resolve hostname",
				"host key verification failed",
				"connection timed out",
				"ssh: ",
			}},
			{CategoryPermission, []string{
				"permission denied",
				"access denied",
				"operation not permitted",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryDelete, []string{
				"cannot delete non-empty directory",
				"directory not empty",
				"deletions stopped due to --max-delete",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"change_dir",
				"file not found",
				"path does not exist",
			}},
			{CategoryPartial, []string{
				"some files/attrs were not transferred",
				"some files vanished",
				"partial transfer",
			}},
			{CategoryIO, []string{
				"short write",
				"input/output error",
				"i/o error",
				"error in file io",
			}},
			{CategoryStopped, []string{
				"signal: terminated",
				"received sigint",
				"killed by signal",
			}},
		},
	}
}

// categoryRule pairs a category with the message fragments that identify it.
type categoryRule struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	rules []categoryRule
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, rule := range m.rules {
		for _, pattern := range rule.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return rule.category
			}
		}
	}

	return CategoryUnknown
}
