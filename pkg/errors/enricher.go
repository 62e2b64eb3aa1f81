package errors

import (
	"errors"
	"regexp"
	"strings"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with default pattern matcher and suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		matcher:   NewPatternMatcher(),
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled regexes shared across all enricher instances for performance
	pathExtractionPatterns = []*regexp.Regexp{
		// rsync's own messages: change_dir "/path" failed
		regexp.MustCompile(`"([^"]+)"`),
		// Unix/Linux paths (absolute and relative)
		regexp.MustCompile(`\b\w+\s+([./][^\s:]+):`),
		// Windows paths with backslashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:\\[^\s:]+):`),
	}
)

// exitCoder is implemented by errors that carry an rsync exit status.
type exitCoder interface {
	ExitCode() int
}

// enricher is the concrete implementation of Enricher.
type enricher struct {
	matcher   PatternMatcher
	generator SuggestionGenerator
}

// Enrich takes an error and enriches it with category and actionable suggestions.
// If the error is already an ActionableError, it is returned unchanged.
// If affectedPath is empty, attempts to extract a path from the error message.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	if actionable, ok := asActionable(err); ok {
		return actionable
	}

	errMsg := err.Error()

	if affectedPath == "" {
		affectedPath = extractPath(errMsg)
	}

	category := e.matcher.Match(errMsg)

	var coder exitCoder
	if category == CategoryUnknown && errors.As(err, &coder) {
		category = CategoryForExitCode(coder.ExitCode())
	}

	return &actionableError{
		originalError: errMsg,
		category:      category,
		suggestions:   e.generator.Generate(category, affectedPath),
		affectedPath:  affectedPath,
		cause:         err,
	}
}

func asActionable(err error) (ActionableError, bool) {
	var actionable ActionableError
	if errors.As(err, &actionable) {
		return actionable, true
	}

	return nil, false
}

// extractPath attempts to extract a path from common error message formats.
// Returns empty string if no path is found.
//
// Recognized formats:
//   - rsync: change_dir "/srv/data" failed: No such file or directory (2)
//   - open /home/user/file.txt: permission denied
//   - stat C:\data\file: access denied
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}
