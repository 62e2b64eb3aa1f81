package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
//
//nolint:cyclop // One branch per category
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryTool:
		return g.generateToolSuggestions()
	case CategoryRemote:
		return g.generateRemoteSuggestions(affectedPath)
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryDelete:
		return g.generateDeleteSuggestions(affectedPath)
	case CategoryPartial:
		return g.generatePartialSuggestions()
	case CategoryIO:
		return g.generateIOSuggestions()
	case CategoryStopped:
		return []string{"The transfer was interrupted; run the job again to finish it"}
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateDeleteSuggestions(path string) []string {
	suggestions := []string{
		"A directory on the destination could not be removed",
		"Check for files the exclude patterns protect from deletion",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("List contents with 'ls -la %s'", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the destination device",
		"Check available space with 'df -h'",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify disk usage for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateIOSuggestions() []string {
	return []string{
		"Verify the source and destination media are functioning correctly",
		"Run the job again - this may be a transient I/O error",
		"Check system logs for hardware issues",
	}
}

func (g *suggestionGenerator) generatePartialSuggestions() []string {
	return []string{
		"Some files were not transferred; see the error lines in the output log",
		"Files that vanished during the run are usually safe to ignore",
		"Run the job again to pick up the remaining files",
	}
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Verify the path exists and is spelled correctly",
	}

	if path != "" {
		suggestions = append(suggestions, "Check if the path exists: "+path)
		suggestions = append(suggestions, "Ensure all parent directories exist for "+path)
	} else {
		suggestions = append(suggestions, "Ensure all parent directories exist")
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure you have read/write permissions for the files and directories",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s'", path))
	} else {
		suggestions = append(suggestions, "Check permissions with 'ls -la' on the affected path")
	}

	suggestions = append(suggestions, "Disable the archive flag if ownership cannot be preserved on the destination")

	return suggestions
}

func (g *suggestionGenerator) generateRemoteSuggestions(path string) []string {
	suggestions := []string{
		"Check that the remote host is reachable with 'ssh <host>'",
		"Make sure your SSH key is loaded in the agent",
		"Verify rsync is installed on the remote host",
	}

	if path != "" {
		suggestions = append(suggestions, "Confirm the remote path exists: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateToolSuggestions() []string {
	return []string{
		"Install rsync (for example 'brew install rsync' or 'apt install rsync')",
		"Set rsync.binary in the config file if rsync is not on PATH",
		"Check that the configured binary is executable",
	}
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error lines in the output log for more details",
		"Try the job with dry run enabled to see what rsync would do",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}
