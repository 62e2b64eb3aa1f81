// Package progress turns raw rsync output into structured progress readings.
//
// Two output dialects exist. GNU rsync run with --info=progress2 prints one
// whole-transfer progress line that can be taken verbatim. Other builds
// (openrsync, old versions) only print per-file lines, so progress is
// estimated from file counts and "to-check" markers.
package progress

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joe/syncdeck/internal/domain"
)

// Dialect selects how output is interpreted. It is chosen once per process
// from the installed rsync's capabilities.
type Dialect int

const (
	// DialectFallback estimates progress from per-file output.
	DialectFallback Dialect = iota
	// DialectStructured reads the --info=progress2 whole-transfer line.
	DialectStructured
)

// String returns the string representation of Dialect
func (d Dialect) String() string {
	switch d {
	case DialectFallback:
		return "fallback"
	case DialectStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// ParseDialect parses a dialect name.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "structured", "gnu", "progress2":
		return DialectStructured, nil
	case "fallback", "basic", "openrsync":
		return DialectFallback, nil
	default:
		return DialectFallback, fmt.Errorf("invalid dialect: %s (valid: structured, fallback)", s)
	}
}

// Exported constants.
const (
	// MaxEstimatedPercentage caps heuristic readings; 100% is reserved for a
	// confirmed finish.
	MaxEstimatedPercentage = 99
	// PercentageScale converts ratios to percentages.
	PercentageScale = 100
)

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled once, shared by all parsers
	wholeTransferPattern = regexp.MustCompile(`^\s*([\d,]+)\s+(\d+)%\s+([\d.]+\w+/s)\s+([\d:]+)`)
	//nolint:gochecknoglobals // Compiled once, shared by all parsers
	perFilePattern = regexp.MustCompile(`\s+([\d,]+)\s+(\d+)%\s+([\d.]+\w+/s)\s+([\d:]+)`)
	//nolint:gochecknoglobals // Compiled once, shared by all parsers
	toCheckPattern = regexp.MustCompile(`to-ch(?:ec)?k=(\d+)/(\d+)`)
	//nolint:gochecknoglobals // Lines starting with these are summaries, not files
	reservedPrefixes = []string{"sending", "sent", "total"}
)

// Parser interprets output chunks for one run at a time.
// It is not safe for concurrent use.
type Parser struct {
	dialect        Dialect
	totalFiles     int
	processedFiles int
	// pending is the unterminated tail of the previous chunk.
	pending string
}

// NewParser creates a parser for the given dialect.
func NewParser(dialect Dialect) *Parser {
	return &Parser{dialect: dialect}
}

// Dialect returns the dialect the parser was created with.
func (p *Parser) Dialect() Dialect {
	return p.dialect
}

// Reset clears counters and buffered text. Call it before every run.
func (p *Parser) Reset() {
	p.totalFiles = 0
	p.processedFiles = 0
	p.pending = ""
}

// Counts returns the fallback counters (processed, total).
func (p *Parser) Counts() (int, int) {
	return p.processedFiles, p.totalFiles
}

// Parse consumes one chunk of stdout and returns a reading if the chunk
// carried one. A false result is a parse miss, not an error.
func (p *Parser) Parse(chunk string) (domain.ProgressReading, bool) {
	// The pending line was already matched when it arrived; it only needs
	// matching again if this chunk extends it.
	continued := p.pending != "" && !startsWithTerminator(chunk)
	hadPending := p.pending != ""

	lines, tail := splitLines(p.pending + chunk)
	p.pending = tail

	if p.dialect == DialectStructured {
		return p.parseStructured(lines, tail, hadPending && !continued)
	}

	return p.parseFallback(lines, tail, hadPending && !continued)
}

func (p *Parser) parseStructured(lines []string, tail string, skipFirst bool) (domain.ProgressReading, bool) {
	for i, line := range lines {
		if i == 0 && skipFirst {
			continue
		}

		if reading, ok := matchProgress(wholeTransferPattern, line); ok {
			return reading, true
		}
	}

	return matchProgress(wholeTransferPattern, tail)
}

func (p *Parser) parseFallback(lines []string, tail string, skipFirst bool) (domain.ProgressReading, bool) {
	for i, line := range lines {
		if isFileLine(line) {
			p.processedFiles++
		}

		if i == 0 && skipFirst {
			continue
		}

		if reading, ok := p.matchFallbackLine(line); ok {
			return reading, true
		}
	}

	// The tail may still be growing, so it is matched but not counted.
	if tail != "" {
		if reading, ok := p.matchFallbackLine(tail); ok {
			return reading, true
		}
	}

	if p.totalFiles > 0 {
		return p.estimate(), true
	}

	return domain.ProgressReading{}, false
}

func (p *Parser) matchFallbackLine(line string) (domain.ProgressReading, bool) {
	if m := toCheckPattern.FindStringSubmatch(line); m != nil {
		remaining, errR := strconv.Atoi(m[1])
		total, errT := strconv.Atoi(m[2])

		if errR == nil && errT == nil && total > 0 {
			p.totalFiles = total
			p.processedFiles = max(total-remaining, 0)

			return domain.ProgressReading{
				Bytes:      fmt.Sprintf("%d/%d files", p.processedFiles, total),
				Percentage: percentOf(p.processedFiles, total),
				Speed:      domain.NotAvailable,
				ETA:        domain.NotAvailable,
			}, true
		}
	}

	return matchProgress(perFilePattern, line)
}

func (p *Parser) estimate() domain.ProgressReading {
	return domain.ProgressReading{
		Bytes:      fmt.Sprintf("%d/%d files", p.processedFiles, p.totalFiles),
		Percentage: min(percentOf(p.processedFiles, p.totalFiles), MaxEstimatedPercentage),
		Speed:      domain.NotAvailable,
		ETA:        domain.NotAvailable,
	}
}

// isFileLine reports whether a line looks like a per-file announcement.
func isFileLine(line string) bool {
	if line == "" {
		return false
	}

	switch line[0] {
	case ' ', '\t', '\v', '\f':
		return false
	}

	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(line, prefix) {
			return false
		}
	}

	return true
}

func matchProgress(pattern *regexp.Regexp, line string) (domain.ProgressReading, bool) {
	if line == "" {
		return domain.ProgressReading{}, false
	}

	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return domain.ProgressReading{}, false
	}

	pct, err := strconv.Atoi(m[2])
	if err != nil {
		return domain.ProgressReading{}, false
	}

	return domain.ProgressReading{
		Bytes:      m[1],
		Percentage: pct,
		Speed:      m[3],
		ETA:        m[4],
	}, true
}

func percentOf(part, total int) int {
	if total <= 0 {
		return 0
	}

	return int(math.Round(float64(part) / float64(total) * PercentageScale))
}

// splitLines splits text on \n and \r. Terminated lines are returned in
// order; the unterminated remainder is returned separately.
func splitLines(text string) ([]string, string) {
	var lines []string

	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' || text[i] == '\r' {
			lines = append(lines, text[start:i])
			start = i + 1
		}
	}

	return lines, text[start:]
}

func startsWithTerminator(chunk string) bool {
	return chunk != "" && (chunk[0] == '\n' || chunk[0] == '\r')
}
