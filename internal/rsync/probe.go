package rsync

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/joe/syncdeck/internal/progress"
)

// ProbeTimeout bounds the version check.
const ProbeTimeout = 5 * time.Second

// ClassifyVersion decides the output dialect from `rsync --version` output.
// Only GNU rsync prints "rsync  version" (two spaces) and supports
// --info=progress2; openrsync mimics the banner but not the flag.
func ClassifyVersion(output string) progress.Dialect {
	if strings.Contains(output, "rsync  version") && !strings.Contains(output, "openrsync") {
		return progress.DialectStructured
	}

	return progress.DialectFallback
}

// DetectDialect runs binary --version and classifies the result.
// Any failure yields the fallback dialect.
func DetectDialect(ctx context.Context, binary string) progress.Dialect {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	if err != nil {
		return progress.DialectFallback
	}

	return ClassifyVersion(string(out))
}

// VersionLine returns the first line of binary --version, or "" on failure.
func VersionLine(ctx context.Context, binary string) string {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "--version").CombinedOutput()
	if err != nil {
		return ""
	}

	line, _, _ := strings.Cut(string(out), "\n")

	return strings.TrimSpace(line)
}
