package errors

import "fmt"

// exitCodeMeanings are the exit values documented in rsync(1).
//
//nolint:gochecknoglobals // Static lookup table
var exitCodeMeanings = map[int]string{
	1:  "syntax or usage error",
	2:  "protocol incompatibility",
	3:  "errors selecting input/output files, dirs",
	4:  "requested action not supported",
	5:  "error starting client-server protocol",
	6:  "daemon unable to append to log-file",
	10: "error in socket I/O",
	11: "error in file I/O",
	12: "error in rsync protocol data stream",
	13: "errors with program diagnostics",
	14: "error in IPC code",
	20: "received SIGUSR1 or SIGINT",
	21: "some error returned by waitpid()",
	22: "error allocating core memory buffers",
	23: "partial transfer due to error",
	24: "partial transfer due to vanished source files",
	25: "the --max-delete limit stopped deletions",
	30: "timeout in data send/receive",
	35: "timeout waiting for daemon connection",
}

// ExitCodeMeaning describes an rsync exit status.
func ExitCodeMeaning(code int) string {
	if code < 0 {
		return "terminated by signal"
	}

	if meaning, ok := exitCodeMeanings[code]; ok {
		return meaning
	}

	return fmt.Sprintf("exit status %d", code)
}

// CategoryForExitCode maps an rsync exit status to an error category.
func CategoryForExitCode(code int) ErrorCategory {
	switch code {
	case 3:
		return CategoryPath
	case 5, 10, 12, 30, 35:
		return CategoryRemote
	case 11:
		return CategoryIO
	case 20, -1:
		return CategoryStopped
	case 23, 24:
		return CategoryPartial
	case 25:
		return CategoryDelete
	case 127:
		return CategoryTool
	default:
		return CategoryUnknown
	}
}
