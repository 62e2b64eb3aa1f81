package rsync

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// Launcher starts processes. Tests substitute scripted fakes.
type Launcher interface {
	Launch(ctx context.Context, binary string, args []string) (Process, error)
}

// Process is a started child process.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	// Wait blocks until exit. It must be called only after Stdout and
	// Stderr have been read to EOF. The code is -1 when the process was
	// killed by a signal; err reports failures other than a non-zero exit.
	Wait() (int, error)
	// Terminate asks the process to exit.
	Terminate() error
}

// ExecLauncher launches real processes with os/exec.
type ExecLauncher struct{}

// Launch implements Launcher. Cancelling ctx terminates the process.
func (ExecLauncher) Launch(ctx context.Context, binary string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Cancel = func() error { return terminate(cmd) }
	// rsync forks a receiver (or ssh) that shares the output pipes; it
	// gets its own group so Terminate reaches all of them.
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Stderr() io.Reader { return p.stderr }

func (p *execProcess) Terminate() error {
	return terminate(p.cmd)
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, err
}

// terminate signals the process group, killing outright where signals are
// unsupported.
func terminate(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	if err := signalGroup(cmd); err != nil {
		return cmd.Process.Kill()
	}

	return nil
}
