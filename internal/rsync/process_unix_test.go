//go:build unix

package rsync_test

import (
	"context"
	"io"
	"os/exec"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/rsync"
)

// TestExecLauncher_TerminateReachesChildren verifies a forked child holding
// the output pipe is stopped along with the parent, so reads reach EOF.
func TestExecLauncher_TerminateReachesChildren(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	proc, err := rsync.ExecLauncher{}.Launch(context.Background(), sh,
		[]string{"-c", "sleep 30 & echo started; wait"})
	g.Expect(err).ToNot(HaveOccurred())

	started := make([]byte, len("started\n"))
	_, err = io.ReadFull(proc.Stdout(), started)
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(proc.Terminate()).To(Succeed())

	drained := make(chan error, 2)

	go func() {
		_, err := io.Copy(io.Discard, proc.Stdout())
		drained <- err
	}()
	go func() {
		_, err := io.Copy(io.Discard, proc.Stderr())
		drained <- err
	}()

	for range 2 {
		g.Eventually(drained, 5*time.Second).Should(Receive(BeNil()))
	}

	code, err := proc.Wait()
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(code).To(Equal(-1))
}
