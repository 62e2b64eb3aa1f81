package preflight

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DialTimeout bounds the SSH handshake.
const DialTimeout = 10 * time.Second

// SFTPConnection holds an active SSH/SFTP connection.
type SFTPConnection struct {
	sshClient  *ssh.Client
	sftpClient *sftp.Client
	agentConn  net.Conn
}

// Connect establishes an SSH connection to ep and opens an SFTP session.
// It authenticates with the SSH agent and the default key files, and
// verifies the host key against ~/.ssh/known_hosts when that file exists.
func Connect(ep Endpoint) (*SFTPConnection, error) {
	if !ep.Remote {
		return nil, fmt.Errorf("not a remote endpoint: %s", ep)
	}

	login := ep.User
	if login == "" {
		current, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("failed to determine SSH user: %w", err)
		}

		login = current.Username
	}

	agentConn, authMethods := sshAuthMethods()
	if len(authMethods) == 0 {
		return nil, errors.New("no SSH authentication methods available (tried SSH agent and default keys)")
	}

	config := &ssh.ClientConfig{
		User:            login,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback(),
		Timeout:         DialTimeout,
	}

	addr := net.JoinHostPort(ep.Host, fmt.Sprint(ep.Port))

	sshClient, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		closeQuietly(agentConn)

		return nil, fmt.Errorf("ssh: connection to %s failed: %w", addr, err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		closeQuietly(agentConn)

		return nil, fmt.Errorf("ssh: SFTP session creation failed: %w", err)
	}

	return &SFTPConnection{sshClient: sshClient, sftpClient: sftpClient, agentConn: agentConn}, nil
}

// Client returns the underlying SFTP client.
func (c *SFTPConnection) Client() *sftp.Client {
	return c.sftpClient
}

// Close closes the SFTP session and SSH connection.
func (c *SFTPConnection) Close() error {
	var firstErr error

	if c.sftpClient != nil {
		if err := c.sftpClient.Close(); err != nil {
			firstErr = err
		}
	}

	if c.sshClient != nil {
		if err := c.sshClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	closeQuietly(c.agentConn)

	return firstErr
}

// sshAuthMethods returns the agent connection (if any) and the auth
// methods in priority order: SSH agent, then default key files.
func sshAuthMethods() (net.Conn, []ssh.AuthMethod) {
	var (
		methods   []ssh.AuthMethod
		agentConn net.Conn
	)

	if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
		if conn, err := net.Dial("unix", socket); err == nil {
			agentConn = conn
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return agentConn, methods
	}

	var signers []ssh.Signer

	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyData, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}

		// Passphrase-protected keys are only usable through the agent.
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			continue
		}

		signers = append(signers, signer)
	}

	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	return agentConn, methods
}

func hostKeyCallback() ssh.HostKeyCallback {
	home, err := os.UserHomeDir()
	if err == nil {
		if callback, err := knownhosts.New(filepath.Join(home, ".ssh", "known_hosts")); err == nil {
			return callback
		}
	}

	// TODO: prompt to trust unknown hosts instead of accepting them when known_hosts is missing.
	return ssh.InsecureIgnoreHostKey() //nolint:gosec // preflight is read-only
}

func closeQuietly(conn net.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
}
