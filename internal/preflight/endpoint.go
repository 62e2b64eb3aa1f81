package preflight

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSSHPort is used when an endpoint names no port.
const DefaultSSHPort = 22

// Endpoint is a parsed job source or destination.
type Endpoint struct {
	Raw    string
	Remote bool

	// For remote endpoints
	User string
	Host string
	Port int

	// Path is the local path, or the remote path (relative to the
	// remote home directory unless absolute).
	Path string
}

// String returns the endpoint as it was written.
func (e Endpoint) String() string {
	return e.Raw
}

// ParseEndpoint parses a path as rsync would: `[user@]host:path` is remote
// over ssh, anything else is local. The `sftp://user@host:port/path` form
// is accepted too.
//
// Examples:
//   - /home/joe/photos (local)
//   - ./relative/dir (local)
//   - nas:/volume1/backup (remote, current user)
//   - joe@nas:backup (remote, relative to joe's home)
//   - sftp://joe@nas:2222//volume1/backup (remote, absolute path)
func ParseEndpoint(raw string) (Endpoint, error) {
	if strings.TrimSpace(raw) == "" {
		return Endpoint{}, errors.New("path is empty")
	}

	if strings.HasPrefix(raw, "sftp://") {
		return parseSFTPURL(raw)
	}

	colon := strings.Index(raw, ":")
	slash := strings.Index(raw, "/")

	// A colon before the first slash marks a host, as in rsync.
	if colon <= 0 || (slash >= 0 && slash < colon) {
		return Endpoint{Raw: raw, Path: raw}, nil
	}

	hostPart, path := raw[:colon], raw[colon+1:]
	if strings.HasPrefix(path, ":") {
		return Endpoint{}, fmt.Errorf("rsync daemon paths are not supported: %s", raw)
	}

	ep := Endpoint{Raw: raw, Remote: true, Port: DefaultSSHPort, Path: path}

	if user, host, ok := strings.Cut(hostPart, "@"); ok {
		ep.User, ep.Host = user, host
	} else {
		ep.Host = hostPart
	}

	if ep.Host == "" {
		return Endpoint{}, fmt.Errorf("remote path has no host: %s", raw)
	}

	if ep.Path == "" {
		ep.Path = "."
	}

	return ep, nil
}

// parseSFTPURL parses an SFTP URL into its components.
func parseSFTPURL(raw string) (Endpoint, error) {
	u, err := url.Parse(raw) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid SFTP URL: %w", err)
	}

	host := u.Hostname()
	if host == "" {
		return Endpoint{}, errors.New("SFTP URL must include host")
	}

	port := DefaultSSHPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid port number: %w", err)
		}

		port = p
	}

	user := ""
	if u.User != nil {
		user = u.User.Username()
	}

	// sftp://host/path is relative to home; sftp://host//path is absolute.
	remotePath := u.Path

	switch {
	case remotePath == "" || remotePath == "/":
		remotePath = "."
	case strings.HasPrefix(remotePath, "//"):
		remotePath = remotePath[1:]
	default:
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	return Endpoint{Raw: raw, Remote: true, User: user, Host: host, Port: port, Path: remotePath}, nil
}

// RsyncPath renders the endpoint in the form rsync accepts on its command
// line. Remote endpoints on a non-default port cannot be expressed that way.
func (e Endpoint) RsyncPath() (string, error) {
	if !e.Remote {
		return e.Path, nil
	}

	if e.Port != DefaultSSHPort {
		return "", fmt.Errorf("port %d cannot be passed as an rsync path; add a Host entry to ~/.ssh/config instead", e.Port)
	}

	host := e.Host
	if e.User != "" {
		host = e.User + "@" + host
	}

	return host + ":" + e.Path, nil
}
