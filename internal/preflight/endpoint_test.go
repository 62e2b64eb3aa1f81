package preflight_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/syncdeck/internal/preflight"
)

func TestParseEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected preflight.Endpoint
		wantErr  bool
	}{
		{
			name:     "absolute local",
			input:    "/home/joe/photos",
			expected: preflight.Endpoint{Raw: "/home/joe/photos", Path: "/home/joe/photos"},
		},
		{
			name:     "relative local with colon after slash",
			input:    "./backups/2024:01",
			expected: preflight.Endpoint{Raw: "./backups/2024:01", Path: "./backups/2024:01"},
		},
		{
			name:  "host only",
			input: "nas:/volume1/backup",
			expected: preflight.Endpoint{
				Raw: "nas:/volume1/backup", Remote: true, Host: "nas", Port: 22, Path: "/volume1/backup",
			},
		},
		{
			name:  "user and home-relative path",
			input: "joe@nas:backup",
			expected: preflight.Endpoint{
				Raw: "joe@nas:backup", Remote: true, User: "joe", Host: "nas", Port: 22, Path: "backup",
			},
		},
		{
			name:  "empty remote path is home",
			input: "nas:",
			expected: preflight.Endpoint{
				Raw: "nas:", Remote: true, Host: "nas", Port: 22, Path: ".",
			},
		},
		{
			name:  "sftp url absolute",
			input: "sftp://joe@nas:2222//volume1/backup",
			expected: preflight.Endpoint{
				Raw: "sftp://joe@nas:2222//volume1/backup", Remote: true, User: "joe", Host: "nas", Port: 2222, Path: "/volume1/backup",
			},
		},
		{
			name:  "sftp url home relative",
			input: "sftp://joe@nas/backup",
			expected: preflight.Endpoint{
				Raw: "sftp://joe@nas/backup", Remote: true, User: "joe", Host: "nas", Port: 22, Path: "backup",
			},
		},
		{name: "daemon path", input: "nas::module", wantErr: true},
		{name: "missing host", input: "@:/x", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
		{name: "bad port", input: "sftp://joe@nas:abc/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			got, err := preflight.ParseEndpoint(tt.input)
			if tt.wantErr {
				g.Expect(err).Should(HaveOccurred())

				return
			}

			g.Expect(err).ShouldNot(HaveOccurred())
			g.Expect(got).To(Equal(tt.expected))
		})
	}
}

func TestEndpoint_RsyncPath(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	ep, _ := preflight.ParseEndpoint("sftp://joe@nas//srv/data")
	p, err := ep.RsyncPath()
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(p).To(Equal("joe@nas:/srv/data"))

	ep, _ = preflight.ParseEndpoint("/local")
	p, err = ep.RsyncPath()
	g.Expect(err).ShouldNot(HaveOccurred())
	g.Expect(p).To(Equal("/local"))

	ep, _ = preflight.ParseEndpoint("sftp://joe@nas:2222/x")
	_, err = ep.RsyncPath()
	g.Expect(err).Should(HaveOccurred())
}
