// Package testutil provides shared helpers for tests that drive fake
// bridge server processes.
package testutil

import (
	"net"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RequirePOSIX skips tests whose fake bridge servers are shell scripts.
func RequirePOSIX(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake bridge servers are POSIX shell scripts")
	}
}

// FakeServer writes an executable script that stands in for
// esp_rfc2217_server and returns its path. The script receives
// "-p <port> <device>" on its command line and may ignore them.
func FakeServer(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fake_rfc2217_server")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write fake server: %v", err)
	}
	return path
}

// FreeTCPPort returns a TCP port that is free right now.
func FreeTCPPort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		t.Fatalf("failed to release probe listener: %v", err)
	}
	return port
}
