package integration

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

func getProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "../.."
	}
	// Walk up until we find go.mod
	for dir != "/" {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return "../.."
}

// buildBinary returns a pre-built binary from CI or builds one locally
func buildBinary(t *testing.T) string {
	t.Helper()

	if binaryPath := os.Getenv("REPOLIST_BINARY"); binaryPath != "" {
		return binaryPath
	}

	binaryPath := filepath.Join(t.TempDir(), "repolist-test")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/repolist")
	buildCmd.Dir = getProjectRoot()
	var buildOut bytes.Buffer
	buildCmd.Stdout = &buildOut
	buildCmd.Stderr = &buildOut
	if err := buildCmd.Run(); err != nil {
		t.Fatalf("Failed to build binary: %v\nOutput: %s", err, buildOut.String())
	}

	return binaryPath
}

func TestCLIIntegration(t *testing.T) {
	binaryPath := buildBinary(t)

	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{
			name:     "no arguments (shows help)",
			args:     []string{},
			expected: "repolist",
		},
		{
			name:     "help command",
			args:     []string{"--help"},
			expected: "repolist",
		},
		{
			name:     "update help",
			args:     []string{"update", "--help"},
			expected: "--dry-run",
		},
		{
			name:     "init help",
			args:     []string{"init", "--help"},
			expected: "init",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(binaryPath, tt.args...)
			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out

			if err := cmd.Run(); err != nil {
				t.Fatalf("Command failed: %v", err)
			}

			output := out.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("Expected output to contain '%s', got: %s", tt.expected, output)
			}
		})
	}
}

func TestCLIExitCodeOnFailure(t *testing.T) {
	binaryPath := buildBinary(t)

	cmd := exec.Command(binaryPath, "update", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected exit error, got: %v", err)
	}
	if exitErr.ExitCode() != 1 {
		t.Errorf("Expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(stderr.String(), "config file not found") {
		t.Errorf("Expected error on stderr, got: %s", stderr.String())
	}
}
