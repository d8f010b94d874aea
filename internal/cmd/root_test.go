package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repolist/pkg/secrets"
)

// resetFlags restores package-level flag state between command executions
func resetFlags(t *testing.T) {
	t.Helper()

	configPath = ""
	verbose = false
	initForce = false

	// Slice flags append once set, so the update flags are rebuilt
	updateCmd.ResetFlags()
	bindUpdateFlags()

	for _, c := range []*cobra.Command{rootCmd, updateCmd, initCmd} {
		if f := c.Flags().Lookup("help"); f != nil {
			require.NoError(t, f.Value.Set("false"))
			f.Changed = false
		}
	}

	t.Setenv(secrets.EnvUsername, "")
	t.Setenv(secrets.EnvAPIToken, "")
	t.Setenv(secrets.EnvAccessToken, "")
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(t)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "repolist", rootCmd.Use)

	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.Contains(t, names, "update")
	assert.Contains(t, names, "init")

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestRootCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "", "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "repolist")
	assert.Contains(t, output, "update")
	assert.Contains(t, output, "init")
}

func TestUpdateCommandHelp(t *testing.T) {
	output, err := executeCommand(t, "", "update", "--help")
	require.NoError(t, err)

	assert.Contains(t, output, "--dry-run")
	assert.Contains(t, output, "--project")
	assert.Contains(t, output, "repos_to_migrate")
}
