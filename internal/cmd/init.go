package cmd

import (
	"fmt"
	"os"

	"repolist/pkg/config"

	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize repolist configuration",
	Long:  "Create a default configuration file for repolist",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file without asking")
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	path := configPath
	if path == "" {
		var err error
		path, err = config.GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(out, "⚠️  Configuration file already exists at: %s\n", path)
		fmt.Fprint(out, "Do you want to overwrite it? (y/N): ")
		var response string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &response) // Ignore error for user input
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Configuration initialization cancelled.")
			return nil
		}
	}

	defaultConfig := DefaultConfig()

	if err := defaultConfig.SaveConfigToPath(path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintf(out, "✅ Configuration file created at: %s\n", path)
	fmt.Fprintln(out, "📝 Please edit the file to set your workspace, project keys and file paths.")

	return nil
}

// DefaultConfig returns the starter configuration written by init
func DefaultConfig() *config.Config {
	retries := config.DefaultMaxRetries

	return &config.Config{
		Bitbucket: config.BitbucketConfig{
			BaseURL:     config.DefaultBaseURL,
			Workspace:   "my-bb-org",
			ProjectKeys: []string{"PROJ1", "OTHERPROJ"},
			Timeout:     config.DefaultTimeout,
			MaxRetries:  &retries,
		},
		SecretsFile: "../secrets.cfg",
		Ignore: []string{
			"test-application",
			"terraform-in-bitbucket-test",
		},
		Target: config.TargetConfig{
			Path: "../migrator.cfg",
			Key:  config.DefaultAssignmentKey,
		},
	}
}
