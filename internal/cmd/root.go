package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "repolist",
	Short: "Keep the repository migration list in sync with Bitbucket projects",
	Long: `Repolist queries Bitbucket for the repositories in a set of projects, removes
an ignore-list, and rewrites the repos_to_migrate array in the migration tool's
configuration file. Everything else in that file is left untouched.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogging(cmd.ErrOrStderr(), verbose)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default ~/.repolist/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(initCmd)
}
