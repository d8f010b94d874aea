package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"repolist/pkg/bitbucket"
	"repolist/pkg/config"
	"repolist/pkg/repolist"
	"repolist/pkg/secrets"
)

var (
	updateProjects []string
	updateIgnore   []string
	updateTarget   string
	updateKey      string
	updateSecrets  string
	updateDryRun   bool
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Refresh the repository list in the migration config",
	Long: `Fetch every repository in the configured Bitbucket projects and rewrite the
repos_to_migrate assignment in the target file.

The repository names are deduplicated, filtered through the ignore-list and
sorted case-insensitively before being written as a quoted, newline-separated
shell array:

  repos_to_migrate=('repo1'
  'repo2'
  'repo3')

The run fails without touching the file if any project listing fails or if
the target file has no repos_to_migrate=( ... ) assignment.

Examples:
  # Update using ~/.repolist/config.yaml
  repolist update

  # Preview the change without writing
  repolist update --dry-run

  # Override the project keys from the config file
  repolist update --project PROJ1 --project OTHERPROJ`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	bindUpdateFlags()
}

// bindUpdateFlags registers the update flags on a fresh flag set
func bindUpdateFlags() {
	updateCmd.Flags().StringSliceVarP(&updateProjects, "project", "p", nil, "Bitbucket project key to include (repeatable, replaces the configured keys)")
	updateCmd.Flags().StringSliceVar(&updateIgnore, "ignore", nil, "Repository name to ignore in addition to the configured ignore-list (repeatable)")
	updateCmd.Flags().StringVar(&updateTarget, "target", "", "Path of the file to rewrite")
	updateCmd.Flags().StringVar(&updateKey, "key", "", "Name of the array assignment to rewrite")
	updateCmd.Flags().StringVar(&updateSecrets, "secrets", "", "Path of the secrets file")
	updateCmd.Flags().BoolVar(&updateDryRun, "dry-run", false, "Show the changes without writing the target file")
}

func runUpdate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load repolist config: %w", err)
	}

	if err := applyUpdateFlags(cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		var invalid config.ValidationErrors
		if errors.As(err, &invalid) {
			for _, problem := range invalid {
				fmt.Fprintf(cmd.ErrOrStderr(), "  ✗ %s\n", problem)
			}
			return fmt.Errorf("invalid configuration (check %s): %w", strings.Join(invalid.Fields(), ", "), err)
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	creds, err := secrets.Load(cfg.SecretsPath())
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	fmt.Fprintf(out, "✓ Loaded credentials (%s)\n", creds)

	retry := bitbucket.DefaultRetryConfig()
	retry.MaxRetries = cfg.Retries()

	client := bitbucket.NewClient(bitbucket.ClientConfig{
		BaseURL:    cfg.Bitbucket.BaseURL,
		Workspace:  cfg.Bitbucket.Workspace,
		PageLength: cfg.Bitbucket.PageLength,
		Timeout:    cfg.Bitbucket.Timeout,
		Retry:      retry,
	}, creds)

	updater := &repolist.Updater{
		Lister:      client,
		ProjectKeys: cfg.Bitbucket.ProjectKeys,
		Ignore:      cfg.Ignore,
		TargetPath:  cfg.TargetPath(),
		Key:         cfg.Target.Key,
		OnProjectFetched: func(key string, names []string) {
			fmt.Fprintf(out, "📦 %s: %d repositories\n", key, len(names))
		},
	}

	fmt.Fprintf(out, "🔍 Listing repositories in workspace %s (%s)\n",
		cfg.Bitbucket.Workspace, strings.Join(cfg.Bitbucket.ProjectKeys, ", "))

	result, err := updater.Run(ctx, repolist.Options{DryRun: updateDryRun})
	if err != nil {
		return err
	}

	displayResult(out, result, updater.TargetPath, cfg.Target.Key, updateDryRun)

	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadConfigFromPath(configPath)
	}
	return config.LoadConfig()
}

// applyUpdateFlags layers command-line overrides on top of the loaded config
func applyUpdateFlags(cfg *config.Config) error {
	if len(updateProjects) > 0 {
		cfg.Bitbucket.ProjectKeys = trimAll(updateProjects)
	}

	cfg.Ignore = append(cfg.Ignore, trimAll(updateIgnore)...)

	if updateKey != "" {
		cfg.Target.Key = updateKey
	}

	// Paths given on the command line are relative to the working directory
	if updateTarget != "" {
		abs, err := filepath.Abs(updateTarget)
		if err != nil {
			return fmt.Errorf("invalid --target path: %w", err)
		}
		cfg.Target.Path = abs
	}

	if updateSecrets != "" {
		abs, err := filepath.Abs(updateSecrets)
		if err != nil {
			return fmt.Errorf("invalid --secrets path: %w", err)
		}
		cfg.SecretsFile = abs
	}

	return nil
}

func trimAll(values []string) []string {
	var trimmed []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			trimmed = append(trimmed, v)
		}
	}
	return trimmed
}

// displayResult shows the outcome of a run in a human-readable format
func displayResult(out io.Writer, result *repolist.Result, target, key string, dryRun bool) {
	fmt.Fprintf(out, "\n📋 %d repositories to migrate\n", len(result.Names))

	for _, name := range result.Added {
		fmt.Fprintf(out, "  + %s\n", name)
	}
	for _, name := range result.Removed {
		fmt.Fprintf(out, "  - %s\n", name)
	}

	switch {
	case !result.Changed:
		fmt.Fprintf(out, "\n✅ %s in %s is already up to date\n", key, target)
	case dryRun:
		fmt.Fprintf(out, "\n🔍 Dry-run mode: %s was not modified\n", target)
	default:
		fmt.Fprintf(out, "\n✅ Updated %s in %s\n", key, target)
	}
}
