package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL       = "https://api.bitbucket.org/2.0"
	DefaultAssignmentKey = "repos_to_migrate"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
)

var shellIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config represents the repolist configuration
type Config struct {
	Bitbucket   BitbucketConfig `yaml:"bitbucket"`
	SecretsFile string          `yaml:"secrets_file"`
	Ignore      []string        `yaml:"ignore,omitempty"`
	Target      TargetConfig    `yaml:"target"`

	// path the configuration was loaded from, used to resolve relative paths
	source string
}

// BitbucketConfig represents Bitbucket API settings
type BitbucketConfig struct {
	BaseURL     string        `yaml:"base_url,omitempty"`
	Workspace   string        `yaml:"workspace"`
	ProjectKeys []string      `yaml:"project_keys"`
	PageLength  int           `yaml:"page_length,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	MaxRetries  *int          `yaml:"max_retries,omitempty"`
}

// TargetConfig represents the file and assignment being rewritten
type TargetConfig struct {
	Path string `yaml:"path"`
	Key  string `yaml:"key,omitempty"`
}

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath loads configuration from a specific path
func LoadConfigFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: run 'repolist init' to create one", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.source = path
	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills in optional settings that were left empty
func (c *Config) ApplyDefaults() {
	if c.Bitbucket.BaseURL == "" {
		c.Bitbucket.BaseURL = DefaultBaseURL
	}
	c.Bitbucket.BaseURL = strings.TrimSuffix(c.Bitbucket.BaseURL, "/")

	if c.Bitbucket.Timeout == 0 {
		c.Bitbucket.Timeout = DefaultTimeout
	}

	if c.Bitbucket.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Bitbucket.MaxRetries = &retries
	}

	if c.Target.Key == "" {
		c.Target.Key = DefaultAssignmentKey
	}
}

// Retries returns the configured retry budget
func (c *Config) Retries() int {
	if c.Bitbucket.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *c.Bitbucket.MaxRetries
}

// SecretsPath returns the secrets file path resolved against the config file location
func (c *Config) SecretsPath() string {
	return c.resolve(c.SecretsFile)
}

// TargetPath returns the target file path resolved against the config file location
func (c *Config) TargetPath() string {
	return c.resolve(c.Target.Path)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.source == "" {
		return path
	}
	return filepath.Join(filepath.Dir(c.source), path)
}

// SaveConfig saves configuration to the default location
func (c *Config) SaveConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveConfigToPath(configPath)
}

// SaveConfigToPath saves configuration to a specific path
func (c *Config) SaveConfigToPath(path string) error {
	// Create config directory if it doesn't exist
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".repolist", "config.yaml"), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.Bitbucket.Workspace) == "" {
		errs.Add("bitbucket.workspace", "workspace is required")
	}

	if len(c.Bitbucket.ProjectKeys) == 0 {
		errs.Add("bitbucket.project_keys", "at least one project key is required")
	}
	for i, key := range c.Bitbucket.ProjectKeys {
		if strings.TrimSpace(key) == "" {
			errs.Add(fmt.Sprintf("bitbucket.project_keys[%d]", i), "project key cannot be empty")
		}
	}

	if c.Bitbucket.PageLength != 0 && (c.Bitbucket.PageLength < 10 || c.Bitbucket.PageLength > 100) {
		errs.AddValue("bitbucket.page_length", c.Bitbucket.PageLength, "page length must be between 10 and 100")
	}

	if c.Bitbucket.Timeout < 0 {
		errs.AddValue("bitbucket.timeout", c.Bitbucket.Timeout, "timeout cannot be negative")
	}

	if c.Retries() < 0 {
		errs.AddValue("bitbucket.max_retries", c.Retries(), "max retries cannot be negative")
	}

	if strings.TrimSpace(c.SecretsFile) == "" {
		errs.Add("secrets_file", "secrets file path is required")
	}

	if strings.TrimSpace(c.Target.Path) == "" {
		errs.Add("target.path", "target file path is required")
	}

	if !shellIdentifier.MatchString(c.Target.Key) {
		errs.AddValue("target.key", c.Target.Key, "key must be a valid shell variable name")
	}

	if errs.HasErrors() {
		return errs
	}

	return nil
}
