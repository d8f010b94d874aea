// Package secrets loads the Bitbucket identity used by repolist.
//
// Secrets live in a flat key-value file next to the migration tool. The file
// format follows the extension: YAML for .yaml/.yml, INI for .ini and TOML for
// everything else, which covers the conventional secrets.cfg.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"
)

// Environment variables that take precedence over the secrets file
const (
	EnvUsername    = "BITBUCKET_USERNAME"
	EnvAPIToken    = "BITBUCKET_API_TOKEN"
	EnvAccessToken = "BITBUCKET_ACCESS_TOKEN"
)

// ErrMissingCredentials is returned when neither a basic-auth pair nor an access token is available
var ErrMissingCredentials = errors.New("missing Bitbucket credentials")

// Credentials holds the identity used against the Bitbucket API
type Credentials struct {
	Username    string
	APIToken    string
	AccessToken string
}

// UsesBearer reports whether requests should authenticate with the access token
func (c *Credentials) UsesBearer() bool {
	return c.AccessToken != ""
}

// String implements fmt.Stringer without leaking secret material
func (c *Credentials) String() string {
	if c.UsesBearer() {
		return "bearer token"
	}
	return fmt.Sprintf("basic auth as %s", c.Username)
}

// file mirrors the keys accepted in every supported format
type file struct {
	Username    string `toml:"bitbucket_username" yaml:"bitbucket_username" ini:"bitbucket_username"`
	APIPassword string `toml:"bitbucket_api_password" yaml:"bitbucket_api_password" ini:"bitbucket_api_password"`
	APIToken    string `toml:"bitbucket_api_token" yaml:"bitbucket_api_token" ini:"bitbucket_api_token"`
	AccessToken string `toml:"bitbucket_access_token" yaml:"bitbucket_access_token" ini:"bitbucket_access_token"`
}

// Load reads credentials from path, applying environment overrides
func Load(path string) (*Credentials, error) {
	raw, err := readFile(path)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{
		Username:    strings.TrimSpace(raw.Username),
		APIToken:    strings.TrimSpace(raw.APIPassword),
		AccessToken: strings.TrimSpace(raw.AccessToken),
	}
	if creds.APIToken == "" {
		creds.APIToken = strings.TrimSpace(raw.APIToken)
	}

	applyEnv(creds)

	if err := creds.Validate(); err != nil {
		return nil, &Error{Path: path, Message: "secrets file is incomplete", Cause: err}
	}

	return creds, nil
}

// Validate checks that a usable identity is present
func (c *Credentials) Validate() error {
	if c.UsesBearer() {
		return nil
	}

	var missing []string
	if c.Username == "" {
		missing = append(missing, "bitbucket_username")
	}
	if c.APIToken == "" {
		missing = append(missing, "bitbucket_api_password")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	return nil
}

func applyEnv(creds *Credentials) {
	if v := strings.TrimSpace(os.Getenv(EnvUsername)); v != "" {
		creds.Username = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIToken)); v != "" {
		creds.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAccessToken)); v != "" {
		creds.AccessToken = v
	}
}

func readFile(path string) (*file, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Path: path, Message: "secrets file not found", Cause: err}
		}
		return nil, &Error{Path: path, Message: "failed to read secrets file", Cause: err}
	}

	var raw file
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".ini":
		err = decodeINI(data, &raw)
	default:
		_, err = toml.Decode(string(data), &raw)
	}
	if err != nil {
		return nil, &Error{Path: path, Message: "failed to parse secrets file", Cause: err}
	}

	return &raw, nil
}

func decodeINI(data []byte, raw *file) error {
	cfg, err := ini.Load(data)
	if err != nil {
		return err
	}
	return cfg.Section(ini.DefaultSection).MapTo(raw)
}

// Error describes a failure to obtain credentials
type Error struct {
	Path    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %v", e.Message, e.Path, e.Cause)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Path)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}
