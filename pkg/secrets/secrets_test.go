package secrets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSecrets(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvUsername, "")
	t.Setenv(EnvAPIToken, "")
	t.Setenv(EnvAccessToken, "")
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		expected Credentials
	}{
		{
			name: "toml secrets.cfg",
			file: "secrets.cfg",
			content: `bitbucket_username = "deploy-bot"
bitbucket_api_password = "s3cret"
`,
			expected: Credentials{Username: "deploy-bot", APIToken: "s3cret"},
		},
		{
			name: "toml with token alias",
			file: "secrets.toml",
			content: `bitbucket_username = "deploy-bot"
bitbucket_api_token = "alias-token"
`,
			expected: Credentials{Username: "deploy-bot", APIToken: "alias-token"},
		},
		{
			name: "yaml",
			file: "secrets.yaml",
			content: `bitbucket_username: deploy-bot
bitbucket_api_password: s3cret
`,
			expected: Credentials{Username: "deploy-bot", APIToken: "s3cret"},
		},
		{
			name: "ini",
			file: "secrets.ini",
			content: `bitbucket_username = deploy-bot
bitbucket_api_password = s3cret
`,
			expected: Credentials{Username: "deploy-bot", APIToken: "s3cret"},
		},
		{
			name:     "access token only",
			file:     "secrets.cfg",
			content:  `bitbucket_access_token = "oauth-token"` + "\n",
			expected: Credentials{AccessToken: "oauth-token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeSecrets(t, tt.file, tt.content)

			creds, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *creds)
		})
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	path := writeSecrets(t, "secrets.cfg", `bitbucket_username = "file-user"
bitbucket_api_password = "file-token"
`)

	t.Setenv(EnvAPIToken, "env-token")

	creds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-user", creds.Username)
	assert.Equal(t, "env-token", creds.APIToken)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name            string
		file            string
		content         string
		expectedMessage string
		missingCreds    bool
	}{
		{
			name:            "missing password",
			file:            "secrets.cfg",
			content:         `bitbucket_username = "deploy-bot"` + "\n",
			expectedMessage: "bitbucket_api_password not set",
			missingCreds:    true,
		},
		{
			name:            "empty file",
			file:            "secrets.cfg",
			content:         "",
			expectedMessage: "bitbucket_username, bitbucket_api_password not set",
			missingCreds:    true,
		},
		{
			name:            "malformed toml",
			file:            "secrets.cfg",
			content:         "bitbucket_username = ",
			expectedMessage: "failed to parse secrets file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeSecrets(t, tt.file, tt.content)

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedMessage)
			assert.Equal(t, tt.missingCreds, errors.Is(err, ErrMissingCredentials))

			var secretsErr *Error
			require.True(t, errors.As(err, &secretsErr))
			assert.Equal(t, path, secretsErr.Path)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.cfg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secrets file not found")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCredentials_String(t *testing.T) {
	basic := &Credentials{Username: "deploy-bot", APIToken: "s3cret"}
	assert.Equal(t, "basic auth as deploy-bot", basic.String())
	assert.NotContains(t, basic.String(), "s3cret")

	bearer := &Credentials{AccessToken: "oauth-token"}
	assert.Equal(t, "bearer token", bearer.String())
	assert.True(t, bearer.UsesBearer())
}
