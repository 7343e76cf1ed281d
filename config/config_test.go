package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretReader struct {
	data  map[string]any
	err   error
	mount string
	path  string
}

func (f *fakeSecretReader) ReadKVv2(_ context.Context, secretsEngine string, secretPath string) (map[string]any, error) {
	f.mount = secretsEngine
	f.path = secretPath
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}

// chdir changes the working directory for the duration of the test,
// restoring the original directory on cleanup (stand-in for t.Chdir,
// which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })
}

// clearEnv unsets every variable Resolve consults so tests do not inherit
// credentials from the host environment. Unset, not set-to-empty: godotenv
// refuses to override a variable that exists at all.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAPIKey, EnvEmail, "VAULT_ADDR", "VAULT_TOKEN", envVaultMount, envVaultPath} {
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, value) })
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func writeEnvFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "custom.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve_FromCustomEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, t.TempDir(),
		"CLOUDFLARE_API_KEY=key-123\nCLOUDFLARE_USER_EMAIL=ops@acme.com\n")

	creds, err := Resolve(context.Background(), WithEnvFile(path))
	require.NoError(t, err)
	assert.Equal(t, "key-123", creds.APIKey)
	assert.Equal(t, "ops@acme.com", creds.Email)
}

func TestResolve_CustomEnvFileMissing(t *testing.T) {
	clearEnv(t)

	_, err := Resolve(context.Background(), WithEnvFile(filepath.Join(t.TempDir(), "nope.env")))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "nope.env")
	assert.Contains(t, cfgErr.Message, "not found")
}

func TestResolve_DefaultEnvFileMissing(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	_, err := Resolve(context.Background())

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "No environment (.env) file found.", cfgErr.Message)
	assert.Contains(t, cfgErr.Lines(), "cp .env.example .env")
}

func TestResolve_DefaultEnvFileInWorkingDirectory(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("CLOUDFLARE_API_KEY=key-456\nCLOUDFLARE_USER_EMAIL=dns@acme.com\n"), 0o600))
	chdir(t, dir)

	creds, err := Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-456", creds.APIKey)
	assert.Equal(t, "dns@acme.com", creds.Email)
}

func TestResolve_ProcessEnvWithoutEnvFile(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv(EnvAPIKey, "key-789")
	t.Setenv(EnvEmail, "ops@acme.com")

	creds, err := Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "key-789", creds.APIKey)
}

func TestResolve_ProcessEnvWinsOverEnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvEmail, "env@acme.com")
	path := writeEnvFile(t, t.TempDir(),
		"CLOUDFLARE_API_KEY=file-key\nCLOUDFLARE_USER_EMAIL=file@acme.com\n")

	creds, err := Resolve(context.Background(), WithEnvFile(path))
	require.NoError(t, err)
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "env@acme.com", creds.Email)
}

func TestResolve_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, t.TempDir(), "CLOUDFLARE_USER_EMAIL=ops@acme.com\n")

	_, err := Resolve(context.Background(), WithEnvFile(path))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, EnvAPIKey)
}

func TestResolve_MissingEmail(t *testing.T) {
	clearEnv(t)
	path := writeEnvFile(t, t.TempDir(), "CLOUDFLARE_API_KEY=key-123\n")

	_, err := Resolve(context.Background(), WithEnvFile(path))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, EnvEmail)
}

func TestResolve_RejectsPlaceholderValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"both placeholders", "CLOUDFLARE_API_KEY=NULL\nCLOUDFLARE_USER_EMAIL=NULL\n"},
		{"placeholder key only", "CLOUDFLARE_API_KEY=NULL\nCLOUDFLARE_USER_EMAIL=ops@acme.com\n"},
		{"placeholder email only", "CLOUDFLARE_API_KEY=key-123\nCLOUDFLARE_USER_EMAIL=NULL\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeEnvFile(t, t.TempDir(), tt.content)

			_, err := Resolve(context.Background(), WithEnvFile(path))

			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, cfgErr.Message, "placeholder")
		})
	}
}

func TestResolve_FromVault(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	reader := &fakeSecretReader{
		data: map[string]any{
			"api_key": "vault-key",
			"email":   "vault@acme.com",
		},
	}

	creds, err := Resolve(context.Background(), WithSecretReader(reader))
	require.NoError(t, err)
	assert.Equal(t, "vault-key", creds.APIKey)
	assert.Equal(t, "vault@acme.com", creds.Email)
	assert.Equal(t, defaultVaultMount, reader.mount)
	assert.Equal(t, defaultVaultPath, reader.path)
}

func TestResolve_VaultMountAndPathOverride(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv(envVaultMount, "kv")
	t.Setenv(envVaultPath, "infra/cloudflare")

	reader := &fakeSecretReader{
		data: map[string]any{
			"api_key": "vault-key",
			"email":   "vault@acme.com",
		},
	}

	_, err := Resolve(context.Background(), WithSecretReader(reader))
	require.NoError(t, err)
	assert.Equal(t, "kv", reader.mount)
	assert.Equal(t, "infra/cloudflare", reader.path)
}

func TestResolve_VaultReadFailure(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	reader := &fakeSecretReader{err: errors.New("permission denied")}

	_, err := Resolve(context.Background(), WithSecretReader(reader))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "Vault")
}

func TestResolve_VaultPlaceholderStillRejected(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	reader := &fakeSecretReader{
		data: map[string]any{
			"api_key": "NULL",
			"email":   "ops@acme.com",
		},
	}

	_, err := Resolve(context.Background(), WithSecretReader(reader))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Message, "placeholder")
}

func TestErrorLines(t *testing.T) {
	err := &Error{
		Message:  "Error: something broke",
		Guidance: []string{"line one", "line two"},
	}

	assert.Equal(t, "Error: something broke", err.Error())
	assert.Equal(t, []string{"Error: something broke", "line one", "line two"}, err.Lines())
}
