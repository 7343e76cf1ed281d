// Package config resolves and validates the Cloudflare credentials for a
// backup run. Credentials come from an env file (an explicit path or ./.env),
// from variables already present in the process environment, or from Vault
// KV v2 when VAULT_ADDR and VAULT_TOKEN are set.
package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"cfdnsbackup/vault"
)

const (
	// EnvAPIKey names the environment variable holding the Cloudflare API key.
	EnvAPIKey = "CLOUDFLARE_API_KEY"
	// EnvEmail names the environment variable holding the account email.
	EnvEmail = "CLOUDFLARE_USER_EMAIL"

	envVaultMount     = "CLOUDFLARE_VAULT_MOUNT"
	envVaultPath      = "CLOUDFLARE_VAULT_PATH"
	defaultVaultMount = "secret"
	defaultVaultPath  = "cloudflare/backup"

	vaultFieldAPIKey = "api_key"
	vaultFieldEmail  = "email"

	defaultEnvFile = ".env"

	// placeholder is the sentinel value shipped in .env.example; it counts
	// as unset even though it is a non-empty string.
	placeholder = "NULL"
)

// Credentials hold the key+email pair used for every Cloudflare request.
// They are loaded once and never logged or persisted.
type Credentials struct {
	APIKey string
	Email  string
}

// Error is a fatal configuration problem. Message plus Guidance make up the
// full user-facing diagnostic; Error() stays short so wrapped errors read
// sensibly in logs.
type Error struct {
	Message  string
	Guidance []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Lines returns the complete diagnostic, message first.
func (e *Error) Lines() []string {
	return append([]string{e.Message}, e.Guidance...)
}

// SecretReader reads a secret's key/value data. Satisfied by *vault.Client.
type SecretReader interface {
	ReadKVv2(ctx context.Context, secretsEngine string, secretPath string) (map[string]any, error)
}

// Option configures credential resolution.
type Option func(*resolver)

// WithEnvFile resolves credentials from an explicit env file path instead of
// the default ./.env.
func WithEnvFile(path string) Option {
	return func(r *resolver) {
		r.envFile = strings.TrimSpace(path)
	}
}

// WithLogf injects a line printer for progress output.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(r *resolver) {
		r.logf = logf
	}
}

// WithSecretReader injects a Vault reader, mainly for tests. Without it one
// is built from the environment when Vault is configured.
func WithSecretReader(reader SecretReader) Option {
	return func(r *resolver) {
		r.secrets = reader
	}
}

type resolver struct {
	envFile string
	logf    func(format string, args ...any)
	secrets SecretReader
}

// Resolve produces validated credentials or a *Error describing exactly what
// the operator has to fix. It never terminates the process.
func Resolve(ctx context.Context, opts ...Option) (Credentials, error) {
	r := resolver{
		logf: func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(&r)
	}

	if err := r.loadEnvFile(); err != nil {
		return Credentials{}, err
	}

	apiKey := strings.TrimSpace(os.Getenv(EnvAPIKey))
	email := strings.TrimSpace(os.Getenv(EnvEmail))

	if (apiKey == "" || email == "") && r.vaultAvailable() {
		var err error
		apiKey, email, err = r.fillFromVault(ctx, apiKey, email)
		if err != nil {
			return Credentials{}, err
		}
	}

	if apiKey == "" {
		return Credentials{}, missingVarError(EnvAPIKey, "your_api_key_here")
	}
	if email == "" {
		return Credentials{}, missingVarError(EnvEmail, "your_email_here")
	}
	if apiKey == placeholder || email == placeholder {
		return Credentials{}, placeholderError()
	}

	r.logf("[Loaded environment data]")
	return Credentials{APIKey: apiKey, Email: email}, nil
}

// loadEnvFile loads either the explicit env file or ./.env into the process
// environment. Variables that are already set win, matching godotenv (and
// the original dotenv) semantics.
func (r *resolver) loadEnvFile() error {
	if r.envFile != "" {
		if _, err := os.Stat(r.envFile); err != nil {
			return &Error{
				Message:  fmt.Sprintf("Error: Specified environment file '%s' not found", r.envFile),
				Guidance: []string{"Please check the file path and try again"},
			}
		}
		r.logf("Using custom ENV file: %s", r.envFile)
		if err := godotenv.Load(r.envFile); err != nil {
			return &Error{
				Message:  fmt.Sprintf("Error: Failed to load environment variables from %s", r.envFile),
				Guidance: []string{"Please check that the file exists and is formatted correctly"},
			}
		}
		return nil
	}

	if _, err := os.Stat(defaultEnvFile); err != nil {
		// A missing .env is only fatal when no other source can serve:
		// credentials may already sit in the environment, or in Vault.
		if r.envCredentialsPresent() || r.vaultAvailable() {
			return nil
		}
		return &Error{
			Message: "No environment (.env) file found.",
			Guidance: []string{
				"Please create a .env file with your Cloudflare API credentials.",
				"You can copy the .env.example file as a starting point:",
				"",
				"cp .env.example .env",
				"",
				"Then edit the .env file to add your credentials.",
			},
		}
	}

	if err := godotenv.Load(defaultEnvFile); err != nil {
		return &Error{
			Message:  fmt.Sprintf("Error: Failed to load environment variables from %s", defaultEnvFile),
			Guidance: []string{"Please check that the file exists and is formatted correctly"},
		}
	}
	return nil
}

func (r *resolver) envCredentialsPresent() bool {
	return strings.TrimSpace(os.Getenv(EnvAPIKey)) != "" &&
		strings.TrimSpace(os.Getenv(EnvEmail)) != ""
}

func (r *resolver) vaultAvailable() bool {
	return r.secrets != nil || vault.EnvConfigured()
}

func (r *resolver) fillFromVault(ctx context.Context, apiKey, email string) (string, string, error) {
	if r.secrets == nil {
		client, err := vault.NewFromEnv()
		if err != nil {
			return "", "", vaultError(err)
		}
		r.secrets = client
	}

	mount := getenvDefault(envVaultMount, defaultVaultMount)
	path := getenvDefault(envVaultPath, defaultVaultPath)

	r.logf("Reading Cloudflare credentials from Vault at %s/%s", mount, path)
	data, err := r.secrets.ReadKVv2(ctx, mount, path)
	if err != nil {
		return "", "", vaultError(err)
	}

	if apiKey == "" {
		apiKey = stringField(data, vaultFieldAPIKey)
	}
	if email == "" {
		email = stringField(data, vaultFieldEmail)
	}
	return apiKey, email, nil
}

func stringField(data map[string]any, field string) string {
	value, _ := data[field].(string)
	return strings.TrimSpace(value)
}

func getenvDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func missingVarError(name, example string) *Error {
	return &Error{
		Message: fmt.Sprintf("Error: %s not found in environment", name),
		Guidance: []string{
			"Please make sure your .env file contains:",
			fmt.Sprintf("%s=%s", name, example),
		},
	}
}

func placeholderError() *Error {
	return &Error{
		Message: "Warning: You appear to be using default placeholder values in your .env file",
		Guidance: []string{
			"Please update your .env file with your actual Cloudflare credentials:",
			"CLOUDFLARE_API_KEY=your_api_key_here",
			"CLOUDFLARE_USER_EMAIL=your_email_here",
			"",
			"Exiting. Please update your credentials and try again.",
		},
	}
}

func vaultError(err error) *Error {
	return &Error{
		Message: fmt.Sprintf("Error: Failed to read Cloudflare credentials from Vault: %v", err),
		Guidance: []string{
			"Please check your VAULT_ADDR, VAULT_TOKEN and the secret path",
			"or provide credentials through a .env file instead",
		},
	}
}
