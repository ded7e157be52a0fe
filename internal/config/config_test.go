package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no stray trustchain.yaml is picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
	assert.Equal(t, 5, cfg.GitHub.MaxRepos)
	assert.Equal(t, 10, cfg.GitHub.CommitLimit)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.EvidenceTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.CloneTTL)
	assert.Equal(t, 24*time.Hour, cfg.Cache.VerificationTTL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.Server.RateLimit.VerifyLimit)
	assert.Equal(t, time.Hour, cfg.Server.RateLimit.VerifyWindow)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	content := `
github:
  max_repos: 8
llm:
  provider: gemini
  timeout: 15s
cache:
  evidence_ttl: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("GITHUB_TOKEN", "gh-token")
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("TRUSTCHAIN_SERVER_PORT", "9090")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("TRUSTCHAIN_SERVER_RATE_LIMIT_VERIFY_LIMIT", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.GitHub.MaxRepos)
	assert.Equal(t, "gh-token", cfg.GitHub.Token)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-key", cfg.LLM.APIKey)
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Cache.EvidenceTTL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.SecretKey)
	assert.Equal(t, 3, cfg.Server.RateLimit.VerifyLimit)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.LLM.Provider = "llama" },
			wantErr: "Provider",
		},
		{
			name:    "clone ttl not shorter than evidence ttl",
			mutate:  func(c *Config) { c.Cache.CloneTTL = 2 * time.Hour },
			wantErr: "clone_ttl",
		},
		{
			name:    "badger without path",
			mutate:  func(c *Config) { c.Cache.Backend = "badger" },
			wantErr: "cache.path",
		},
		{
			name:    "zero max repos",
			mutate:  func(c *Config) { c.GitHub.MaxRepos = 0 },
			wantErr: "MaxRepos",
		},
		{
			name:    "zero verify burst",
			mutate:  func(c *Config) { c.Server.RateLimit.VerifyBurst = 0 },
			wantErr: "VerifyBurst",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "Format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
