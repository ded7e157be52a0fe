package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maniishbhusal/TrustChain/internal/hash"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// isolate runs a test from an empty directory with no ambient credentials
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, key := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "GITHUB_TOKEN", "DATABASE_URL", "SECRET_KEY",
		"TRUSTCHAIN_SECRET_KEY", "TRUSTCHAIN_DATABASE_URL", "TRUSTCHAIN_LLM_API_KEY",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("TRUSTCHAIN_LOG_LEVEL", "off")
	t.Setenv("TRUSTCHAIN_GITHUB_CLONE_DIR", filepath.Join(dir, "clones"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHashCommand(t *testing.T) {
	isolate(t)
	t.Setenv("SECRET_KEY", "cli-secret")

	out, err := execute(t, "hash", "--user", "octocat", "--skills", "Python, go")
	require.NoError(t, err)

	h, err := hash.New("cli-secret")
	require.NoError(t, err)
	want, err := h.Hash("octocat", []string{"go", "python"})
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)
}

func TestHashCommand_RequiresSecretAndUser(t *testing.T) {
	isolate(t)

	_, err := execute(t, "hash", "--user", "octocat", "--skills", "go")
	assert.ErrorIs(t, err, errNoSecret)

	t.Setenv("SECRET_KEY", "x")
	_, err = execute(t, "hash", "--skills", "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")
}

func TestAnalyzeCommand_JSON(t *testing.T) {
	dir := isolate(t)
	repo := filepath.Join(dir, "repo")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	src := "package main\n\nimport \"github.com/spf13/cobra\"\n\nfunc main() {\n\tif true {\n\t\t_ = cobra.Command{}\n\t}\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(repo, "main.go"), []byte(src), 0o644))

	out, err := execute(t, "analyze", repo, "--json")
	require.NoError(t, err)

	var report struct {
		Libraries  map[string]int `json:"libraries"`
		Complexity struct {
			TotalFunctions int `json:"total_functions"`
		} `json:"complexity"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Libraries["github.com/spf13/cobra"])
	assert.GreaterOrEqual(t, report.Complexity.TotalFunctions, 1)
}

func TestAnalyzeCommand_BadPath(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "analyze", filepath.Join(dir, "missing"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = execute(t, "analyze", file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestMigrateCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "migrate", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS skill_verifications")

	_, err = execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestVerifyCommand_RequiresFlags(t *testing.T) {
	isolate(t)

	_, err := execute(t, "verify", "--resume", "cv.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--user is required")

	_, err = execute(t, "verify", "--user", "octocat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume is required")
}

func TestVerifyCommand_OfflineFallbacks(t *testing.T) {
	dir := isolate(t)
	t.Setenv("SECRET_KEY", "cli-secret")

	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/users/octocat/repos") {
			_, _ = w.Write([]byte("[]"))
			return
		}
		http.NotFound(w, r)
	}))
	defer gh.Close()
	t.Setenv("TRUSTCHAIN_GITHUB_BASE_URL", gh.URL)

	cv := filepath.Join(dir, "cv.txt")
	require.NoError(t, os.WriteFile(cv, []byte("Go developer\r\n\r\n\r\nKubernetes"), 0o644))

	out, err := execute(t, "verify", "--user", "octocat", "--resume", cv, "--json")
	require.NoError(t, err)

	var outcome struct {
		GitHubUsername   string                   `json:"github_username"`
		ResumePreview    string                   `json:"resume_preview"`
		ResumeSkills     []string                 `json:"resume_skills"`
		Result           types.VerificationResult `json:"result"`
		VerificationHash string                   `json:"verification_hash"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.Equal(t, "octocat", outcome.GitHubUsername)
	assert.Equal(t, "Go developer\n\nKubernetes", outcome.ResumePreview)
	assert.Empty(t, outcome.ResumeSkills, "no LLM key means no extracted skills")
	assert.Equal(t, types.MethodBasic, outcome.Result.Method)
	assert.Zero(t, outcome.Result.VerificationPercentage)

	h, err := hash.New("cli-secret")
	require.NoError(t, err)
	want, err := h.Hash("octocat", nil)
	require.NoError(t, err)
	assert.Equal(t, want, outcome.VerificationHash)
}

func TestConfigValidationFailsFast(t *testing.T) {
	isolate(t)
	t.Setenv("TRUSTCHAIN_LLM_PROVIDER", "llama")

	_, err := execute(t, "hash", "--user", "octocat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Provider")
}
