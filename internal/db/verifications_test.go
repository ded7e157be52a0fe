package db

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maniishbhusal/TrustChain/internal/types"
)

func TestSchema_DeclaresVerificationTable(t *testing.T) {
	ddl := Schema()
	assert.Contains(t, ddl, "CREATE TABLE IF NOT EXISTS skill_verifications")
	for _, col := range []string{"github_username", "resume_preview", "resume_skills",
		"github_skills", "result", "verification_hash", "created_at"} {
		assert.Contains(t, ddl, col)
	}
}

func TestEncodeVerification_NilListsBecomeEmptyArrays(t *testing.T) {
	resumeSkills, githubSkills, result, err := encodeVerification(&VerificationInput{
		GitHubUsername: "octocat",
		Result:         types.VerificationResult{Method: types.MethodBasic},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(resumeSkills))
	assert.JSONEq(t, `[]`, string(githubSkills))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, "basic", decoded["method"])
}

func TestEncodeVerification_NilInput(t *testing.T) {
	_, _, _, err := encodeVerification(nil)
	assert.Error(t, err)
}

func TestDecodeVerification_RoundTrip(t *testing.T) {
	in := &VerificationInput{
		ResumeSkills: []string{"Go", "SQL"},
		GitHubSkills: []string{"Go"},
		Result: types.VerificationResult{
			VerifiedSkills:         []string{"Go"},
			UnverifiedSkills:       []string{"SQL"},
			AdditionalSkills:       []string{},
			VerificationPercentage: 50,
			Explanation:            "basic",
			Method:                 types.MethodBasic,
		},
	}
	resumeSkills, githubSkills, result, err := encodeVerification(in)
	require.NoError(t, err)

	var v Verification
	require.NoError(t, decodeVerification(&v, resumeSkills, githubSkills, result))
	assert.Equal(t, []string{"Go", "SQL"}, v.ResumeSkills)
	assert.Equal(t, []string{"Go"}, v.GitHubSkills)
	assert.Equal(t, in.Result, v.Result)
}

func TestDecodeVerification_NullColumns(t *testing.T) {
	var v Verification
	require.NoError(t, decodeVerification(&v, []byte("null"), []byte("null"), []byte(`{}`)))
	assert.Equal(t, []string{}, v.ResumeSkills)
	assert.Equal(t, []string{}, v.GitHubSkills)
}

func TestDecodeVerification_BadJSON(t *testing.T) {
	var v Verification
	err := decodeVerification(&v, []byte("{"), []byte("[]"), []byte(`{}`))
	assert.Error(t, err)
}
