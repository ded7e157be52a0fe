//go:build integration

package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maniishbhusal/TrustChain/internal/types"
)

func setupTestDB(t *testing.T) *DB {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := Connect(ctx, dbURL)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to DB: %v", err)
	}
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func TestVerificationCRUD_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	username := "user-" + uuid.NewString()[:8]
	in := &VerificationInput{
		GitHubUsername: username,
		ResumePreview:  "Jane Doe, Go developer",
		ResumeSkills:   []string{"Go", "Kubernetes"},
		GitHubSkills:   []string{"Go"},
		Result: types.VerificationResult{
			VerifiedSkills:         []string{"Go"},
			UnverifiedSkills:       []string{"Kubernetes"},
			AdditionalSkills:       []string{},
			VerificationPercentage: 50,
			StrengthPerSkill:       map[string]float64{"Go": 8},
			Explanation:            "Go is used across repositories.",
			Method:                 types.MethodLLM,
		},
		VerificationHash: "abc123",
	}

	id, err := db.CreateVerification(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := db.GetVerification(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, username, got.GitHubUsername)
	assert.Equal(t, in.ResumeSkills, got.ResumeSkills)
	assert.Equal(t, in.Result, got.Result)
	assert.Equal(t, "abc123", got.VerificationHash)
	assert.False(t, got.CreatedAt.IsZero())

	list, err := db.ListVerifications(ctx, username, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
}

func TestGetVerification_Missing_Integration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	got, err := db.GetVerification(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
