package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/maniishbhusal/TrustChain/internal/types"
)

// Verification is a persisted skill verification record
type Verification struct {
	ID               uuid.UUID                `json:"id"`
	GitHubUsername   string                   `json:"github_username"`
	ResumePreview    string                   `json:"resume_preview"`
	ResumeSkills     []string                 `json:"resume_skills"`
	GitHubSkills     []string                 `json:"github_skills"`
	Result           types.VerificationResult `json:"result"`
	VerificationHash string                   `json:"verification_hash"`
	CreatedAt        time.Time                `json:"created_at"`
}

// VerificationInput holds the fields written by CreateVerification
type VerificationInput struct {
	GitHubUsername   string
	ResumePreview    string
	ResumeSkills     []string
	GitHubSkills     []string
	Result           types.VerificationResult
	VerificationHash string
}
