package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateVerification stores a verification record and returns its ID
func (db *DB) CreateVerification(ctx context.Context, in *VerificationInput) (uuid.UUID, error) {
	resumeSkills, githubSkills, result, err := encodeVerification(in)
	if err != nil {
		return uuid.Nil, err
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO skill_verifications
		   (github_username, resume_preview, resume_skills, github_skills, result, verification_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		in.GitHubUsername, in.ResumePreview, resumeSkills, githubSkills, result, in.VerificationHash,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create verification: %w", err)
	}
	return id, nil
}

// GetVerification retrieves a verification by ID. It returns nil, nil when no record exists.
func (db *DB) GetVerification(ctx context.Context, id uuid.UUID) (*Verification, error) {
	var (
		v                                  Verification
		resumeSkills, githubSkills, result []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, github_username, resume_preview, resume_skills, github_skills,
		        result, verification_hash, created_at
		 FROM skill_verifications WHERE id = $1`,
		id,
	).Scan(&v.ID, &v.GitHubUsername, &v.ResumePreview, &resumeSkills, &githubSkills,
		&result, &v.VerificationHash, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}

	if err := decodeVerification(&v, resumeSkills, githubSkills, result); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVerifications returns the most recent verifications for a username, newest first
func (db *DB) ListVerifications(ctx context.Context, username string, limit int) ([]Verification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, github_username, resume_preview, resume_skills, github_skills,
		        result, verification_hash, created_at
		 FROM skill_verifications WHERE github_username = $1
		 ORDER BY created_at DESC LIMIT $2`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	defer rows.Close()

	out := []Verification{}
	for rows.Next() {
		var (
			v                                  Verification
			resumeSkills, githubSkills, result []byte
		)
		if err := rows.Scan(&v.ID, &v.GitHubUsername, &v.ResumePreview, &resumeSkills, &githubSkills,
			&result, &v.VerificationHash, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		if err := decodeVerification(&v, resumeSkills, githubSkills, result); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verifications: %w", err)
	}
	return out, nil
}

// encodeVerification marshals the JSONB columns. Nil skill lists are stored as [].
func encodeVerification(in *VerificationInput) (resumeSkills, githubSkills, result []byte, err error) {
	if in == nil {
		return nil, nil, nil, errors.New("verification input is nil")
	}
	if resumeSkills, err = json.Marshal(nonNil(in.ResumeSkills)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal resume skills: %w", err)
	}
	if githubSkills, err = json.Marshal(nonNil(in.GitHubSkills)); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal github skills: %w", err)
	}
	if result, err = json.Marshal(in.Result); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal verification result: %w", err)
	}
	return resumeSkills, githubSkills, result, nil
}

func decodeVerification(v *Verification, resumeSkills, githubSkills, result []byte) error {
	if err := json.Unmarshal(resumeSkills, &v.ResumeSkills); err != nil {
		return fmt.Errorf("failed to unmarshal resume skills: %w", err)
	}
	if err := json.Unmarshal(githubSkills, &v.GitHubSkills); err != nil {
		return fmt.Errorf("failed to unmarshal github skills: %w", err)
	}
	if err := json.Unmarshal(result, &v.Result); err != nil {
		return fmt.Errorf("failed to unmarshal verification result: %w", err)
	}
	v.ResumeSkills = nonNil(v.ResumeSkills)
	v.GitHubSkills = nonNil(v.GitHubSkills)
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
