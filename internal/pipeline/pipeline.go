// Package pipeline orchestrates a skill verification run from résumé text to a stored, hashed result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maniishbhusal/TrustChain/internal/db"
	"github.com/maniishbhusal/TrustChain/internal/github"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/resume"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// Step names reported through ProgressCallback
const (
	StepResumeSkills  = "resume_skills"
	StepGitHubSummary = "github_summary"
	StepGitHubSkills  = "github_skills"
	StepVerification  = "verification"
	StepHash          = "hash"
	StepPersist       = "persist"
)

// DefaultMaxRepos is used when Options.MaxRepos is not positive
const DefaultMaxRepos = 5

// ErrEmptyUsername is returned when Input.Username is blank
var ErrEmptyUsername = errors.New("github username is required")

// ProgressEvent represents a progress update during a run
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when a step completes
type ProgressCallback func(event ProgressEvent)

// ResumeParser extracts claimed skills from résumé text
type ResumeParser interface {
	ParseText(ctx context.Context, text string) *resume.Parsed
}

// Summarizer collects and aggregates a user's repositories
type Summarizer interface {
	Summarize(ctx context.Context, user string, maxRepos int) (github.UserData, types.SkillProfile)
}

// SkillDeriver turns collected GitHub data into a skill list
type SkillDeriver interface {
	DeriveGitHubSkills(ctx context.Context, data github.UserData, profile types.SkillProfile) []string
}

// SkillVerifier reconciles claimed and demonstrated skills
type SkillVerifier interface {
	VerifyWithLLM(ctx context.Context, resumeSkills, githubSkills []string) types.VerificationResult
}

// Fingerprinter hashes a verification
type Fingerprinter interface {
	Hash(username string, verifiedSkills []string) (string, error)
}

// Store persists verification records
type Store interface {
	CreateVerification(ctx context.Context, in *db.VerificationInput) (uuid.UUID, error)
}

// Options wires a Pipeline. Store is optional. OnProgress may be called
// from concurrent goroutines.
type Options struct {
	Resume     ResumeParser
	Summarizer Summarizer
	Deriver    SkillDeriver
	Verifier   SkillVerifier
	Hasher     Fingerprinter
	Store      Store
	MaxRepos   int
	OnProgress ProgressCallback
	Logger     *zerolog.Logger
}

// Input is one verification request
type Input struct {
	Username   string
	ResumeText string
}

// Outcome is the result of a verification run
type Outcome struct {
	ID               uuid.UUID                `json:"id"`
	GitHubUsername   string                   `json:"github_username"`
	ResumePreview    string                   `json:"resume_preview"`
	ResumeSkills     []string                 `json:"resume_skills"`
	GitHubSkills     []string                 `json:"github_skills"`
	Profile          types.SkillProfile       `json:"skills_summary"`
	Result           types.VerificationResult `json:"result"`
	VerificationHash string                   `json:"verification_hash"`
}

// Persisted reports whether the outcome was stored
func (o *Outcome) Persisted() bool {
	return o.ID != uuid.Nil
}

// Pipeline runs verifications
type Pipeline struct {
	opts Options
	log  zerolog.Logger
}

// New validates the required components and builds a Pipeline
func New(opts Options) (*Pipeline, error) {
	switch {
	case opts.Resume == nil:
		return nil, errors.New("pipeline: resume parser is required")
	case opts.Summarizer == nil:
		return nil, errors.New("pipeline: summarizer is required")
	case opts.Deriver == nil:
		return nil, errors.New("pipeline: skill deriver is required")
	case opts.Verifier == nil:
		return nil, errors.New("pipeline: verifier is required")
	case opts.Hasher == nil:
		return nil, errors.New("pipeline: hasher is required")
	}
	if opts.MaxRepos <= 0 {
		opts.MaxRepos = DefaultMaxRepos
	}
	log := logger.Named("pipeline")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Pipeline{opts: opts, log: log}, nil
}

func (p *Pipeline) emit(step, message string, content any) {
	if p.opts.OnProgress != nil {
		p.opts.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}

// Verify extracts résumé skills and builds the GitHub skill list concurrently,
// then verifies, hashes and, when a store is configured, persists the result.
func (p *Pipeline) Verify(ctx context.Context, in Input) (*Outcome, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrEmptyUsername
	}
	log := p.log.With().Str("user", username).Logger()

	var (
		parsed       *resume.Parsed
		data         github.UserData
		profile      types.SkillProfile
		githubSkills []string
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		parsed = p.opts.Resume.ParseText(gCtx, in.ResumeText)
		p.emit(StepResumeSkills, fmt.Sprintf("Extracted %d resume skills", len(parsed.Skills)), parsed.Skills)
		return nil
	})

	g.Go(func() error {
		data, profile = p.opts.Summarizer.Summarize(gCtx, username, p.opts.MaxRepos)
		p.emit(StepGitHubSummary,
			fmt.Sprintf("Analyzed %d of %d repositories", profile.RepositoriesAnalyzed, len(data.Repos)), profile)

		githubSkills = p.opts.Deriver.DeriveGitHubSkills(gCtx, data, profile)
		p.emit(StepGitHubSkills, fmt.Sprintf("Derived %d GitHub skills", len(githubSkills)), githubSkills)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := p.opts.Verifier.VerifyWithLLM(ctx, parsed.Skills, githubSkills)
	p.emit(StepVerification,
		fmt.Sprintf("Verified %.2f%% of claimed skills (%s)", result.VerificationPercentage, result.Method), result)

	digest, err := p.opts.Hasher.Hash(username, result.VerifiedSkills)
	if err != nil {
		return nil, fmt.Errorf("hashing verification failed: %w", err)
	}
	p.emit(StepHash, "Computed verification hash", digest)

	out := &Outcome{
		GitHubUsername:   username,
		ResumePreview:    parsed.Preview,
		ResumeSkills:     parsed.Skills,
		GitHubSkills:     githubSkills,
		Profile:          profile,
		Result:           result,
		VerificationHash: digest,
	}

	if p.opts.Store != nil {
		id, err := p.opts.Store.CreateVerification(ctx, &db.VerificationInput{
			GitHubUsername:   username,
			ResumePreview:    out.ResumePreview,
			ResumeSkills:     out.ResumeSkills,
			GitHubSkills:     out.GitHubSkills,
			Result:           out.Result,
			VerificationHash: digest,
		})
		if err != nil {
			return nil, fmt.Errorf("storing verification failed: %w", err)
		}
		out.ID = id
		p.emit(StepPersist, fmt.Sprintf("Stored verification %s", id), id)
	}

	log.Info().
		Str("method", result.Method).
		Float64("percentage", result.VerificationPercentage).
		Int("resume_skills", len(out.ResumeSkills)).
		Int("github_skills", len(out.GitHubSkills)).
		Bool("persisted", out.Persisted()).
		Msg("verification complete")
	return out, nil
}
