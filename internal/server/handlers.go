package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/pipeline"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// Form field names for POST /verify-skills/
const (
	FieldResume         = "resume"
	FieldGitHubUsername = "github_username"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	healthTimeout    = 2 * time.Second
)

// githubUsernamePattern is alphanumerics separated by single hyphens
var githubUsernamePattern = regexp.MustCompile(`^[A-Za-z0-9]+(-[A-Za-z0-9]+)*$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("github_username", func(fl validator.FieldLevel) bool {
		return githubUsernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// VerifyRequest is the validated non-file part of a verification upload
type VerifyRequest struct {
	GitHubUsername string `validate:"required,min=1,max=39,github_username"`
}

// VerifyResponse is returned by POST /verify-skills/
type VerifyResponse struct {
	ID               string                   `json:"id,omitempty"`
	GitHubUsername   string                   `json:"github_username"`
	ResumeSkills     []string                 `json:"resume_skills"`
	GitHubSkills     []string                 `json:"github_skills"`
	Result           types.VerificationResult `json:"result"`
	VerificationHash string                   `json:"verification_hash"`
}

// validateUsername maps validator failures onto ErrValidation
func validateUsername(username string) error {
	err := validate.Struct(VerifyRequest{GitHubUsername: username})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		msg := "must be 1-39 letters, digits or single hyphens"
		if verrs[0].Tag() == "required" {
			msg = "is required"
		}
		return &ErrValidation{Field: FieldGitHubUsername, Message: msg}
	}
	return &ErrValidation{Field: FieldGitHubUsername, Message: err.Error()}
}

// handleVerifySkills accepts a résumé upload and a GitHub username and runs a verification
func (s *Server) handleVerifySkills(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorFrom(w, r, &ErrUploadTooLarge{Limit: s.maxUpload})
			return
		}
		s.errorFrom(w, r, &ErrValidation{Field: FieldResume, Message: "expected a multipart form upload"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	username := strings.TrimSpace(r.FormValue(FieldGitHubUsername))
	if err := validateUsername(username); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	file, header, err := r.FormFile(FieldResume)
	if err != nil {
		s.errorFrom(w, r, &ErrValidation{Field: FieldResume, Message: "a PDF file is required"})
		return
	}
	defer func() { _ = file.Close() }()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		s.errorFrom(w, r, &ErrValidation{Field: FieldResume, Message: "must be a .pdf file"})
		return
	}

	text, err := s.extractText(file, header.Size)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}

	log := zerolog.Ctx(r.Context())
	log.Info().Str("user", username).Int64("resume_bytes", header.Size).Msg("verification requested")

	outcome, err := s.pipeline.Verify(r.Context(), pipeline.Input{Username: username, ResumeText: text})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Str("user", username).Msg("client went away during verification")
			return
		}
		s.errorFrom(w, r, err)
		return
	}

	resp := VerifyResponse{
		GitHubUsername:   outcome.GitHubUsername,
		ResumeSkills:     outcome.ResumeSkills,
		GitHubSkills:     outcome.GitHubSkills,
		Result:           outcome.Result,
		VerificationHash: outcome.VerificationHash,
	}
	if outcome.Persisted() {
		resp.ID = outcome.ID.String()
	}
	s.jsonResponse(w, http.StatusCreated, resp)
}

// handleGetVerification returns one stored verification
func (s *Server) handleGetVerification(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFrom(w, r, ErrStoreUnavailable)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	v, err := s.store.GetVerification(r.Context(), id)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	if v == nil {
		s.errorFrom(w, r, &ErrVerificationNotFound{ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, v)
}

// handleListVerifications returns recent verifications for ?github_username=
func (s *Server) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorFrom(w, r, ErrStoreUnavailable)
		return
	}

	username := strings.TrimSpace(r.URL.Query().Get(FieldGitHubUsername))
	if err := validateUsername(username); err != nil {
		s.errorFrom(w, r, err)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			s.errorFrom(w, r, &ErrValidation{Field: "limit", Message: "must be between 1 and 100"})
			return
		}
		limit = n
	}

	list, err := s.store.ListVerifications(r.Context(), username, limit)
	if err != nil {
		s.errorFrom(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		FieldGitHubUsername: username,
		"verifications":     list,
	})
}

// handleHealth returns server health status, including the database when configured
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "database": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("database ping failed")
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
}
