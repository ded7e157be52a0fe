package skills

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"

	"github.com/maniishbhusal/TrustChain/internal/cache"
	"github.com/maniishbhusal/TrustChain/internal/llm"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/prompts"
	"github.com/maniishbhusal/TrustChain/internal/schemas"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

const (
	// BasicExplanation is the explanation attached to fallback results
	BasicExplanation = "Basic comparison performed. This is a fallback method."
	// MissingExplanation backfills an LLM result without an explanation
	MissingExplanation = "No explanation provided"

	maxStrength = 10.0
)

// Fallback reasons
const (
	reasonNoClient  = "no_client"
	reasonLLMError  = "llm_error"
	reasonMalformed = "malformed_response"
)

var (
	// fallbackTotal counts verifications answered by BasicVerification
	fallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_verification_fallback_total",
		Help: "Skill verifications that fell back to basic comparison, by reason",
	}, []string{"reason"})
)

// errMalformed marks an LLM reply that does not satisfy the verification contract
var errMalformed = errors.New("malformed verification response")

// verificationContract is the key contract placed in the prompt
var verificationContract = llm.Contract{
	Name: "SkillVerification",
	Fields: []llm.Field{
		{Name: "verified_skills", Type: "array", Description: "resume skills demonstrated on GitHub"},
		{Name: "unverified_skills", Type: "array", Description: "resume skills not found on GitHub"},
		{Name: "additional_skills", Type: "array", Description: "GitHub skills missing from the resume"},
		{Name: "verification_percentage", Type: "number", Description: "0 to 100"},
		{Name: "strength_per_skill", Type: "object", Description: "resume skill to score from 0 to 10"},
		{Name: "explanation", Type: "string", Description: "reasoning and a final credibility score out of 10"},
	},
}

// Verifier reconciles résumé skills with GitHub skills
type Verifier struct {
	client llm.Client
	cache  cache.Cache
	ttl    time.Duration
	log    zerolog.Logger
}

// NewVerifier creates a Verifier; a nil client always uses BasicVerification
func NewVerifier(client llm.Client, c cache.Cache, ttl time.Duration) *Verifier {
	if c == nil {
		c = cache.Nop{}
	}
	return &Verifier{client: client, cache: c, ttl: ttl, log: logger.Named("verifier")}
}

// TTL is how long verification results stay cached
func (v *Verifier) TTL() time.Duration { return v.ttl }

// VerifyWithLLM asks the LLM to cross-verify the two skill lists. Any LLM
// or decoding failure falls back to BasicVerification. Only LLM results are cached.
func (v *Verifier) VerifyWithLLM(ctx context.Context, resumeSkills, githubSkills []string) types.VerificationResult {
	if v.client == nil {
		fallbackTotal.WithLabelValues(reasonNoClient).Inc()
		return BasicVerification(resumeSkills, githubSkills)
	}

	key := cache.Key("verification", "result", resumeSkills, githubSkills)
	result, err := cache.Remember(ctx, v.cache, key, v.ttl, func(ctx context.Context) (types.VerificationResult, error) {
		return v.askLLM(ctx, resumeSkills, githubSkills)
	})
	if err != nil {
		reason := reasonLLMError
		if errors.Is(err, errMalformed) {
			reason = reasonMalformed
		}
		fallbackTotal.WithLabelValues(reason).Inc()
		v.log.Warn().Err(err).Str("reason", reason).Msg("llm verification failed, using basic comparison")
		return BasicVerification(resumeSkills, githubSkills)
	}
	return result
}

func (v *Verifier) askLLM(ctx context.Context, resumeSkills, githubSkills []string) (types.VerificationResult, error) {
	resumeJSON, _ := json.Marshal(nonNil(resumeSkills))
	githubJSON, _ := json.Marshal(nonNil(githubSkills))

	tmpl := prompts.Must(prompts.VerifySkills)
	task, err := tmpl.Render(map[string]string{
		"ResumeSkills": string(resumeJSON),
		"GitHubSkills": string(githubJSON),
	})
	if err != nil {
		return types.VerificationResult{}, err
	}

	reply, err := v.client.GenerateJSON(ctx, llm.Request{
		System: tmpl.System,
		Prompt: verificationContract.Append(task),
		Tier:   tmpl.Tier,
	})
	if err != nil {
		return types.VerificationResult{}, err
	}
	if missing, err := verificationContract.Missing(reply); err == nil && len(missing) > 0 {
		v.log.Debug().Strs("missing", missing).Msg("verification reply omitted keys")
	}
	return ParseVerification(reply)
}

// verificationPayload uses pointers so missing keys can be told apart from zero values
type verificationPayload struct {
	VerifiedSkills         []string           `json:"verified_skills"`
	UnverifiedSkills       []string           `json:"unverified_skills"`
	AdditionalSkills       []string           `json:"additional_skills"`
	VerificationPercentage *float64           `json:"verification_percentage"`
	StrengthPerSkill       map[string]float64 `json:"strength_per_skill"`
	Explanation            *string            `json:"explanation"`
}

// ParseVerification decodes and normalizes an LLM verification reply:
// missing keys are backfilled and scores clamped to their ranges
func ParseVerification(reply string) (types.VerificationResult, error) {
	cleaned := llm.CleanJSONBlock(reply)

	var object map[string]any
	if err := json.Unmarshal([]byte(cleaned), &object); err != nil {
		return types.VerificationResult{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	// null keys are backfilled like absent ones
	for k, v := range object {
		if v == nil {
			delete(object, k)
		}
	}
	present, err := json.Marshal(object)
	if err != nil {
		return types.VerificationResult{}, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if err := schemas.Validate(schemas.Verification, string(present)); err != nil {
		return types.VerificationResult{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	var p verificationPayload
	if err := json.Unmarshal(present, &p); err != nil {
		return types.VerificationResult{}, fmt.Errorf("%w: %v", errMalformed, err)
	}

	result := types.VerificationResult{
		VerifiedSkills:   nonNil(p.VerifiedSkills),
		UnverifiedSkills: nonNil(p.UnverifiedSkills),
		AdditionalSkills: nonNil(p.AdditionalSkills),
		Explanation:      MissingExplanation,
		Method:           types.MethodLLM,
	}
	if p.VerificationPercentage != nil {
		result.VerificationPercentage = clamp(*p.VerificationPercentage, 0, 100)
	}
	if p.Explanation != nil {
		result.Explanation = *p.Explanation
	}
	if len(p.StrengthPerSkill) > 0 {
		result.StrengthPerSkill = make(map[string]float64, len(p.StrengthPerSkill))
		for skill, score := range p.StrengthPerSkill {
			result.StrengthPerSkill[skill] = clamp(score, 0, maxStrength)
		}
	}
	return result, nil
}

// BasicVerification intersects the two lists case-insensitively. Verified
// skills keep the résumé spelling and order and are listed once, while the
// percentage divides by every non-blank résumé entry.
func BasicVerification(resumeSkills, githubSkills []string) types.VerificationResult {
	fold := newFolder()

	demonstrated := make(map[string]bool, len(githubSkills))
	for _, s := range githubSkills {
		demonstrated[fold(s)] = true
	}

	result := types.VerificationResult{
		VerifiedSkills:   []string{},
		UnverifiedSkills: []string{},
		AdditionalSkills: []string{},
		Explanation:      BasicExplanation,
		Method:           types.MethodBasic,
	}

	claims := dedupeFold(resumeSkills)
	claimed := make(map[string]bool, len(claims))
	for _, s := range claims {
		k := fold(s)
		claimed[k] = true
		if demonstrated[k] {
			result.VerifiedSkills = append(result.VerifiedSkills, s)
		} else {
			result.UnverifiedSkills = append(result.UnverifiedSkills, s)
		}
	}
	for _, s := range dedupeFold(githubSkills) {
		if !claimed[fold(s)] {
			result.AdditionalSkills = append(result.AdditionalSkills, s)
		}
	}

	if total := countNonBlank(resumeSkills); total > 0 {
		result.VerificationPercentage = float64(len(result.VerifiedSkills)) / float64(total) * 100
	}
	return result
}

func countNonBlank(items []string) int {
	n := 0
	for _, s := range items {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// newFolder returns a trimming Unicode case-folding function
func newFolder() func(string) string {
	c := cases.Fold()
	return func(s string) string {
		return c.String(strings.TrimSpace(s))
	}
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
