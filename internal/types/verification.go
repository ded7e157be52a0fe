package types

// Verification methods
const (
	MethodLLM   = "llm"
	MethodBasic = "basic"
)

// VerificationResult reconciles résumé skills against GitHub-derived skills
type VerificationResult struct {
	VerifiedSkills         []string           `json:"verified_skills"`
	UnverifiedSkills       []string           `json:"unverified_skills"`
	AdditionalSkills       []string           `json:"additional_skills"`
	VerificationPercentage float64            `json:"verification_percentage"` // 0-100
	StrengthPerSkill       map[string]float64 `json:"strength_per_skill,omitempty"` // 0-10
	Explanation            string             `json:"explanation"`
	Method                 string             `json:"method"`
}
