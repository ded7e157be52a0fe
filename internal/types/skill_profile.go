// Package types provides type definitions for structured data used throughout the skill verification system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// LanguageShare is one language's byte count and share of the total
type LanguageShare struct {
	Bytes      int64   `json:"bytes"`
	Percentage float64 `json:"percentage"` // 0-100, two decimals
}

// ComplexitySummary is the complexity part of a SkillProfile
type ComplexitySummary struct {
	AverageComplexity    float64 `json:"average_complexity"`
	AverageFunctionLines float64 `json:"average_function_lines"`
}

// Practice keys used in SkillProfile.Practices
const (
	PracticeTests      = "testing"
	PracticeCI         = "ci_cd"
	PracticeDocs       = "documentation"
	PracticeLinting    = "linting"
	PracticeOOP        = "oop"
	PracticeFunctional = "functional"
)

// PracticeKeys lists every practice in report order
var PracticeKeys = []string{
	PracticeTests, PracticeCI, PracticeDocs, PracticeLinting, PracticeOOP, PracticeFunctional,
}

// SkillProfile is the skill evidence derived from one repository or aggregated over many
type SkillProfile struct {
	Languages            map[string]LanguageShare `json:"languages"`
	Libraries            map[string]int           `json:"libraries"`
	Frameworks           []string                 `json:"frameworks"`
	Complexity           ComplexitySummary        `json:"complexity"`
	Practices            map[string]float64       `json:"practices"` // adoption percentage per practice key
	RepositoriesAnalyzed int                      `json:"repositories_analyzed"`
}

// NewSkillProfile returns a zero profile with every collection initialized
// and every practice at 0
func NewSkillProfile() SkillProfile {
	p := SkillProfile{
		Languages:  map[string]LanguageShare{},
		Libraries:  map[string]int{},
		Frameworks: []string{},
		Practices:  make(map[string]float64, len(PracticeKeys)),
	}
	for _, k := range PracticeKeys {
		p.Practices[k] = 0
	}
	return p
}
