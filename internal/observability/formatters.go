// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes up to limit bulleted items followed by an overflow line
func writeList(sb *strings.Builder, items []string, limit int) {
	count := min(len(items), limit)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > limit {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-limit))
	}
}

// PrintProgress prints a one-line step update
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(step, message string) {
	fmt.Fprintf(p.out, "[%s] %s\n", step, message)
}

// PrintSkillList outputs a titled list of skills
func (p *Printer) PrintSkillList(title string, skills []string) {
	var sb strings.Builder
	if len(skills) == 0 {
		sb.WriteString("(none)")
	} else {
		sb.WriteString(fmt.Sprintf("%d skills:\n", len(skills)))
		writeList(&sb, skills, maxItemsToShow*2)
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSkillProfile outputs languages, libraries, frameworks and practice adoption
func (p *Printer) PrintSkillProfile(profile *types.SkillProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Repositories analyzed: %d\n\n", profile.RepositoriesAnalyzed))

	if len(profile.Languages) > 0 {
		names := make([]string, 0, len(profile.Languages))
		for name := range profile.Languages {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			a, b := profile.Languages[names[i]], profile.Languages[names[j]]
			if a.Bytes != b.Bytes {
				return a.Bytes > b.Bytes
			}
			return names[i] < names[j]
		})
		sb.WriteString("Languages:\n")
		lines := make([]string, 0, len(names))
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s %.2f%%", name, profile.Languages[name].Percentage))
		}
		writeList(&sb, lines, maxItemsToShow)
		sb.WriteString("\n")
	}

	if len(profile.Libraries) > 0 {
		sb.WriteString("Top libraries:\n")
		lines := []string{}
		for _, lib := range analysis.Rank(profile.Libraries) {
			lines = append(lines, fmt.Sprintf("%s (%d)", lib.Name, lib.Count))
		}
		writeList(&sb, lines, maxItemsToShow)
		sb.WriteString("\n")
	}

	if len(profile.Frameworks) > 0 {
		sb.WriteString(fmt.Sprintf("Frameworks: %s\n\n", strings.Join(profile.Frameworks, ", ")))
	}

	sb.WriteString(fmt.Sprintf("Complexity: %.2f avg, %.2f lines/function\n",
		profile.Complexity.AverageComplexity, profile.Complexity.AverageFunctionLines))

	sb.WriteString("Practices:\n")
	for _, key := range types.PracticeKeys {
		sb.WriteString(fmt.Sprintf("  %-14s %6.2f%%\n", key, profile.Practices[key]))
	}

	p.printBox("GITHUB SKILLS SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintVerification outputs the verification result
func (p *Printer) PrintVerification(result *types.VerificationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Verified: %.2f%% (%s)\n\n", result.VerificationPercentage, result.Method))

	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString(title + ":\n")
		if len(result.StrengthPerSkill) == 0 {
			writeList(&sb, items, maxItemsToShow)
		} else {
			lines := make([]string, 0, len(items))
			for _, s := range items {
				if strength, ok := result.StrengthPerSkill[s]; ok {
					lines = append(lines, fmt.Sprintf("%s (%.1f/10)", s, strength))
				} else {
					lines = append(lines, s)
				}
			}
			writeList(&sb, lines, maxItemsToShow)
		}
		sb.WriteString("\n")
	}
	section("Verified skills", result.VerifiedSkills)
	section("Unverified skills", result.UnverifiedSkills)
	section("Additional skills", result.AdditionalSkills)

	if result.Explanation != "" {
		sb.WriteString(result.Explanation)
	}

	p.printBox("SKILL VERIFICATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAnalysis outputs one checkout's static analysis report
func (p *Printer) PrintAnalysis(path string, report *analysis.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Path: %s\n\n", path))

	libs := analysis.TopN(report.Libraries, maxItemsToShow)
	if len(libs) > 0 {
		sb.WriteString("Libraries:\n")
		lines := []string{}
		for _, lib := range analysis.Rank(libs) {
			lines = append(lines, fmt.Sprintf("%s (%d)", lib.Name, lib.Count))
		}
		writeList(&sb, lines, maxItemsToShow)
		sb.WriteString("\n")
	}

	c := report.Complexity
	sb.WriteString(fmt.Sprintf("Functions: %d, avg complexity %.2f, avg lines %.2f\n",
		c.TotalFunctions, c.AverageComplexity, c.AverageFunctionLines))
	if len(c.TopComplex) > 0 {
		sb.WriteString("Most complex:\n")
		lines := make([]string, 0, len(c.TopComplex))
		for _, fn := range c.TopComplex {
			lines = append(lines, fmt.Sprintf("%s %s (%d)", fn.File, fn.Name, fn.Complexity))
		}
		writeList(&sb, lines, maxItemsToShow)
	}
	sb.WriteString("\n")

	pat := report.Patterns
	checks := []string{}
	for _, flag := range []struct {
		on    bool
		label string
	}{
		{pat.HasTests, "tests"},
		{pat.HasCI, "ci"},
		{pat.HasDocs, "docs"},
		{pat.HasLinter, "linter"},
		{pat.UsesOOP, "oop"},
		{pat.UsesFunctional, "functional"},
	} {
		if flag.on {
			checks = append(checks, "✓"+flag.label)
		}
	}
	if len(checks) > 0 {
		sb.WriteString(fmt.Sprintf("Patterns: %s\n", strings.Join(checks, " ")))
	}
	if len(pat.Frameworks) > 0 {
		sb.WriteString(fmt.Sprintf("Frameworks: %s\n", strings.Join(pat.Frameworks, ", ")))
	}

	p.printBox("STATIC ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}
