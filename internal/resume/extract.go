// Package resume extracts text and claimed skills from uploaded résumés.
package resume

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/llm"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/prompts"
	"github.com/maniishbhusal/TrustChain/internal/skills"
)

const (
	// MaxPromptRunes is how much résumé text is sent to the LLM
	MaxPromptRunes = 3000
	// PreviewRunes is the length of the stored résumé preview
	PreviewRunes = 1000
)

// Parsed is the outcome of parsing one résumé
type Parsed struct {
	Text    string   `json:"-"`
	Preview string   `json:"preview"`
	Skills  []string `json:"skills"`
}

// Extractor pulls claimed skills out of résumé text with one LLM call
type Extractor struct {
	client  llm.Client
	log     zerolog.Logger
	extract func(r io.ReaderAt, size int64) (string, error)
}

// NewExtractor creates an Extractor; a nil client extracts no skills
func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client, log: logger.Named("resume"), extract: ExtractText}
}

// ExtractSkills returns the skills the LLM finds in the first MaxPromptRunes
// of text. Every failure yields an empty list.
func (e *Extractor) ExtractSkills(ctx context.Context, text string) []string {
	text = strings.TrimSpace(text)
	if e.client == nil || text == "" {
		return []string{}
	}

	tmpl := prompts.Must(prompts.ResumeSkills)
	prompt, err := tmpl.Render(map[string]string{
		"ResumeText": truncateRunes(text, MaxPromptRunes),
	})
	if err != nil {
		e.log.Error().Err(err).Msg("resume prompt unavailable")
		return []string{}
	}

	reply, err := e.client.GenerateJSON(ctx, llm.Request{
		System: tmpl.System,
		Prompt: prompt,
		Tier:   tmpl.Tier,
	})
	if err != nil {
		e.log.Warn().Err(err).Msg("resume skill extraction failed")
		return []string{}
	}

	found, err := skills.ParseList(reply)
	if err != nil {
		e.log.Warn().Err(err).Msg("resume skill reply was not a JSON list")
		return []string{}
	}
	return found
}

// Parse extracts the text of a PDF résumé, its preview and its skills
func (e *Extractor) Parse(ctx context.Context, r io.ReaderAt, size int64) (*Parsed, error) {
	text, err := e.extract(r, size)
	if err != nil {
		return nil, err
	}
	return e.ParseText(ctx, text), nil
}

// ParseText is Parse for text that is already extracted
func (e *Extractor) ParseText(ctx context.Context, text string) *Parsed {
	return &Parsed{
		Text:    text,
		Preview: truncateRunes(text, PreviewRunes),
		Skills:  e.ExtractSkills(ctx, text),
	}
}
