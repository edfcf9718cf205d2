// Package cleanup turns raw report text into narration-ready text and an
// advisory keyword guess.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tripcast/pkg/keyword"
	"tripcast/pkg/llm"
	"tripcast/pkg/prompts"
	"tripcast/pkg/text"
)

// Intent is the LLM profile name used for cleanup calls.
const Intent = "cleanup"

// Result is the outcome of a cleanup. A degraded result carries the raw text
// unchanged and a keyword scanned from it; Reason says why.
type Result struct {
	Content  string
	Keyword  string
	Degraded bool
	Reason   error
}

// Cleaner prepares raw report content. It never fails: problems produce a
// degraded Result instead.
type Cleaner interface {
	Clean(ctx context.Context, raw string) Result
}

// Degrade builds the fallback result for raw content.
func Degrade(raw string, reason error) Result {
	return Result{
		Content:  raw,
		Keyword:  keyword.ScanFirst(raw),
		Degraded: true,
		Reason:   reason,
	}
}

// PassthroughCleaner only strips markup. It is the default when no LLM is used.
type PassthroughCleaner struct{}

func (PassthroughCleaner) Clean(ctx context.Context, raw string) Result {
	content := text.StripMarkup(raw)
	return Result{
		Content: content,
		Keyword: keyword.ScanFirst(content),
	}
}

// llmResponse is the JSON object the cleanup prompt asks for.
type llmResponse struct {
	CleanedContent   string `json:"cleaned_content"`
	PrimarySubstance string `json:"primary_substance"`
}

// LLMCleaner asks a text-generation provider to fix punctuation, drop repeated
// sentences and guess the primary substance.
type LLMCleaner struct {
	provider llm.Provider
	prompts  *prompts.Manager
}

// NewLLMCleaner creates a cleaner backed by provider.
func NewLLMCleaner(provider llm.Provider, pm *prompts.Manager) *LLMCleaner {
	return &LLMCleaner{provider: provider, prompts: pm}
}

func (c *LLMCleaner) Clean(ctx context.Context, raw string) Result {
	if c.provider == nil {
		return Degrade(raw, errors.New("no llm provider configured"))
	}

	prompt, err := c.prompts.Render(prompts.Cleanup, map[string]any{
		"Content":    raw,
		"Vocabulary": strings.Join(keyword.Vocabulary, ", "),
	})
	if err != nil {
		return Degrade(raw, fmt.Errorf("render cleanup prompt: %w", err))
	}

	var resp llmResponse
	if err := c.provider.GenerateJSON(ctx, Intent, prompt, &resp); err != nil {
		slog.Warn("LLM cleanup failed, using raw content", "error", err)
		return Degrade(raw, err)
	}

	res := Result{
		Content: strings.TrimSpace(resp.CleanedContent),
		Keyword: strings.TrimSpace(resp.PrimarySubstance),
	}
	if res.Content == "" {
		res.Content = raw
	}
	if res.Keyword == "" {
		res.Keyword = keyword.Unknown
	}
	slog.Debug("LLM cleanup done", "raw_len", len(raw), "clean_len", len(res.Content), "advisory", res.Keyword)
	return res
}
