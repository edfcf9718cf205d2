// Package script assembles the narration text read by the speech engine.
package script

import (
	"fmt"

	"tripcast/pkg/model"
	"tripcast/pkg/prompts"
	"tripcast/pkg/text"
)

// Fields fill the narration template. Empty metadata is rendered as
// "Unknown" ("Unknown Title" for the title) by the template.
type Fields struct {
	Title   string
	Author  string
	Age     string
	Gender  string
	Keyword string
	Content string
}

// FieldsFrom copies report metadata and pairs it with the cleaned content and keyword.
func FieldsFrom(exp *model.Experience, content, kw string) Fields {
	return Fields{
		Title:   exp.Title,
		Author:  exp.Author,
		Age:     exp.Age,
		Gender:  exp.Gender,
		Keyword: kw,
		Content: content,
	}
}

// Builder renders narration scripts.
type Builder struct {
	prompts *prompts.Manager
}

// NewBuilder creates a Builder using the narration template of pm.
func NewBuilder(pm *prompts.Manager) *Builder {
	return &Builder{prompts: pm}
}

// Build returns the raw narration script.
func (b *Builder) Build(f Fields) (string, error) {
	out, err := b.prompts.Render(prompts.Narration, f)
	if err != nil {
		return "", fmt.Errorf("render narration: %w", err)
	}
	return out, nil
}

// Segments builds the script, normalizes it and splits it for synthesis.
func (b *Builder) Segments(f Fields) ([]model.Segment, error) {
	s, err := b.Build(f)
	if err != nil {
		return nil, err
	}
	return text.Split(text.Normalize(s)), nil
}
