package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripcast/pkg/model"
	"tripcast/pkg/prompts"
	"tripcast/pkg/text"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	pm, err := prompts.NewManager("")
	require.NoError(t, err)
	return NewBuilder(pm)
}

func TestSegments(t *testing.T) {
	b := newBuilder(t)
	exp := &model.Experience{Title: "Into the Light", Author: "wanderer", Age: "31", Gender: "Male"}

	segs, err := b.Segments(FieldsFrom(exp, "It began.\n\nThen   colours", "LSD"))
	require.NoError(t, err)

	var texts []string
	for _, s := range segs {
		texts = append(texts, s.Text)
		assert.Equal(t, text.Normalize(s.Text), s.Text)
	}

	assert.Equal(t, []string{
		"Welcome.",
		"This is a narrated experience report from Erowid.",
		"org.",
		"Into the Light.",
		"A LSD Trip Report.",
		"Submitted by wanderer.",
		"Age: 31.",
		"Gender: Male.",
		"It began.",
		"Then colours Thank you for listening.",
	}, texts)
	assert.Equal(t, text.PauseSentence, segs[len(segs)-1].Pause)
}

func TestBuild_Defaults(t *testing.T) {
	b := newBuilder(t)

	out, err := b.Build(Fields{Content: "Body."})
	require.NoError(t, err)
	assert.Contains(t, out, "Unknown Title.")
	assert.Contains(t, out, "A Unknown Trip Report.")
	assert.Contains(t, out, "Submitted by Unknown.")
	assert.Contains(t, out, "Age: Unknown.")
	assert.Contains(t, out, "Gender: Unknown.")
}
