package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandoff_String(t *testing.T) {
	tests := []struct {
		name string
		h    Handoff
		want string
	}{
		{
			name: "without source",
			h:    Handoff{AudioPath: "a.wav", SubtitlePath: "a.srt", Keyword: "LSD"},
			want: "a.wav|a.srt|LSD",
		},
		{
			name: "with source",
			h:    Handoff{AudioPath: "a.wav", SubtitlePath: "a.srt", Keyword: "DMT", SourceURL: "https://example.org/x"},
			want: "a.wav|a.srt|DMT|https://example.org/x",
		},
		{
			name: "empty subtitles keeps field position",
			h:    Handoff{AudioPath: "a.wav", Keyword: "Unknown"},
			want: "a.wav||Unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.h.String())
		})
	}
}

func TestParseHandoff(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Handoff
		wantErr bool
	}{
		{
			name: "three fields",
			line: "Trip.wav|Trip.srt|Salvia\n",
			want: Handoff{AudioPath: "Trip.wav", SubtitlePath: "Trip.srt", Keyword: "Salvia"},
		},
		{
			name: "four fields",
			line: "Trip.wav|Trip.srt|MDMA|https://www.erowid.org/exp/1",
			want: Handoff{AudioPath: "Trip.wav", SubtitlePath: "Trip.srt", Keyword: "MDMA", SourceURL: "https://www.erowid.org/exp/1"},
		},
		{name: "two fields", line: "Trip.wav|LSD", wantErr: true},
		{name: "five fields", line: "a|b|c|d|e", wantErr: true},
		{name: "empty audio", line: "|b|c", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHandoff(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := ParseHandoff(got.String())
			require.NoError(t, err)
			assert.Equal(t, got, back)
		})
	}
}
