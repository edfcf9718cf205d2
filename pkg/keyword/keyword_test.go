package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectByFrequency(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "most frequent wins", text: "LSD LSD MDMA", want: "LSD", wantOK: true},
		{name: "case insensitive", text: "some mdma, more MDMA and one dmt", want: "MDMA", wantOK: true},
		{name: "tie goes to declaration order", text: "Heroin then cannabis", want: "Cannabis", wantOK: true},
		{name: "whole words only", text: "LSDs and DMTx are not words here", wantOK: false},
		{name: "no match", text: "A quiet evening with tea.", wantOK: false},
		{name: "empty", text: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectByFrequency(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTally(t *testing.T) {
	counts := Tally("Salvia. salvia! SALVIA? dmt")
	assert.Equal(t, map[string]int{"Salvia": 3, "DMT": 1}, counts)
}

func TestScanFirst(t *testing.T) {
	assert.Equal(t, "dmt", ScanFirst("I smoked dmt after the Salvia"))
	assert.Equal(t, Unknown, ScanFirst("nothing relevant"))
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		cleaned  string
		advisory string
		want     string
	}{
		{name: "frequency beats advisory", cleaned: "MDMA MDMA LSD", advisory: "LSD", want: "MDMA"},
		{name: "advisory when nothing counted", cleaned: "a calm night", advisory: "Ketamine", want: "Ketamine"},
		{name: "unknown advisory falls through", cleaned: "a calm night", advisory: Unknown, want: Unknown},
		{name: "empty advisory falls through", cleaned: "", advisory: "", want: Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.cleaned, tt.advisory))
		})
	}
}
