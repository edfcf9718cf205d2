// Package audio renders narration segments into a single WAV file.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeFile opens an MP3 or WAV file. WAV is tried first for a .wav
// extension, MP3 first otherwise; the other decoder is the fallback.
// The caller must Close the returned streamer.
func DecodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	decoders := []func(f *os.File) (beep.StreamSeekCloser, beep.Format, error){decodeMP3, decodeWAV}
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		decoders[0], decoders[1] = decoders[1], decoders[0]
	}

	var firstErr error
	for _, decode := range decoders {
		// Reopen per attempt; a failed decode leaves the file offset undefined.
		f, err := os.Open(path)
		if err != nil {
			return nil, beep.Format{}, err
		}
		streamer, format, err := decode(f)
		if err == nil {
			return streamer, format, nil
		}
		f.Close()
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", path, firstErr)
}

func decodeMP3(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	return mp3.Decode(f)
}

func decodeWAV(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	return wav.Decode(f)
}

// GetDuration returns the duration of the audio file at the given path.
func GetDuration(path string) (time.Duration, error) {
	streamer, format, err := DecodeFile(path)
	if err != nil {
		return 0, err
	}
	defer streamer.Close()

	return format.SampleRate.D(streamer.Len()), nil
}
