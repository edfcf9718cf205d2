package audio

import (
	"fmt"
	"math"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
)

const (
	bitDepth        = 16
	resampleQuality = 3
	chunkSize       = 4096
)

// Silence returns round(seconds*rate) zero samples. Negative durations
// yield an empty buffer.
func Silence(seconds float64, rate int) []float64 {
	n := int(math.Round(seconds * float64(rate)))
	if n <= 0 {
		return nil
	}
	return make([]float64, n)
}

// Buffer accumulates mono samples in [-1, 1] at a fixed sample rate.
type Buffer struct {
	rate    int
	samples []float64
}

// NewBuffer creates an empty buffer at the given rate.
func NewBuffer(rate int) *Buffer {
	return &Buffer{rate: rate}
}

// Len is the number of samples held.
func (b *Buffer) Len() int { return len(b.samples) }

// Rate is the buffer sample rate.
func (b *Buffer) Rate() int { return b.rate }

// Duration is the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	return beep.SampleRate(b.rate).D(len(b.samples))
}

// AppendSilence adds round(seconds*rate) zero samples.
func (b *Buffer) AppendSilence(seconds float64) {
	b.samples = append(b.samples, Silence(seconds, b.rate)...)
}

// AppendStream drains s (recorded at format's rate), resampling to the
// buffer rate and averaging the two channels down to mono.
func (b *Buffer) AppendStream(s beep.Streamer, format beep.Format) (int, error) {
	var src beep.Streamer = s
	if int(format.SampleRate) != b.rate {
		src = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(b.rate), s)
	}

	chunk := make([][2]float64, chunkSize)
	added := 0
	for {
		n, ok := src.Stream(chunk)
		for i := 0; i < n; i++ {
			b.samples = append(b.samples, (chunk[i][0]+chunk[i][1])/2)
		}
		added += n
		if !ok {
			break
		}
	}
	if err := src.Err(); err != nil {
		return added, fmt.Errorf("stream error: %w", err)
	}
	return added, nil
}

// WriteWAV writes the buffer as 16-bit mono PCM.
func (b *Buffer) WriteWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav: %w", err)
	}
	defer f.Close()

	enc := gowav.NewEncoder(f, b.rate, bitDepth, 1, 1)

	data := make([]int, len(b.samples))
	for i, s := range b.samples {
		data[i] = toPCM16(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: b.rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

func toPCM16(s float64) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(math.Round(s * math.MaxInt16))
}
