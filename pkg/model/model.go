package model

import (
	"time"
)

// Experience is a trip report as returned by the content API.
// It is read-only once fetched.
type Experience struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Gender  string `json:"gender"`
	Age     string `json:"age"`
	Content string `json:"content"`
}

// Segment is one unit of narration text with the pause that follows it.
type Segment struct {
	Text  string  `json:"text"`
	Pause float64 `json:"pause"` // seconds of silence after the text
}

// Run status values.
const (
	RunStatusOK            = "ok"
	RunStatusSkippedUpload = "skipped-upload"
	RunStatusFailedPrefix  = "failed:"
)

// Run is the persisted record of one pipeline execution.
type Run struct {
	ID         string    `json:"id"`
	SourceURL  string    `json:"source_url"`
	Title      string    `json:"title"`
	Keyword    string    `json:"keyword"`
	AudioPath  string    `json:"audio_path"`
	VideoPath  string    `json:"video_path"`
	UploadID   string    `json:"upload_id"`
	UploadURL  string    `json:"upload_url"`
	Status     string    `json:"status"`
	Degraded   bool      `json:"degraded"` // cleanup fell back to the raw content
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
