// Package pipeline runs one report through fetch, audio, video, confirm and
// upload, in that order, and records the outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"tripcast/pkg/audio"
	"tripcast/pkg/cleanup"
	"tripcast/pkg/keyword"
	"tripcast/pkg/model"
	"tripcast/pkg/script"
	"tripcast/pkg/source"
	"tripcast/pkg/stage"
	"tripcast/pkg/store"
	"tripcast/pkg/upload"
	"tripcast/pkg/video"
)

// Stage names, as used in StageError and in failed run statuses.
const (
	StageFetch   = "fetch"
	StageAudio   = "audio"
	StageVideo   = "video"
	StageConfirm = "confirm"
	StageUpload  = "upload"
)

// untitled names reports that come without a title.
const untitled = "Unknown Title"

// StageError reports which stage stopped the run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Source provides report content.
type Source interface {
	Random(ctx context.Context, candidates []string) (string, error)
	Fetch(ctx context.Context, experienceURL string) (*model.Experience, error)
}

// ScriptBuilder turns report fields into narration segments.
type ScriptBuilder interface {
	Segments(f script.Fields) ([]model.Segment, error)
}

// Renderer synthesizes segments into one audio file.
type Renderer interface {
	Render(ctx context.Context, title string, segments []model.Segment) (*audio.Rendering, error)
}

// Deps are the collaborators of an Orchestrator. Uploader and Store may be
// nil: without an uploader the run stops after the video stage, without a
// store nothing is recorded.
type Deps struct {
	Source    Source
	Cleaner   cleanup.Cleaner
	Script    ScriptBuilder
	Renderer  Renderer
	Video     video.Builder
	Uploader  upload.Uploader
	Confirmer Confirmer
	Store     store.RunStore
}

// Orchestrator runs the stages strictly one after another. A failed stage
// ends the run; nothing is retried and earlier outputs are left in place.
type Orchestrator struct {
	deps Deps
	now  func() time.Time
}

// New creates an Orchestrator. A nil Confirmer asks for nothing and approves.
func New(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline: source is required")
	case deps.Cleaner == nil:
		return nil, errors.New("pipeline: cleaner is required")
	case deps.Script == nil:
		return nil, errors.New("pipeline: script builder is required")
	case deps.Renderer == nil:
		return nil, errors.New("pipeline: renderer is required")
	}
	if deps.Confirmer == nil {
		deps.Confirmer = AutoConfirm{}
	}
	return &Orchestrator{deps: deps, now: time.Now}, nil
}

// audioResult carries what the video and upload stages need from the audio stage.
type audioResult struct {
	handoff model.Handoff
	title   string
}

// RunAudio runs fetch and audio only and returns the handoff for the
// downstream stages. An empty sourceURL picks a random report.
func (o *Orchestrator) RunAudio(ctx context.Context, sourceURL string) (model.Handoff, error) {
	run := o.newRun(sourceURL)
	res, err := o.runAudio(ctx, run, sourceURL)
	o.finish(ctx, run, err)
	if err != nil {
		return model.Handoff{}, err
	}
	return res.handoff, nil
}

// Run executes every stage. A declined confirmation is not an error; the run
// is then recorded as skipped-upload.
func (o *Orchestrator) Run(ctx context.Context, sourceURL string) (*model.Run, error) {
	run := o.newRun(sourceURL)
	err := o.runAll(ctx, run, sourceURL)
	o.finish(ctx, run, err)
	return run, err
}

func (o *Orchestrator) runAll(ctx context.Context, run *model.Run, sourceURL string) error {
	res, err := o.runAudio(ctx, run, sourceURL)
	if err != nil {
		return err
	}

	if o.deps.Video == nil {
		run.Status = model.RunStatusSkippedUpload
		return nil
	}
	slog.Info("Stage started", "stage", StageVideo, "audio", res.handoff.AudioPath)
	videoPath, err := o.deps.Video.Build(ctx, res.handoff)
	if err != nil {
		return &StageError{Stage: StageVideo, Err: err}
	}
	run.VideoPath = videoPath
	slog.Info("Video built", "path", videoPath)

	if o.deps.Uploader == nil {
		slog.Info("No upload target configured, stopping after video")
		run.Status = model.RunStatusSkippedUpload
		return nil
	}

	req := upload.Request{
		VideoPath:   videoPath,
		Title:       res.title,
		Description: upload.Describe(res.title, res.handoff.Keyword, res.handoff.SourceURL),
		Keyword:     res.handoff.Keyword,
		SourceURL:   res.handoff.SourceURL,
	}

	ok, err := o.deps.Confirmer.Confirm(ctx, req)
	if err != nil {
		return &StageError{Stage: StageConfirm, Err: err}
	}
	if !ok {
		slog.Info("Upload declined", "video", videoPath)
		run.Status = model.RunStatusSkippedUpload
		return nil
	}

	slog.Info("Stage started", "stage", StageUpload, "video", videoPath)
	result, err := o.deps.Uploader.Upload(ctx, req)
	if result != nil {
		run.UploadID = result.ID
		run.UploadURL = result.URL
	}
	if err != nil {
		return &StageError{Stage: StageUpload, Err: err}
	}
	slog.Info("Upload finished", "id", run.UploadID, "url", run.UploadURL)
	return nil
}

func (o *Orchestrator) runAudio(ctx context.Context, run *model.Run, sourceURL string) (*audioResult, error) {
	exp, err := o.fetch(ctx, sourceURL)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	title := strings.TrimSpace(exp.Title)
	if title == "" {
		title = untitled
	}
	run.SourceURL = exp.URL
	run.Title = title

	slog.Info("Stage started", "stage", StageAudio, "title", title)
	cleaned := o.deps.Cleaner.Clean(ctx, exp.Content)
	run.Degraded = cleaned.Degraded
	if cleaned.Degraded {
		slog.Warn("Cleanup degraded, narrating raw content", "reason", cleaned.Reason)
	}

	kw := keyword.Resolve(cleaned.Content, cleaned.Keyword)
	run.Keyword = kw
	slog.Info("Primary substance", "keyword", kw, "advisory", cleaned.Keyword)

	segments, err := o.deps.Script.Segments(script.FieldsFrom(exp, cleaned.Content, kw))
	if err != nil {
		return nil, &StageError{Stage: StageAudio, Err: err}
	}

	rendering, err := o.deps.Renderer.Render(ctx, title, segments)
	if err != nil {
		return nil, &StageError{Stage: StageAudio, Err: err}
	}
	run.AudioPath = rendering.AudioPath

	return &audioResult{
		handoff: model.Handoff{
			AudioPath:    rendering.AudioPath,
			SubtitlePath: rendering.SubtitlePath,
			Keyword:      kw,
			SourceURL:    exp.URL,
		},
		title: title,
	}, nil
}

func (o *Orchestrator) fetch(ctx context.Context, sourceURL string) (*model.Experience, error) {
	u := source.Unquote(sourceURL)
	if u == "" {
		picked, err := o.deps.Source.Random(ctx, nil)
		if err != nil {
			return nil, err
		}
		u = picked
	}
	slog.Info("Stage started", "stage", StageFetch, "url", u)

	exp, err := o.deps.Source.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	if exp.URL == "" {
		exp.URL = u
	}
	return exp, nil
}

func (o *Orchestrator) newRun(sourceURL string) *model.Run {
	return &model.Run{
		ID:        uuid.NewString(),
		SourceURL: sourceURL,
		StartedAt: o.now(),
	}
}

// finish sets the final status and saves the run. Store errors are logged
// only; they never change the outcome of the run.
func (o *Orchestrator) finish(ctx context.Context, run *model.Run, err error) {
	run.FinishedAt = o.now()
	switch {
	case err != nil:
		run.Status = model.RunStatusFailedPrefix + stageOf(err)
		slog.Error("Pipeline failed", "run", run.ID, "error", err)
		var se *stage.Error
		if errors.As(err, &se) && se.Stderr != "" {
			slog.Error("Stage program output", "stage", se.Stage, "exit_code", se.ExitCode, "stderr", se.Stderr)
		}
	case run.Status == "":
		run.Status = model.RunStatusOK
	}

	if o.deps.Store == nil {
		return
	}
	// The run context may already be cancelled; the record is still wanted.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if serr := o.deps.Store.SaveRun(saveCtx, run); serr != nil {
		slog.Warn("Failed to record run", "run", run.ID, "error", serr)
	}
}

func stageOf(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return "unknown"
}
