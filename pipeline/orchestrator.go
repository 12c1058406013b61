// Package pipeline runs the reel stages in order and records each outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eco-reel-pipeline/types"
)

// LocationSource fetches the reading for a place. It reports failure in the
// reading rather than as an error.
type LocationSource interface {
	Fetch(ctx context.Context, location string) types.LocationReading
}

// ThemeClassifier picks the theme for a reading.
type ThemeClassifier interface {
	Classify(reading types.LocationReading, userTheme string) types.ThemeDecision
}

// ScriptWriter always returns a usable script, falling back if needed.
type ScriptWriter interface {
	Generate(ctx context.Context, location string, reading types.LocationReading, decision types.ThemeDecision) types.ScriptResult
}

// VoiceSynthesizer reports failure as an asset with no AudioPath.
type VoiceSynthesizer interface {
	Synthesize(ctx context.Context, script string) types.VoiceAsset
}

// ImageGenerator may return a partial set together with an error.
type ImageGenerator interface {
	Generate(ctx context.Context, script string, theme types.Theme, count int) (types.ImageSet, error)
}

// VideoAssembler renders the reel.
type VideoAssembler interface {
	Assemble(ctx context.Context, audio types.VoiceAsset, images []types.ImageAsset, theme types.Theme) (types.VideoAsset, error)
}

// SubtitleWriter captions a rendered video.
type SubtitleWriter interface {
	Write(ctx context.Context, script, videoPath string) (string, error)
}

// Stages holds the collaborators. Subtitles may be nil.
type Stages struct {
	Location  LocationSource
	Theme     ThemeClassifier
	Script    ScriptWriter
	Voice     VoiceSynthesizer
	Images    ImageGenerator
	Video     VideoAssembler
	Subtitles SubtitleWriter
}

// Orchestrator drives one run through the state machine.
type Orchestrator struct {
	stages     Stages
	imageCount int
	now        func() time.Time
	newID      func() string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID replaces the run id generator.
func WithRunID(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

// New creates an Orchestrator requesting imageCount slides per run.
func New(stages Stages, imageCount int, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		stages:     stages,
		imageCount: imageCount,
		now:        time.Now,
		newID:      func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

var (
	errLocation = errors.New("location data unavailable")
	errVoice    = errors.New("voice synthesis failed")
)

// run carries the bookkeeping for one Run call.
type run struct {
	o       *Orchestrator
	res     *types.PipelineResult
	current types.StageName
	started time.Time
}

func (r *run) begin(state types.PipelineState, stage types.StageName) {
	r.res.State = state
	r.current = stage
	r.started = r.o.now()
	slog.Info("Stage started", "run_id", r.res.RunID, "stage", stage)
}

func (r *run) finish(err error) {
	sr := types.StageResult{Status: types.StatusOK, StartedAt: r.started, Elapsed: r.o.now().Sub(r.started)}
	if err != nil {
		sr.Status = types.StatusFailed
		sr.Error = err.Error()
		slog.Warn("Stage failed", "run_id", r.res.RunID, "stage", r.current, "error", err)
	} else {
		slog.Info("Stage complete", "run_id", r.res.RunID, "stage", r.current, "elapsed", sr.Elapsed)
	}
	r.res.Stages[r.current] = sr
	r.current = ""
}

func (r *run) skip(stages ...types.StageName) {
	for _, s := range stages {
		r.res.Stages[s] = types.StageResult{Status: types.StatusSkipped}
	}
}

func (r *run) abort(err error) {
	r.res.State = types.StateAborted
	r.res.Error = err.Error()
	r.res.Success = false
	slog.Error("Pipeline aborted", "run_id", r.res.RunID, "error", err)
}

// Run executes every stage for location. It never panics and never returns
// an error; the outcome is in the result.
func (o *Orchestrator) Run(ctx context.Context, location, userTheme string) (result types.PipelineResult) {
	result = types.PipelineResult{
		RunID:          o.newID(),
		Location:       location,
		RequestedTheme: userTheme,
		State:          types.StateFetchLocation,
		StartedAt:      o.now(),
		Stages:         make(map[types.StageName]types.StageResult),
	}
	r := &run{o: o, res: &result}

	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("panic in %s: %v", result.State, p)
			if r.current != "" {
				r.finish(err)
			}
			r.abort(err)
		}
		result.CompletedAt = o.now()
	}()

	slog.Info("Pipeline starting", "run_id", result.RunID, "location", location, "theme", userTheme)
	o.execute(ctx, r, location, userTheme)
	return result
}

func (o *Orchestrator) execute(ctx context.Context, r *run, location, userTheme string) {
	res := r.res

	r.begin(types.StateFetchLocation, types.StageLocation)
	reading := o.stages.Location.Fetch(ctx, location)
	res.Reading = &reading
	if !reading.Success {
		err := fmt.Errorf("%w: %s", errLocation, reading.Error)
		r.finish(err)
		r.abort(err)
		return
	}
	r.finish(nil)

	if o.cancelled(ctx, r) {
		return
	}
	r.begin(types.StateClassifyTheme, types.StageTheme)
	decision := o.stages.Theme.Classify(reading, userTheme)
	res.Decision = &decision
	r.finish(nil)

	if o.cancelled(ctx, r) {
		return
	}
	r.begin(types.StateGenerateScript, types.StageScript)
	script := o.stages.Script.Generate(ctx, location, reading, decision)
	res.Script = &script
	r.finish(nil)

	if o.cancelled(ctx, r) {
		return
	}
	r.begin(types.StateSynthesizeVoice, types.StageVoice)
	voice := o.stages.Voice.Synthesize(ctx, script.Script)
	res.Voice = &voice
	if voice.AudioPath == "" {
		err := fmt.Errorf("%w: %s", errVoice, voice.Error)
		r.finish(err)
		r.skip(types.StageImages, types.StageVideo)
		r.abort(err)
		return
	}
	r.finish(nil)

	if o.cancelled(ctx, r) {
		return
	}
	r.begin(types.StateGenerateImages, types.StageImages)
	set, imgErr := o.stages.Images.Generate(ctx, script.Script, decision.Theme, o.imageCount)
	res.Images = &set
	r.finish(imgErr)

	// a short set still goes to the assembler, which rejects it
	r.begin(types.StateAssembleVideo, types.StageVideo)
	video, err := o.stages.Video.Assemble(ctx, voice, set.Images, decision.Theme)
	if err != nil {
		r.finish(err)
		r.abort(err)
		return
	}
	res.Video = &video
	res.Success = true
	r.finish(nil)

	if o.stages.Subtitles != nil {
		r.begin(types.StateAssembleVideo, types.StageSubtitles)
		path, err := o.stages.Subtitles.Write(ctx, script.Script, video.VideoPath)
		if path != "" {
			res.Video.SubtitlePath = path
		}
		r.finish(err)
	}

	res.State = types.StateDone
	slog.Info("Pipeline complete", "run_id", res.RunID, "video", video.VideoPath)
}

func (o *Orchestrator) cancelled(ctx context.Context, r *run) bool {
	if err := ctx.Err(); err != nil {
		r.abort(fmt.Errorf("cancelled: %w", err))
		return true
	}
	return false
}
