package types

import "time"

// StageName keys PipelineResult.Stages
type StageName string

const (
	StageLocation  StageName = "location_data"
	StageTheme     StageName = "theme_analysis"
	StageScript    StageName = "script_generation"
	StageVoice     StageName = "voice_generation"
	StageImages    StageName = "image_generation"
	StageVideo     StageName = "video_assembly"
	StageSubtitles StageName = "subtitles"
)

// StageStatus is the outcome of one stage
type StageStatus string

const (
	StatusOK      StageStatus = "ok"
	StatusFailed  StageStatus = "failed"
	StatusSkipped StageStatus = "skipped"
)

// PipelineState is a position in the run state machine
type PipelineState string

const (
	StateFetchLocation   PipelineState = "FETCH_LOCATION"
	StateClassifyTheme   PipelineState = "CLASSIFY_THEME"
	StateGenerateScript  PipelineState = "GENERATE_SCRIPT"
	StateSynthesizeVoice PipelineState = "SYNTHESIZE_VOICE"
	StateGenerateImages  PipelineState = "GENERATE_IMAGES"
	StateAssembleVideo   PipelineState = "ASSEMBLE_VIDEO"
	StateDone            PipelineState = "DONE"
	StateAborted         PipelineState = "ABORTED"
)

// StageResult records what happened in one stage
type StageResult struct {
	Status    StageStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// PipelineResult tracks the full state of one pipeline run
type PipelineResult struct {
	RunID          string                    `json:"run_id"`
	Location       string                    `json:"location"`
	RequestedTheme string                    `json:"requested_theme,omitempty"`
	State          PipelineState             `json:"state"`
	StartedAt      time.Time                 `json:"started_at"`
	CompletedAt    time.Time                 `json:"completed_at"`
	Stages         map[StageName]StageResult `json:"stages"`
	Reading        *LocationReading          `json:"location_data,omitempty"`
	Decision       *ThemeDecision            `json:"theme_analysis,omitempty"`
	Script         *ScriptResult             `json:"script,omitempty"`
	Voice          *VoiceAsset               `json:"voice,omitempty"`
	Images         *ImageSet                 `json:"images,omitempty"`
	Video          *VideoAsset               `json:"video,omitempty"`
	Success        bool                      `json:"success"`
	Error          string                    `json:"error,omitempty"`
}

// VideoPath returns the rendered reel path or ""
func (r *PipelineResult) VideoPath() string {
	if r.Video == nil {
		return ""
	}
	return r.Video.VideoPath
}

// ScriptText returns the narration or ""
func (r *PipelineResult) ScriptText() string {
	if r.Script == nil {
		return ""
	}
	return r.Script.Script
}

// AudioPath returns the narration audio path or ""
func (r *PipelineResult) AudioPath() string {
	if r.Voice == nil {
		return ""
	}
	return r.Voice.AudioPath
}

// ImagePaths returns the generated slide paths
func (r *PipelineResult) ImagePaths() []string {
	if r.Images == nil {
		return nil
	}
	return r.Images.Paths()
}

// ResolvedTheme returns the classified theme or ""
func (r *PipelineResult) ResolvedTheme() Theme {
	if r.Decision == nil {
		return ""
	}
	return r.Decision.Theme
}
