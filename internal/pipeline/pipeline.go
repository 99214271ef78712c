// Package pipeline sequences the five publishing stages — planning, video
// generation, post-processing, enhancement, upload — with artifact
// verification between them and a cooperative stop checked at every stage
// boundary.
package pipeline

import "context"

// Step identifies one of the five ordered pipeline stages.
type Step int

const (
	StepPlan Step = iota
	StepGenerate
	StepPostProcess
	StepEnhance
	StepUpload
)

var stepNames = [...]string{
	"AI Agent Planning",
	"Video Generation",
	"Watermark Removal",
	"Video Enhancement",
	"YouTube Upload",
}

// String returns the human-readable stage name used in progress reports.
func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return "Unknown"
	}
	return stepNames[s]
}

// Steps returns every stage in execution order.
func Steps() []Step {
	return []Step{StepPlan, StepGenerate, StepPostProcess, StepEnhance, StepUpload}
}

// Status is the reported state of a stage.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRunning   Status = "Running"
	StatusCompleted Status = "Completed"
	StatusError     Status = "Error"
)

// Metadata is the upload metadata produced by the planning stage.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ProgressFunc receives a report after every stage state transition.
type ProgressFunc func(step Step, percent int, status Status)

// Planner produces the video prompt and its upload metadata.
type Planner interface {
	GeneratePrompt(ctx context.Context) (string, error)
	GenerateMetadata(ctx context.Context, prompt string) (Metadata, error)
}

// Generator renders a video for the prompt and returns the file path.
type Generator interface {
	Generate(ctx context.Context, prompt string, durationSec int, resolution string) (string, error)
}

// PostProcessor strips the watermark and enhances the input video, returning
// the output path. Implementations fall back to a degraded transformation
// when their tooling is unavailable rather than failing.
type PostProcessor interface {
	Process(ctx context.Context, inputPath string) (string, error)
}

// Uploader publishes the video and returns the platform's video ID.
// asShort selects the short-form destination over the main channel.
type Uploader interface {
	Upload(ctx context.Context, path string, meta Metadata, asShort bool) (string, error)
}
