package domain

// Task enumerates the supported generation modes.
type Task string

const (
	TaskTextToVideo      Task = "t2v"
	TaskImageToVideo     Task = "i2v"
	TaskTextImageToVideo Task = "ti2v"
)

// Valid reports whether the task is one of the supported modes.
func (t Task) Valid() bool {
	switch t {
	case TaskTextToVideo, TaskImageToVideo, TaskTextImageToVideo:
		return true
	}
	return false
}

// NeedsImage reports whether the task requires a conditioning image.
func (t Task) NeedsImage() bool {
	return t == TaskImageToVideo || t == TaskTextImageToVideo
}

// NeedsPrompt reports whether the task requires a text prompt.
func (t Task) NeedsPrompt() bool {
	return t == TaskTextToVideo || t == TaskTextImageToVideo
}

// JobInput is the payload the platform delivers under the "input" key of a
// job. All fields except task are optional; defaults come from the model
// variant the task routes to.
type JobInput struct {
	Task          Task    `json:"task" validate:"required"`
	Model         string  `json:"model,omitempty"`
	Prompt        string  `json:"prompt,omitempty" validate:"max=4000"`
	ImageBase64   string  `json:"image_base64,omitempty"`
	Width         int     `json:"width,omitempty" validate:"omitempty,min=64,max=2048"`
	Height        int     `json:"height,omitempty" validate:"omitempty,min=64,max=2048"`
	NumFrames     int     `json:"num_frames,omitempty" validate:"omitempty,min=5,max=241"`
	Steps         int     `json:"steps,omitempty" validate:"omitempty,min=1,max=100"`
	GuidanceScale float64 `json:"guidance_scale,omitempty" validate:"omitempty,min=0,max=20"`
	Seed          *int64  `json:"seed,omitempty"`
}

// JobInfo describes the generated clip alongside the encoded video.
type JobInfo struct {
	Task       Task   `json:"task"`
	Model      string `json:"model"`
	Resolution string `json:"resolution"`
	Frames     int    `json:"frames"`
	FPS        int    `json:"fps"`
}

// JobOutput is the success response returned to the platform. Video is a
// data URI carrying the base64-encoded MP4.
type JobOutput struct {
	Video string  `json:"video"`
	Info  JobInfo `json:"info"`
}
