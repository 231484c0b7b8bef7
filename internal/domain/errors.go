package domain

import "errors"

var (
	ErrUnknownTask       = errors.New("unknown task")
	ErrUnknownModel      = errors.New("unknown model")
	ErrTaskNotSupported  = errors.New("task not supported by model")
	ErrPromptRequired    = errors.New("prompt is required")
	ErrImageRequired     = errors.New("image_base64 is required")
	ErrImageNotAccepted  = errors.New("image_base64 is only accepted for i2v and ti2v")
	ErrInvalidInput      = errors.New("invalid input")
	ErrModelNotFound     = errors.New("model weights not found")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrNoOutputVideo     = errors.New("no output video found")
	ErrGenerationTimeout = errors.New("generation timed out")
)
