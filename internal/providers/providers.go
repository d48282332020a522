package providers

import (
	"context"
)

// Config represents a single extraction request to an LLM provider.
type Config struct {
	Model       string
	Temperature float64
	Prompt      string
	// ImagePath, when set, attaches the image at that path to the
	// request, for vision-capable models.
	ImagePath string
}

// Provider defines the interface for an LLM provider.
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
