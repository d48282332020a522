package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/receiptwise/receiptwise/internal/gemini"
	"github.com/receiptwise/receiptwise/internal/ollama"
	"github.com/receiptwise/receiptwise/internal/openai"
	"github.com/receiptwise/receiptwise/internal/providers"
)

// LLM is a Pipeline backed by a vision-capable LLM provider. It prompts
// for a flat JSON object and parses the response tolerantly.
type LLM struct {
	provider providers.Provider
	name     string
	model    string
	keys     []string
}

// Provider returns the provider name the pipeline was built with.
func (l *LLM) Provider() string { return l.name }

// Model returns the model name the pipeline was built with.
func (l *LLM) Model() string { return l.model }

// NewLLM builds an LLM pipeline for the named provider (gemini, ollama,
// or openai). keys are the field labels the prompt asks the model to
// emit; they should be accepted source keys of the field mapper.
func NewLLM(provider, model string, keys []string) (*LLM, error) {
	if provider == "" {
		provider = os.Getenv("EXTRACTION_PROVIDER")
		if provider == "" {
			provider = "ollama"
		}
	}
	if model == "" {
		model = defaultModel(provider)
	}

	var p providers.Provider
	switch provider {
	case "gemini":
		p = gemini.New()
	case "ollama":
		p = ollama.New()
	case "openai":
		p = openai.New()
	default:
		return nil, fmt.Errorf("unsupported extraction provider: %s", provider)
	}

	return &LLM{provider: p, name: provider, model: model, keys: keys}, nil
}

func defaultModel(provider string) string {
	switch provider {
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return "gemini-1.5-flash"
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return "gpt-4o"
	case "ollama":
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return "mistral-small3.2:24b"
	default:
		return ""
	}
}

// Extract sends the receipt image to the provider and parses the field
// mapping out of its response. Failures are wrapped in ExtractionError.
func (l *LLM) Extract(ctx context.Context, imagePath string) (map[string]string, error) {
	config := providers.Config{
		Model:       l.model,
		Temperature: 0.1, // low temperature for consistent, factual output
		Prompt:      l.buildPrompt(),
		ImagePath:   imagePath,
	}

	response, err := l.provider.ExtractText(ctx, config)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	fields, err := ParseFields(response)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	slog.Debug("Extracted receipt fields", "image", imagePath, "fields", len(fields))
	return fields, nil
}

func (l *LLM) buildPrompt() string {
	var b strings.Builder
	b.WriteString("You are reading a retail receipt image. Extract the following fields exactly as printed:\n")
	for _, key := range l.keys {
		fmt.Fprintf(&b, "- %s\n", key)
	}
	b.WriteString(`
Respond with ONLY a flat JSON object mapping each field name to its value as a string. Use an empty string for any field not present on the receipt. Do not add commentary, units, or extra keys.`)
	return b.String()
}

// ParseFields parses a flat JSON object of field names to values out of
// an LLM response, tolerating markdown code fences around the JSON.
// Non-string values are coerced to their string form.
func ParseFields(response string) (map[string]string, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	// Some models wrap the object in prose; cut to the outermost braces.
	if start := strings.Index(response, "{"); start > 0 {
		if end := strings.LastIndex(response, "}"); end > start {
			response = response[start : end+1]
		}
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(response), &raw); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case nil:
			fields[k] = ""
		case float64:
			fields[k] = strings.TrimSuffix(fmt.Sprintf("%v", val), ".0")
		default:
			fields[k] = fmt.Sprintf("%v", val)
		}
	}
	return fields, nil
}
