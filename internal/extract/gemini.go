package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// DefaultModelName is the Gemini model used for extraction and insights.
const DefaultModelName = "gemini-2.5-flash"

// generator is the single seam to the model API; tests substitute a stub.
type generator interface {
	generate(ctx context.Context, prompt string, temperature float32) (string, error)
}

type genaiGenerator struct {
	model string
}

func (g *genaiGenerator) generate(ctx context.Context, prompt string, temperature float32) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// responseArchiver stores raw model output for later diagnosis. A nil
// archiver disables archiving.
type responseArchiver interface {
	ArchiveModelResponse(ctx context.Context, kind, raw string) (string, error)
}

// Gemini extracts entries via the model, at temperature 0 so repeated calls
// with identical input produce identical prompts and near-identical output.
type Gemini struct {
	gen     generator
	archive responseArchiver
	log     zerolog.Logger
}

// NewGemini fails with ErrNotConfigured when GEMINI_API_KEY is not set, so
// callers can fall back to the rules-only chain. archive may be nil.
func NewGemini(log zerolog.Logger, archive responseArchiver) (*Gemini, error) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil, ErrNotConfigured
	}
	return &Gemini{
		gen:     &genaiGenerator{model: DefaultModelName},
		archive: archive,
		log:     log,
	}, nil
}

var _ Extractor = (*Gemini)(nil)

func (g *Gemini) Extract(ctx context.Context, text string, refDate time.Time) (*domain.ParsedEntry, error) {
	if g.gen == nil {
		return nil, ErrNotConfigured
	}

	prompt := buildExtractionPrompt(text, refDate)

	raw, err := g.gen.generate(ctx, prompt, 0)
	if err != nil {
		return nil, fmt.Errorf("model extraction: %w", err)
	}

	g.archiveRaw(ctx, raw)

	entry, err := decodeEntry(raw)
	if err != nil {
		// The raw response stays in the archive and the log; the user only
		// ever sees guidance text.
		g.log.Error().Err(err).Str("raw_response", raw).Msg("Failed to decode model response")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if entry.Date == "" {
		entry.Date = refDate.Format(domain.DateLayout)
	}
	if err := entry.Validate(); err != nil {
		g.log.Error().Err(err).Str("raw_response", raw).Msg("Model response failed validation")
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return entry, nil
}

func (g *Gemini) archiveRaw(ctx context.Context, raw string) {
	if g.archive == nil {
		return
	}
	uri, err := g.archive.ArchiveModelResponse(ctx, "extract", raw)
	if err != nil {
		g.log.Warn().Err(err).Msg("Failed to archive model response")
		return
	}
	if uri != "" {
		g.log.Debug().Str("uri", uri).Msg("Archived model response")
	}
}

// decodeEntry strips markdown fences, decodes the JSON object and
// canonicalizes the category's case.
func decodeEntry(raw string) (*domain.ParsedEntry, error) {
	clean := cleanModelJSON(raw)

	var entry domain.ParsedEntry
	if err := json.Unmarshal([]byte(clean), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}

	if c, ok := domain.ParseCategory(string(entry.Category)); ok {
		entry.Category = c
	}
	return &entry, nil
}

// cleanModelJSON removes code fences and junk around the JSON object when
// the model ignores the no-markdown instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if anything else remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
