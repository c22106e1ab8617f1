package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// Guidance messages returned when no extractor produced an entry. Internal
// error detail never leaks into these.
const (
	msgNoAmount = `I couldn't detect an amount in that message. Try something like "Paid $500 for marketing" or "Received $3,000 from client".`
	msgGeneric  = `I couldn't understand that transaction. Try something like "Paid $500 for marketing" or "Received $3,000 from client".`
)

// Result is the uniform outcome of an interpretation attempt. Exactly one of
// Parsed and Error is set.
type Result struct {
	Success bool                `json:"success"`
	Parsed  *domain.ParsedEntry `json:"parsed,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Interpreter runs an ordered extractor chain: the cheap deterministic
// extractor first, the model fallback after. It only produces candidates;
// persistence happens on explicit confirmation elsewhere.
type Interpreter struct {
	extractors []Extractor
	log        zerolog.Logger
	now        func() time.Time
}

func NewInterpreter(log zerolog.Logger, extractors ...Extractor) *Interpreter {
	return &Interpreter{
		extractors: extractors,
		log:        log,
		now:        time.Now,
	}
}

// Interpret attempts each extractor in order and returns the first entry
// produced, or guidance text when all of them fail.
func (i *Interpreter) Interpret(ctx context.Context, text string) Result {
	refDate := i.now().UTC()

	var lastErr error
	sawNoAmount := false
	for _, ex := range i.extractors {
		entry, err := ex.Extract(ctx, text, refDate)
		if err == nil {
			return Result{Success: true, Parsed: entry}
		}
		lastErr = err
		if errors.Is(err, ErrNoAmount) {
			sawNoAmount = true
		}
		i.log.Debug().Err(err).Type("extractor", ex).Msg("Extractor did not produce an entry")
	}

	i.log.Info().Err(lastErr).Msg("No extractor produced an entry")

	// The missing-amount hint is the most actionable guidance, unless the
	// model did answer and its answer could not be used.
	if sawNoAmount && !errors.Is(lastErr, ErrMalformedResponse) {
		return Result{Success: false, Error: msgNoAmount}
	}
	return Result{Success: false, Error: msgGeneric}
}
