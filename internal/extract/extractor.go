// Package extract turns free-form transaction descriptions into structured
// ledger entries. Two extractors are provided: a deterministic keyword/regex
// extractor and a Gemini-backed fallback. The Interpreter chains them and
// maps failures to user-facing guidance.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

var (
	// ErrNoAmount means no monetary amount could be found in the text.
	ErrNoAmount = errors.New("no amount detected in text")

	// ErrNotConfigured means the model extractor has no API credential.
	ErrNotConfigured = errors.New("model extraction is not configured")

	// ErrMalformedResponse means the model returned something that could not
	// be decoded into a valid entry. The raw response is archived, never
	// surfaced to the user.
	ErrMalformedResponse = errors.New("malformed model response")
)

// Extractor produces a structured entry from free text. refDate anchors
// entries whose text does not mention a date.
type Extractor interface {
	Extract(ctx context.Context, text string, refDate time.Time) (*domain.ParsedEntry, error)
}
