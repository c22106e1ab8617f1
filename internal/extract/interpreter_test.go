package extract

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/dvloznov/ledgerchat/internal/domain"
	"github.com/dvloznov/ledgerchat/internal/logger"
)

// mockExtractor lets each test script an extractor's behavior.
type mockExtractor struct {
	extractFunc func(ctx context.Context, text string, refDate time.Time) (*domain.ParsedEntry, error)
	calls       int
}

func (m *mockExtractor) Extract(ctx context.Context, text string, refDate time.Time) (*domain.ParsedEntry, error) {
	m.calls++
	return m.extractFunc(ctx, text, refDate)
}

func testEntry() *domain.ParsedEntry {
	return &domain.ParsedEntry{
		Description: "Office rent",
		Amount:      800,
		Type:        domain.TypeExpense,
		Category:    domain.CategoryRent,
		Date:        "2025-06-15",
	}
}

func newTestInterpreter(extractors ...Extractor) *Interpreter {
	in := NewInterpreter(logger.NewWithWriter(io.Discard), extractors...)
	in.now = func() time.Time { return testRefDate }
	return in
}

func TestInterpretFirstExtractorWins(t *testing.T) {
	first := &mockExtractor{extractFunc: func(context.Context, string, time.Time) (*domain.ParsedEntry, error) {
		return testEntry(), nil
	}}
	second := &mockExtractor{extractFunc: func(context.Context, string, time.Time) (*domain.ParsedEntry, error) {
		t.Fatal("fallback extractor should not be called")
		return nil, nil
	}}

	res := newTestInterpreter(first, second).Interpret(context.Background(), "Paid $800 for office rent")
	if !res.Success || res.Parsed == nil || res.Error != "" {
		t.Fatalf("Interpret = %+v, want success with parsed entry", res)
	}
	if second.calls != 0 {
		t.Errorf("fallback extractor called %d times", second.calls)
	}
}

func TestInterpretFallsBackInOrder(t *testing.T) {
	first := &mockExtractor{extractFunc: func(context.Context, string, time.Time) (*domain.ParsedEntry, error) {
		return nil, ErrNoAmount
	}}
	second := &mockExtractor{extractFunc: func(context.Context, string, time.Time) (*domain.ParsedEntry, error) {
		return testEntry(), nil
	}}

	res := newTestInterpreter(first, second).Interpret(context.Background(), "spent two hundred on rent")
	if !res.Success {
		t.Fatalf("Interpret = %+v, want success via fallback", res)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = (%d, %d), want (1, 1)", first.calls, second.calls)
	}
}

func TestInterpretGuidanceMessages(t *testing.T) {
	tests := []struct {
		name    string
		errs    []error
		wantMsg string
	}{
		{"no amount anywhere", []error{ErrNoAmount}, msgNoAmount},
		{"no amount then not configured", []error{ErrNoAmount, ErrNotConfigured}, msgNoAmount},
		{"no amount then malformed model answer", []error{ErrNoAmount, ErrMalformedResponse}, msgGeneric},
		{"malformed only", []error{ErrMalformedResponse}, msgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var extractors []Extractor
			for _, err := range tt.errs {
				err := err
				extractors = append(extractors, &mockExtractor{
					extractFunc: func(context.Context, string, time.Time) (*domain.ParsedEntry, error) {
						return nil, err
					},
				})
			}

			res := newTestInterpreter(extractors...).Interpret(context.Background(), "hello there")
			if res.Success {
				t.Fatalf("Interpret = %+v, want failure", res)
			}
			if res.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", res.Error, tt.wantMsg)
			}
			if res.Parsed != nil {
				t.Error("failed result carries a parsed entry")
			}
		})
	}
}

func TestInterpretUsesCurrentDate(t *testing.T) {
	var gotRef time.Time
	ex := &mockExtractor{extractFunc: func(_ context.Context, _ string, refDate time.Time) (*domain.ParsedEntry, error) {
		gotRef = refDate
		return testEntry(), nil
	}}

	newTestInterpreter(ex).Interpret(context.Background(), "Paid $800 for office rent")
	if !gotRef.Equal(testRefDate) {
		t.Errorf("refDate = %v, want %v", gotRef, testRefDate)
	}
}
