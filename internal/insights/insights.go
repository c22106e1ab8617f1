// Package insights generates advisory text over a user's recent ledger
// activity. Generation is asynchronous in the API: requests are queued as
// jobs and the result is polled.
package insights

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/dvloznov/ledgerchat/internal/domain"
	"github.com/dvloznov/ledgerchat/internal/extract"
)

// maxTransactions bounds the prompt size; only the most recent entries are
// summarized.
const maxTransactions = 100

// insightTemperature is deliberately non-zero: advisory prose benefits from
// variation, unlike extraction.
const insightTemperature = 0.7

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
	return resp.Text(), nil
}

// Generator produces CFO-style bullet insights for a ledger.
type Generator struct {
	gen generator
}

// NewGenerator fails with extract.ErrNotConfigured when GEMINI_API_KEY is
// not set, same as the model extractor.
func NewGenerator() (*Generator, error) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil, extract.ErrNotConfigured
	}
	return &Generator{gen: &genaiGenerator{model: extract.DefaultModelName}}, nil
}

// Generate summarizes at most the 100 most recent transactions and asks the
// model for 3-4 actionable bullet points. transactions must already be in
// newest-first order.
func (g *Generator) Generate(ctx context.Context, transactions []domain.Transaction) (string, error) {
	prompt := buildInsightsPrompt(transactions)

	text, err := g.gen.generate(ctx, prompt, insightTemperature)
	if err != nil {
		return "", fmt.Errorf("generate insights: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("generate insights: empty response from model")
	}
	return text, nil
}

func buildInsightsPrompt(transactions []domain.Transaction) string {
	if len(transactions) > maxTransactions {
		transactions = transactions[:maxTransactions]
	}

	lines := make([]string, 0, len(transactions))
	for _, t := range transactions {
		amount := strconv.FormatFloat(t.Amount, 'f', -1, 64)
		lines = append(lines, fmt.Sprintf("%s: [%s] %s - $%s (%s)", t.Date, t.Type, t.Category, amount, t.Description))
	}
	txData := strings.Join(lines, "\n")
	if txData == "" {
		txData = "No transactions yet."
	}

	return fmt.Sprintf(`You are an expert Chief Financial Officer (CFO).
Analyze the following recent transactions for a business and provide 3-4 concise, highly actionable bullet points of financial insights or advice. Focus on cash flow health, category spikes, and potential savings.
Keep the tone professional but encouraging. Do not use markdown headers, just return exactly what should be displayed, formatted as markdown bullet points.

Transactions:
%s

Insights:`, txData)
}
