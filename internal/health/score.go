// Package health computes a composite financial health score from a user's
// ledger. Scoring is pure arithmetic: no I/O, no clock, the input slice is
// never mutated, and identical ledgers always produce identical reports.
package health

import (
	"fmt"
	"math"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// Status classifies an indicator.
type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusPoor    Status = "poor"
)

// Indicator is one weighted component of the composite score.
type Indicator struct {
	Label   string `json:"label"`
	Score   int    `json:"score"`
	Weight  int    `json:"weight"`
	Status  Status `json:"status"`
	Insight string `json:"insight"`
}

// Report is the full scoring output.
type Report struct {
	Indicators      []Indicator `json:"indicators"`
	Composite       int         `json:"composite"`
	Label           string      `json:"label"`
	TotalIncome     float64     `json:"total_income"`
	TotalExpenses   float64     `json:"total_expenses"`
	NetProfit       float64     `json:"net_profit"`
	Recommendations []string    `json:"recommendations"`
}

// Score evaluates four weighted indicators over the ledger and combines them
// into a 0-100 composite. Callers should not invoke it on an empty ledger;
// a ledger with no income still scores (ratios degrade to their worst case).
func Score(transactions []domain.Transaction) Report {
	var totalIncome, totalExpenses float64
	incomeCategories := map[domain.Category]struct{}{}
	for _, t := range transactions {
		switch t.Type {
		case domain.TypeIncome:
			totalIncome += t.Amount
			incomeCategories[t.Category] = struct{}{}
		case domain.TypeExpense:
			totalExpenses += t.Amount
		}
	}

	netProfit := totalIncome - totalExpenses
	savingsRate := 0.0
	expenseRatio := 100.0
	if totalIncome > 0 {
		savingsRate = netProfit / totalIncome * 100
		expenseRatio = totalExpenses / totalIncome * 100
	}

	indicators := []Indicator{
		savingsIndicator(savingsRate),
		expenseIndicator(expenseRatio),
		profitIndicator(netProfit, totalIncome),
		diversificationIndicator(len(incomeCategories)),
	}

	composite := weightedScore(indicators)

	var recommendations []string
	for _, ind := range indicators {
		if ind.Status != StatusGood {
			recommendations = append(recommendations, ind.Insight)
		}
	}
	if len(recommendations) == 0 {
		recommendations = []string{"All indicators are healthy. Keep up the great work!"}
	}

	return Report{
		Indicators:      indicators,
		Composite:       composite,
		Label:           ScoreLabel(composite),
		TotalIncome:     totalIncome,
		TotalExpenses:   totalExpenses,
		NetProfit:       netProfit,
		Recommendations: recommendations,
	}
}

// ScoreLabel maps a composite score to its display band.
func ScoreLabel(score int) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 65:
		return "Good"
	case score >= 50:
		return "Fair"
	default:
		return "Needs Attention"
	}
}

// weightedScore is the weighted mean of the indicator scores, rounded half
// away from zero.
func weightedScore(indicators []Indicator) int {
	var sum, totalWeight float64
	for _, ind := range indicators {
		sum += float64(ind.Score) * float64(ind.Weight)
		totalWeight += float64(ind.Weight)
	}
	return int(math.Round(sum / totalWeight))
}

func savingsIndicator(savingsRate float64) Indicator {
	var status Status
	var insight string
	switch {
	case savingsRate >= 20:
		status = StatusGood
		insight = fmt.Sprintf("You're saving %.1f%% of income — great discipline.", savingsRate)
	case savingsRate >= 10:
		status = StatusWarning
		insight = fmt.Sprintf("Savings rate is %.1f%%. Aim for 20%%+ for strong reserves.", savingsRate)
	default:
		status = StatusPoor
		insight = fmt.Sprintf("Only %.1f%% savings rate. Reduce expenses to improve cash reserves.", savingsRate)
	}
	return Indicator{
		Label:   "Savings Rate",
		Score:   int(math.Round(clamp(savingsRate*2, 0, 100))),
		Weight:  30,
		Status:  status,
		Insight: insight,
	}
}

func expenseIndicator(expenseRatio float64) Indicator {
	var status Status
	var insight string
	switch {
	case expenseRatio < 70:
		status = StatusGood
		insight = fmt.Sprintf("Expenses are %.1f%% of income — well controlled.", expenseRatio)
	case expenseRatio < 90:
		status = StatusWarning
		insight = fmt.Sprintf("Expenses are %.1f%% of income. Look for areas to cut.", expenseRatio)
	default:
		status = StatusPoor
		insight = fmt.Sprintf("Expenses exceed %.1f%% of income — critical to reduce costs.", expenseRatio)
	}
	return Indicator{
		Label:   "Expense Control",
		Score:   int(math.Round(clamp((1-expenseRatio/100)*100+20, 0, 100))),
		Weight:  25,
		Status:  status,
		Insight: insight,
	}
}

func profitIndicator(netProfit, totalIncome float64) Indicator {
	// The two branches are intentionally asymmetric: profits are capped at
	// 100, losses are only floored at 0 (a loss can never push the raw value
	// above 50 anyway).
	raw := 50 + netProfit/math.Max(totalIncome, 1)*100
	var score float64
	if netProfit > 0 {
		score = math.Min(100, raw)
	} else {
		score = math.Max(0, raw)
	}

	var status Status
	var insight string
	switch {
	case netProfit > 0:
		status = StatusGood
		insight = fmt.Sprintf("Your business is profitable with $%s net profit.", formatAmount(netProfit))
	case netProfit == 0:
		status = StatusWarning
		insight = "Breaking even. Push to generate surplus for growth."
	default:
		status = StatusPoor
		insight = fmt.Sprintf("Operating at a $%s loss. Review major expenses.", formatAmount(-netProfit))
	}
	return Indicator{
		Label:   "Profitability",
		Score:   int(math.Round(score)),
		Weight:  25,
		Status:  status,
		Insight: insight,
	}
}

func diversificationIndicator(incomeCategories int) Indicator {
	var status Status
	var insight string
	switch {
	case incomeCategories >= 3:
		status = StatusGood
		insight = fmt.Sprintf("%d income sources — well diversified.", incomeCategories)
	case incomeCategories >= 2:
		status = StatusWarning
		insight = fmt.Sprintf("%d income sources. Consider adding a third stream.", incomeCategories)
	default:
		status = StatusPoor
		insight = "Only 1 income source. Diversify to reduce risk."
	}
	return Indicator{
		Label:   "Income Diversification",
		Score:   int(math.Min(100, float64(incomeCategories*25))),
		Weight:  20,
		Status:  status,
		Insight: insight,
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// formatAmount renders a non-negative amount with thousands separators,
// dropping any fraction.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	n := len(s)
	if n <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
