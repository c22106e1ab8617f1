package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

var (
	incomeRe = regexp.MustCompile(`(?i)\b(received|earned|got paid|income|revenue|sale|sold|collected|invoiced|payment from|deposit)\b`)

	// "invoiced" marks income; a bare "invoice" is polarity-neutral and only
	// contributes to category inference below.
	expenseRe = regexp.MustCompile(`(?i)\b(paid|spent|bought|purchased|expense|cost|charge|bill|subscription|rent|salary|payroll)\b`)

	// First amount in the text: optional $, thousands separators, optional
	// 2-decimal fraction, optional k/thousand multiplier suffix.
	amountRe = regexp.MustCompile(`(?i)\$?(\d[\d,]*(?:\.\d{1,2})?)\s*(k|thousand)?`)

	// Amount substrings removed when deriving the description.
	dollarAmountRe = regexp.MustCompile(`(?i)\$[\d,]+(?:\.\d{1,2})?(?:\s*(?:k|thousand))?`)
	bareAmountRe   = regexp.MustCompile(`(?i)[\d,]+(?:\.\d{1,2})?\s*(?:k|thousand)`)
	multiSpaceRe   = regexp.MustCompile(`\s{2,}`)
)

// categoryRules is an ordered ladder; the first matching rule wins. The
// final sale/service rule is the only one whose category depends on polarity.
var categoryRules = []struct {
	re      *regexp.Regexp
	income  domain.Category
	expense domain.Category
}{
	{regexp.MustCompile(`(?i)rent|lease`), domain.CategoryRent, domain.CategoryRent},
	{regexp.MustCompile(`(?i)utility|utilities|electricity|water|internet|phone`), domain.CategoryUtilities, domain.CategoryUtilities},
	{regexp.MustCompile(`(?i)payroll|salary|wage|staff|employee`), domain.CategoryPayroll, domain.CategoryPayroll},
	{regexp.MustCompile(`(?i)marketing|ads?|advertising`), domain.CategoryMarketing, domain.CategoryMarketing},
	{regexp.MustCompile(`(?i)software|subscription|saas`), domain.CategorySoftware, domain.CategorySoftware},
	{regexp.MustCompile(`(?i)supplies|stationery`), domain.CategorySupplies, domain.CategorySupplies},
	{regexp.MustCompile(`(?i)travel|flight|hotel|accommodation`), domain.CategoryTravel, domain.CategoryTravel},
	{regexp.MustCompile(`(?i)meal|food|lunch|dinner|restaurant|coffee`), domain.CategoryMeals, domain.CategoryMeals},
	{regexp.MustCompile(`(?i)equipment|machine|hardware`), domain.CategoryEquipment, domain.CategoryEquipment},
	{regexp.MustCompile(`(?i)tax|taxes|irs|gst|vat`), domain.CategoryTaxes, domain.CategoryTaxes},
	{regexp.MustCompile(`(?i)loan|mortgage|debt`), domain.CategoryLoans, domain.CategoryLoans},
	{regexp.MustCompile(`(?i)insurance`), domain.CategoryInsurance, domain.CategoryInsurance},
	{regexp.MustCompile(`(?i)sale|sold|revenue|service|invoice|client`), domain.CategorySales, domain.CategoryServices},
}

// Lexical is the deterministic keyword/regex extractor. It is pure: no I/O,
// no clock reads, safe for concurrent use.
type Lexical struct{}

func NewLexical() *Lexical {
	return &Lexical{}
}

var _ Extractor = (*Lexical)(nil)

func (l *Lexical) Extract(_ context.Context, text string, refDate time.Time) (*domain.ParsedEntry, error) {
	m := amountRe.FindStringSubmatch(text)
	if m == nil {
		return nil, ErrNoAmount
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil, ErrNoAmount
	}
	if m[2] != "" {
		amount *= 1000
	}

	// Expense wins the tie-break: income only when an income keyword matched
	// and no expense keyword did.
	typ := domain.TypeExpense
	if incomeRe.MatchString(text) && !expenseRe.MatchString(text) {
		typ = domain.TypeIncome
	}

	return &domain.ParsedEntry{
		Description: describe(text),
		Amount:      amount,
		Type:        typ,
		Category:    categorize(text, typ),
		Date:        refDate.Format(domain.DateLayout),
	}, nil
}

func categorize(text string, typ domain.TransactionType) domain.Category {
	for _, rule := range categoryRules {
		if rule.re.MatchString(text) {
			if typ == domain.TypeIncome {
				return rule.income
			}
			return rule.expense
		}
	}
	return domain.CategoryOther
}

// describe strips amount substrings and tidies whitespace. If nothing is
// left, the original text stands in as the description.
func describe(text string) string {
	d := dollarAmountRe.ReplaceAllString(text, "")
	d = bareAmountRe.ReplaceAllString(d, "")
	d = strings.TrimSpace(d)
	d = multiSpaceRe.ReplaceAllString(d, " ")
	if d == "" {
		return text
	}
	return d
}
