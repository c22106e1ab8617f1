package extract

import (
	"fmt"
	"time"

	"github.com/dvloznov/ledgerchat/internal/domain"
)

// buildExtractionPrompt asks for a single strict JSON object describing the
// transaction. The user text and the reference date are embedded literally,
// so the same inputs always produce the same prompt.
func buildExtractionPrompt(text string, refDate time.Time) string {
	return fmt.Sprintf(`You are a helpful financial assistant parsing a user's transaction.
Parse the following message into a JSON object.
Message: %q

The JSON object must have the following keys exactly:
- "description": A clean, concise description of the transaction (without amounts).
- "amount": A number representing the numerical amount (absolute value, no currency symbols).
- "type": A string, either "income" or "expense".
- "category": Choose one of the following exact strings: Sales, Services, Rent, Utilities, Payroll, Marketing, Supplies, Travel, Meals, Software, Equipment, Taxes, Loans, Insurance, Other.
- "date": The transaction date in "YYYY-MM-DD" format. If not mentioned, use today's date (%s).

Return ONLY the raw JSON object, without markdown formatting or code blocks:`,
		text, refDate.Format(domain.DateLayout))
}
