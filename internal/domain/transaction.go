package domain

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for transaction dates.
const DateLayout = "2006-01-02"

// TransactionType is the polarity of a ledger entry. The sign of money
// movement is carried here, never by the amount.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the two known types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Category is the closed set of ledger categories. Anything that does not
// fit an explicit category is filed under Other.
type Category string

const (
	CategorySales     Category = "Sales"
	CategoryServices  Category = "Services"
	CategoryRent      Category = "Rent"
	CategoryUtilities Category = "Utilities"
	CategoryPayroll   Category = "Payroll"
	CategoryMarketing Category = "Marketing"
	CategorySupplies  Category = "Supplies"
	CategoryTravel    Category = "Travel"
	CategoryMeals     Category = "Meals"
	CategorySoftware  Category = "Software"
	CategoryEquipment Category = "Equipment"
	CategoryTaxes     Category = "Taxes"
	CategoryLoans     Category = "Loans"
	CategoryInsurance Category = "Insurance"
	CategoryOther     Category = "Other"
)

// Categories returns every known category in display order.
func Categories() []Category {
	return []Category{
		CategorySales, CategoryServices, CategoryRent, CategoryUtilities,
		CategoryPayroll, CategoryMarketing, CategorySupplies, CategoryTravel,
		CategoryMeals, CategorySoftware, CategoryEquipment, CategoryTaxes,
		CategoryLoans, CategoryInsurance, CategoryOther,
	}
}

// ParseCategory matches s against the known categories, ignoring case, and
// returns the canonical value. Unknown values report ok=false.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories() {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// ParsedEntry is a structured transaction candidate produced by extraction.
// It has not been persisted and carries no identity or owner yet.
type ParsedEntry struct {
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	Date        string          `json:"date"`
}

// Validate checks the entry invariants: non-negative amount, known type and
// category, and a well-formed date.
func (e *ParsedEntry) Validate() error {
	if e.Amount < 0 {
		return fmt.Errorf("amount must not be negative, got %v", e.Amount)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("unknown transaction type %q", e.Type)
	}
	if _, ok := ParseCategory(string(e.Category)); !ok {
		return fmt.Errorf("unknown category %q", e.Category)
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("invalid date %q: %w", e.Date, err)
	}
	return nil
}

// Transaction is a persisted ledger entry owned by a user.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      float64         `json:"amount"`
	Type        TransactionType `json:"type"`
	Category    Category        `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Entry returns the transaction's editable fields as a ParsedEntry.
func (t *Transaction) Entry() ParsedEntry {
	return ParsedEntry{
		Description: t.Description,
		Amount:      t.Amount,
		Type:        t.Type,
		Category:    t.Category,
		Date:        t.Date,
	}
}

// User is a registered account holder.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is a server-side login session. A session past its expiry is
// treated as nonexistent.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}
