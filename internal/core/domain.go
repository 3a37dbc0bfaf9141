package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	EUR Currency = "EUR"
	USD Currency = "USD"

	// BaseCurrency is the pivot every cross-currency conversion goes through.
	BaseCurrency = EUR
)

const (
	SharingPercentage SharingType = "percentage"
	SharingShared     SharingType = "shared"
	SharingPartyB     SharingType = "kari"
)

const (
	PartyA Party = "adolfo"
	PartyB Party = "kari"
)

const (
	CategoryRent            Category = "Rent"
	CategoryCellphone       Category = "Cellphone"
	CategorySubscriptions   Category = "Subscriptions"
	CategoryPharmacy        Category = "Pharmacy"
	CategoryPet             Category = "Pet"
	CategorySupermarket     Category = "Supermarket"
	CategoryPurchases       Category = "Purchases"
	CategoryFood            Category = "Food"
	CategoryHealthInsurance Category = "Health Insurance"
	CategoryTransportation  Category = "Transportation"
	CategoryOther           Category = "Other"
)

const (
	AccountCash      AccountType = "cash"
	AccountOceanBank AccountType = "ocean bank"
	AccountWise      AccountType = "wise"
	AccountFacebank  AccountType = "facebank"
	AccountSabadell  AccountType = "sabadell"
	AccountN26       AccountType = "n26"
)

type (
	Currency    string
	SharingType string
	Party       string
	Category    string
	AccountType string

	// Date is a calendar day with no time component.
	Date struct {
		time.Time
	}

	Expense struct {
		ID           int64       `json:"id"`
		CreatedAt    time.Time   `json:"created_at"`
		Date         Date        `json:"date"`
		Description  string      `json:"description"`
		Category     Category    `json:"category"`
		Amount       float64     `json:"amount"` // persisted in USD
		Type         SharingType `json:"type"`
		PaidByPartyB bool        `json:"is_paid_by_kari"`
		IsDefault    bool        `json:"is_default"` // recurring template, survives a month reset
	}

	Income struct {
		ID               int64     `json:"id"`
		CreatedAt        time.Time `json:"created_at"`
		PartyAIncome     float64   `json:"adolfo_income"`
		PartyBIncome     float64   `json:"kari_income"`
		TotalIncome      float64   `json:"total_income"`
		PartyAPercentage float64   `json:"adolfo_percentage"`
		PartyBPercentage float64   `json:"kari_percentage"`
	}

	Debt struct {
		ID         int64     `json:"id"`
		CreatedAt  time.Time `json:"created_at"`
		Year       int       `json:"year"`
		Month      string    `json:"month"`
		PartyADebt float64   `json:"adolfo_debt"`
		PartyBDebt float64   `json:"kari_debt"`
	}

	Saving struct {
		ID        int64       `json:"id"`
		CreatedAt string      `json:"created_at"` // raw store timestamp, grouping key source
		User      Party       `json:"user"`
		Type      AccountType `json:"type"`
		Amount    float64     `json:"amount"`
		Currency  Currency    `json:"currency"`
	}

	// TotalExpenses is the persisted "current totals" record.
	TotalExpenses struct {
		ID        int64     `json:"id"`
		CreatedAt time.Time `json:"created_at"`
		ExpenseTotals
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidSharingType = errors.New("invalid sharing type")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrUnknownParty       = errors.New("unknown party")
	ErrZeroIncome         = errors.New("total income is zero")
	ErrInvalidDate        = errors.New("invalid date")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateFormat)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, ok := ParseDateLike(s)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	*d = DateOf(t)
	return nil
}

// ParseCurrency accepts a currency code in any case.
func ParseCurrency(s string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(s))); c {
	case EUR, USD:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
}

func (c Currency) Valid() bool {
	return c == EUR || c == USD
}

func (t SharingType) Valid() bool {
	switch t {
	case SharingPercentage, SharingShared, SharingPartyB:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryRent, CategoryCellphone, CategorySubscriptions, CategoryPharmacy, CategoryPet,
		CategorySupermarket, CategoryPurchases, CategoryFood, CategoryHealthInsurance,
		CategoryTransportation, CategoryOther:
		return true
	}
	return false
}

func (p Party) Valid() bool {
	return p == PartyA || p == PartyB
}

// Label returns the display name of the party.
func (p Party) Label() string {
	switch p {
	case PartyA:
		return "Adolfo"
	case PartyB:
		return "Kari"
	}
	return string(p)
}

func (a AccountType) Valid() bool {
	switch a {
	case AccountCash, AccountOceanBank, AccountWise, AccountFacebank, AccountSabadell, AccountN26:
		return true
	}
	return false
}

// Label returns the display name of the account.
func (a AccountType) Label() string {
	switch a {
	case AccountCash:
		return "Cash"
	case AccountOceanBank:
		return "Ocean Bank"
	case AccountWise:
		return "Wise"
	case AccountFacebank:
		return "Facebank"
	case AccountSabadell:
		return "Sabadell"
	case AccountN26:
		return "N26"
	}
	return string(a)
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !IsFinite(e.Amount) || e.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSharingType, e.Type)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, e.Category)
	}
	return nil
}

func (s Saving) Validate() error {
	if !s.User.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownParty, s.User)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAccountType, s.Type)
	}
	if !IsFinite(s.Amount) || s.Amount < 0 {
		return ErrInvalidAmount
	}
	if s.Currency != "" && !s.Currency.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, s.Currency)
	}
	return nil
}
