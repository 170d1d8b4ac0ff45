package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core"
)

// Due statuses.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusOverdue   = "overdue"
	StatusCancelled = "cancelled"
)

// Roster scopes for due generation.
const (
	ScopeAll         = "all"
	ScopeActiveOnly  = "active_only"
	ScopePrimaryOnly = "primary_only"
)

var (
	AllStatuses = []string{StatusPending, StatusPaid, StatusOverdue, StatusCancelled}
	AllScopes   = []string{ScopeAll, ScopeActiveOnly, ScopePrimaryOnly}
)

// Period is a billing month.
type Period struct {
	Year  int
	Month time.Month
}

func NewPeriod(year int, month time.Month) Period {
	return Period{Year: year, Month: month}
}

// ParsePeriod parses the "YYYY-MM" form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: want YYYY-MM", s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// LastDay returns the number of days in the period's month.
func (p Period) LastDay() int {
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDate places the due day inside the period, clamped to the month's last
// day (e.g. day 31 in February yields Feb 28/29).
func (p Period) DueDate(day int) time.Time {
	if last := p.LastDay(); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

func (p Period) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

func (p *Period) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*p = Period{}
		return nil
	}
	parsed, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Due is a monthly charge against a member. At most one Due exists per
// (member, period).
type Due struct {
	ID             string          `json:"id"`
	MemberID       string          `json:"member_id"`
	Period         Period          `json:"period"`
	Category       string          `json:"category"`
	BaseAmount     decimal.Decimal `json:"base_amount"`
	InterestAmount decimal.Decimal `json:"interest_amount"`
	PenaltyAmount  decimal.Decimal `json:"penalty_amount"`
	Status         string          `json:"status"`
	DueDate        time.Time       `json:"due_date"` // UTC, midnight
	PaidAt         time.Time       `json:"paid_at"`  // zero while unpaid
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	CreatedAt      time.Time       `json:"created_at"` // UTC
	UpdatedAt      time.Time       `json:"updated_at"` // UTC
}

// Total is the amount owed: base + interest + penalty.
func (d *Due) Total() decimal.Decimal {
	return d.BaseAmount.Add(d.InterestAmount).Add(d.PenaltyAmount)
}

// DaysLate returns whole days past the due date at asOf, clamped to 0.
func (d *Due) DaysLate(asOf time.Time) int {
	days := int(asOf.Sub(d.DueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func (d *Due) IsOpen() bool {
	return d.Status == StatusPending || d.Status == StatusOverdue
}

// Policy holds the pricing configuration billing runs read: one price per
// member category, the monthly interest rate (percent), the flat late
// penalty and the default due day.
type Policy struct {
	Prices              map[string]decimal.Decimal `json:"prices"`
	InterestMonthlyRate decimal.Decimal            `json:"interest_monthly_rate"`
	LatePenalty         decimal.Decimal            `json:"late_penalty"`
	DueDay              int                        `json:"due_day"`
	UpdatedAt           time.Time                  `json:"updated_at"` // UTC
}

// PriceFor looks up the configured price for a member category.
func (p Policy) PriceFor(category string) (decimal.Decimal, bool) {
	price, ok := p.Prices[category]
	return price, ok
}

// GenerateInput drives Preview and Generate. DueDay 0 falls back to the
// policy default.
type GenerateInput struct {
	Period Period `json:"period"`
	Scope  string `json:"scope" validate:"required,allscopes"`
	DueDay int    `json:"due_day" validate:"omitempty,min=1,max=31"`
}

func (gi *GenerateInput) Validate(validate *validator.Validate) error {
	gi.Scope = core.CleanString(gi.Scope, true /* lower */)
	if err := validate.Struct(gi); err != nil {
		return err
	}
	if gi.Period.IsZero() {
		return core.NewValidationError(nil, core.FieldError{Field: "period", Error: "this field is required"})
	}
	return nil
}

type GenerateResult struct {
	Period  Period `json:"period"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

type EvaluateResult struct {
	Marked int `json:"marked"`
}

// PaymentInput records a payment against a due. PaidAt zero means now.
type PaymentInput struct {
	PaidAt time.Time `json:"paid_at"`
	Method string    `json:"method"`
}

// UpdatePolicy carries a full replacement of the pricing configuration.
type UpdatePolicy struct {
	Prices              map[string]decimal.Decimal `json:"prices" validate:"required"`
	InterestMonthlyRate decimal.Decimal            `json:"interest_monthly_rate"`
	LatePenalty         decimal.Decimal            `json:"late_penalty"`
	DueDay              int                        `json:"due_day" validate:"required,min=1,max=31"`
}

func (up *UpdatePolicy) Validate(validate *validator.Validate) error {
	if err := validate.Struct(up); err != nil {
		return err
	}
	for category, price := range up.Prices {
		if price.IsNegative() {
			return core.NewValidationError(nil, core.FieldError{Field: "prices", Error: "price for " + category + " cannot be negative"})
		}
	}
	if up.InterestMonthlyRate.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "interest_monthly_rate", Error: "cannot be negative"})
	}
	if up.LatePenalty.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "late_penalty", Error: "cannot be negative"})
	}
	return nil
}

// QueryFilter applies AND on its fields.
type QueryFilter struct {
	MemberID  string    `query:"member_id"`
	Period    string    `query:"period"`
	Statuses  []string  `query:"status"`
	DueBefore time.Time `query:"due_before"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.MemberID == "" && qf.Period == "" && qf.Statuses == nil && qf.DueBefore.IsZero()
}
