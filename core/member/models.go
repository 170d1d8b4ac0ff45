package member

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/clubemanager/backend/core"
)

// Member categories.
const (
	CategoryPrimary     = "primary"
	CategoryDependent   = "dependent"
	CategoryContributor = "contributor"
	CategoryHonorary    = "honorary"
	CategoryGuest       = "guest"
)

// Member statuses.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

var (
	AllCategories = []string{CategoryPrimary, CategoryDependent, CategoryContributor, CategoryHonorary, CategoryGuest}
	AllStatuses   = []string{StatusActive, StatusInactive, StatusSuspended}

	categoryLabels = map[string]string{
		CategoryPrimary:     "Primary",
		CategoryDependent:   "Dependent",
		CategoryContributor: "Contributor",
		CategoryHonorary:    "Honorary",
		CategoryGuest:       "Guest",
	}
)

// CategoryLabel returns the display label for a category; the raw value is
// returned for unknown categories.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}

// Member is a person on the club roster. A dependent member must reference
// its sponsor via SponsorID.
type Member struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Category  string    `json:"category"`
	Status    string    `json:"status"`
	SponsorID string    `json:"sponsor_id,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`  // UTC
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (m *Member) IsActive() bool    { return m.Status == StatusActive }
func (m *Member) IsPrimary() bool   { return m.Category == CategoryPrimary }
func (m *Member) IsDependent() bool { return m.Category == CategoryDependent }

// NewMember contains information needed to enroll a Member.
type NewMember struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Category  string `json:"category" validate:"required,allcategories"`
	SponsorID string `json:"sponsor_id"`
}

func (nm *NewMember) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Phone = core.CleanString(nm.Phone)
	nm.Category = core.CleanString(nm.Category, true /* lower */)
	nm.SponsorID = core.CleanString(nm.SponsorID)
	return validate.Struct(nm)
}

// UpdateMember defines what information may be provided to modify an existing Member.
type UpdateMember struct {
	Name      string `json:"name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Category  string `json:"category" validate:"omitempty,allcategories"`
	Status    string `json:"status" validate:"omitempty,allstatuses"`
	SponsorID string `json:"sponsor_id"`
}

func (um *UpdateMember) Validate(validate *validator.Validate) error {
	um.Name = core.CleanString(um.Name)
	um.Email = core.CleanString(um.Email, true /* lower */)
	um.Phone = core.CleanString(um.Phone)
	um.Category = core.CleanString(um.Category, true /* lower */)
	um.Status = core.CleanString(um.Status, true /* lower */)
	um.SponsorID = core.CleanString(um.SponsorID)
	return validate.Struct(um)
}

// QueryFilter applies AND on its fields; Search matches one of
// Name, Email or Phone case-insensitively.
type QueryFilter struct {
	Search     string   `query:"search"`
	Categories []string `query:"category"`
	Statuses   []string `query:"status"`
	SponsorID  string   `query:"sponsor_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Categories == nil && qf.Statuses == nil && qf.SponsorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
