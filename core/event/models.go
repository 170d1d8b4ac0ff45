package event

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core"
)

// Event types.
const (
	TypeSocial    = "social"
	TypeSports    = "sports"
	TypeCultural  = "cultural"
	TypeFamily    = "family"
	TypeCorporate = "corporate"
	TypeOther     = "other"
)

// Event statuses.
const (
	StatusDraft      = "draft"
	StatusPublished  = "published"
	StatusInProgress = "in_progress"
	StatusFinished   = "finished"
	StatusCancelled  = "cancelled"
)

// Registration statuses.
const (
	RegStatusPending   = "pending"
	RegStatusConfirmed = "confirmed"
	RegStatusCancelled = "cancelled"
	RegStatusNoShow    = "no_show"
)

var (
	AllTypes       = []string{TypeSocial, TypeSports, TypeCultural, TypeFamily, TypeCorporate, TypeOther}
	AllStatuses    = []string{StatusDraft, StatusPublished, StatusInProgress, StatusFinished, StatusCancelled}
	AllRegStatuses = []string{RegStatusPending, RegStatusConfirmed, RegStatusCancelled, RegStatusNoShow}
)

// Event is a club gathering members register for. Capacity 0 means unlimited
// seats; a registration takes one seat per member plus one per guest.
type Event struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Description        string          `json:"description"`
	Type               string          `json:"type"`
	StartsAt           time.Time       `json:"starts_at"` // UTC
	EndsAt             time.Time       `json:"ends_at"`   // UTC
	Location           string          `json:"location"`
	Address            string          `json:"address"`
	Capacity           int             `json:"capacity"`
	MemberPrice        decimal.Decimal `json:"member_price"`
	GuestPrice         decimal.Decimal `json:"guest_price"`
	AllowsGuests       bool            `json:"allows_guests"`
	MaxGuestsPerMember int             `json:"max_guests_per_member"`
	Status             string          `json:"status"`
	RegistrationOpen   bool            `json:"registration_open"`
	CreatedAt          time.Time       `json:"created_at"` // UTC
	UpdatedAt          time.Time       `json:"updated_at"` // UTC
}

// IsOpenForRegistration reports whether members may still sign up at the
// given instant: registration not closed, event published or under way, and
// not yet started.
func (e *Event) IsOpenForRegistration(at time.Time) bool {
	if !e.RegistrationOpen {
		return false
	}
	if e.Status != StatusPublished && e.Status != StatusInProgress {
		return false
	}
	return at.Before(e.StartsAt)
}

// Registration signs a member (and their guests) up for an event. At most one
// Registration exists per (event, member).
type Registration struct {
	ID           string          `json:"id"`
	EventID      string          `json:"event_id"`
	MemberID     string          `json:"member_id"`
	GuestCount   int             `json:"guest_count"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	RegisteredAt time.Time       `json:"registered_at"` // UTC
	ConfirmedAt  time.Time       `json:"confirmed_at"`  // zero while unconfirmed
	CancelledAt  time.Time       `json:"cancelled_at"`  // zero unless cancelled
	UpdatedAt    time.Time       `json:"updated_at"`    // UTC
}

// PartySize is the number of seats the registration takes: the member plus
// their guests.
func (r *Registration) PartySize() int { return 1 + r.GuestCount }

// NewEvent contains information needed to schedule an Event. It is created as
// a draft with registration open.
type NewEvent struct {
	Name               string          `json:"name" validate:"required"`
	Description        string          `json:"description"`
	Type               string          `json:"type" validate:"required,alleventtypes"`
	StartsAt           time.Time       `json:"starts_at" validate:"required"`
	EndsAt             time.Time       `json:"ends_at" validate:"required"`
	Location           string          `json:"location" validate:"required"`
	Address            string          `json:"address"`
	Capacity           int             `json:"capacity" validate:"omitempty,min=1"`
	MemberPrice        decimal.Decimal `json:"member_price"`
	GuestPrice         decimal.Decimal `json:"guest_price"`
	AllowsGuests       *bool           `json:"allows_guests"`
	MaxGuestsPerMember int             `json:"max_guests_per_member" validate:"omitempty,min=1"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Description = core.CleanString(ne.Description)
	ne.Type = core.CleanString(ne.Type, true /* lower */)
	ne.Location = core.CleanString(ne.Location)
	ne.Address = core.CleanString(ne.Address)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	return checkSchedule(ne.StartsAt, ne.EndsAt, ne.MemberPrice, ne.GuestPrice)
}

// UpdateEvent defines what information may be provided to modify an existing
// Event. Nil pointers and zero values leave the stored field untouched.
type UpdateEvent struct {
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Type               string              `json:"type" validate:"omitempty,alleventtypes"`
	StartsAt           time.Time           `json:"starts_at"`
	EndsAt             time.Time           `json:"ends_at"`
	Location           string              `json:"location"`
	Address            string              `json:"address"`
	Capacity           *int                `json:"capacity" validate:"omitempty"`
	MemberPrice        decimal.NullDecimal `json:"member_price"`
	GuestPrice         decimal.NullDecimal `json:"guest_price"`
	AllowsGuests       *bool               `json:"allows_guests"`
	MaxGuestsPerMember *int                `json:"max_guests_per_member"`
	RegistrationOpen   *bool               `json:"registration_open"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Name = core.CleanString(ue.Name)
	ue.Description = core.CleanString(ue.Description)
	ue.Type = core.CleanString(ue.Type, true /* lower */)
	ue.Location = core.CleanString(ue.Location)
	ue.Address = core.CleanString(ue.Address)
	return validate.Struct(ue)
}

// checkSchedule enforces the event invariants shared by create and update:
// the event ends after it starts, and a guest seat never costs less than a
// member seat.
func checkSchedule(startsAt, endsAt time.Time, memberPrice, guestPrice decimal.Decimal) error {
	if !endsAt.After(startsAt) {
		return core.NewValidationError(ErrEndsBeforeStart,
			core.FieldError{Field: "ends_at", Error: ErrEndsBeforeStart.Error()})
	}
	if guestPrice.LessThan(memberPrice) {
		return core.NewValidationError(ErrGuestPriceTooLow,
			core.FieldError{Field: "guest_price", Error: ErrGuestPriceTooLow.Error()})
	}
	if memberPrice.IsNegative() {
		return core.NewValidationError(nil,
			core.FieldError{Field: "member_price", Error: "cannot be negative"})
	}
	return nil
}

// NewRegistration signs a member up for an event.
type NewRegistration struct {
	MemberID   string `json:"member_id" validate:"required"`
	GuestCount int    `json:"guest_count" validate:"omitempty,min=0"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.MemberID = core.CleanString(nr.MemberID)
	return validate.Struct(nr)
}

// QueryFilter applies AND on its fields; Search matches Name or Location
// case-insensitively.
type QueryFilter struct {
	Search   string   `query:"search"`
	Types    []string `query:"type"`
	Statuses []string `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Types == nil && qf.Statuses == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// RegistrationFilter applies AND on its fields.
type RegistrationFilter struct {
	EventID  string   `query:"event_id"`
	MemberID string   `query:"member_id"`
	Statuses []string `query:"status"`
}

func (rf *RegistrationFilter) IsEmpty() bool {
	return rf.EventID == "" && rf.MemberID == "" && rf.Statuses == nil
}
