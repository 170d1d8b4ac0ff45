package event

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/member"
)

var (
	ErrNotFound             = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationClosed   = errors.New("registrations are closed for this event")
	ErrRegistrationExists   = errors.New("the member is already registered for this event")
	ErrNoCapacity           = errors.New("no seats left for this event")
	ErrInvalidTransition    = errors.New("invalid status transition")

	ErrEndsBeforeStart  = errors.New("the event must end after it starts")
	ErrGuestPriceTooLow = errors.New("the guest price cannot be lower than the member price")
	ErrMemberNotFound   = errors.New("member not found")
	ErrGuestsNotAllowed = errors.New("this event does not allow guests")
	ErrTooManyGuests    = errors.New("guest count exceeds the per-member limit")
)

// statusTransitions lists where an event may move next. Finished and
// cancelled events are terminal.
var statusTransitions = map[string][]string{
	StatusDraft:      {StatusPublished, StatusCancelled},
	StatusPublished:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusFinished, StatusCancelled},
}

type (
	Repository interface {
		CreateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)
		GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// QueryEvents applies AND on available QueryFilter fields.
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
		UpdateEvent(ctx context.Context, ev Event, exec ...core.DBExecutor) (Event, error)

		// CreateRegistration inserts the registration unless one already exists
		// for the same (event, member); ErrRegistrationExists otherwise.
		CreateRegistration(ctx context.Context, reg Registration, exec ...core.DBExecutor) (Registration, error)
		GetRegistrationByID(ctx context.Context, id string, exec ...core.DBExecutor) (Registration, error)
		QueryRegistrations(ctx context.Context, filter *RegistrationFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Registration, error)
		UpdateRegistration(ctx context.Context, reg Registration, exec ...core.DBExecutor) (Registration, error)
		// ConfirmedHeadcount counts the seats taken by confirmed registrations,
		// members and guests included.
		ConfirmedHeadcount(ctx context.Context, eventID string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, ne NewEvent) (Event, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		Update(ctx context.Context, id string, ue UpdateEvent) (Event, error)
		SetStatus(ctx context.Context, id, status string) (Event, error)

		Register(ctx context.Context, eventID string, nr NewRegistration) (Registration, error)
		QueryRegistrations(ctx context.Context, filter *RegistrationFilter, ordering []core.DBOrdering) ([]Registration, error)
		ConfirmRegistration(ctx context.Context, id string) (Registration, error)
		CancelRegistration(ctx context.Context, id string) (Registration, error)
		MarkNoShow(ctx context.Context, id string) (Registration, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		mbrRepo member.Repository
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, mbrRepo member.Repository, conf *core.Config) ServiceInterface {
	return &service{
		db:      db,
		repo:    repo,
		mbrRepo: mbrRepo,
		conf:    conf,
	}
}

func (svc *service) Create(ctx context.Context, ne NewEvent) (Event, error) {
	if err := checkSchedule(ne.StartsAt, ne.EndsAt, ne.MemberPrice, ne.GuestPrice); err != nil {
		return Event{}, err
	}

	now := time.Now().UTC()
	ev := Event{
		Name:               ne.Name,
		Description:        ne.Description,
		Type:               ne.Type,
		StartsAt:           ne.StartsAt.UTC(),
		EndsAt:             ne.EndsAt.UTC(),
		Location:           ne.Location,
		Address:            ne.Address,
		Capacity:           ne.Capacity,
		MemberPrice:        ne.MemberPrice,
		GuestPrice:         ne.GuestPrice,
		AllowsGuests:       true,
		MaxGuestsPerMember: 2,
		Status:             StatusDraft,
		RegistrationOpen:   true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if ne.AllowsGuests != nil {
		ev.AllowsGuests = *ne.AllowsGuests
	}
	if ne.MaxGuestsPerMember > 0 {
		ev.MaxGuestsPerMember = ne.MaxGuestsPerMember
	}
	return svc.repo.CreateEvent(ctx, ev)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	ev, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}

	if ue.Name != "" {
		ev.Name = ue.Name
	}
	if ue.Description != "" {
		ev.Description = ue.Description
	}
	if ue.Type != "" {
		ev.Type = ue.Type
	}
	if !ue.StartsAt.IsZero() {
		ev.StartsAt = ue.StartsAt.UTC()
	}
	if !ue.EndsAt.IsZero() {
		ev.EndsAt = ue.EndsAt.UTC()
	}
	if ue.Location != "" {
		ev.Location = ue.Location
	}
	if ue.Address != "" {
		ev.Address = ue.Address
	}
	if ue.Capacity != nil {
		ev.Capacity = *ue.Capacity
	}
	if ue.MemberPrice.Valid {
		ev.MemberPrice = ue.MemberPrice.Decimal
	}
	if ue.GuestPrice.Valid {
		ev.GuestPrice = ue.GuestPrice.Decimal
	}
	if ue.AllowsGuests != nil {
		ev.AllowsGuests = *ue.AllowsGuests
	}
	if ue.MaxGuestsPerMember != nil {
		ev.MaxGuestsPerMember = *ue.MaxGuestsPerMember
	}
	if ue.RegistrationOpen != nil {
		ev.RegistrationOpen = *ue.RegistrationOpen
	}

	if err := checkSchedule(ev.StartsAt, ev.EndsAt, ev.MemberPrice, ev.GuestPrice); err != nil {
		return Event{}, err
	}

	ev.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(ctx, ev)
}

func (svc *service) SetStatus(ctx context.Context, id, status string) (Event, error) {
	ev, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}

	allowed := false
	for _, next := range statusTransitions[ev.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return Event{}, errors.Wrapf(ErrInvalidTransition, "cannot move a %s event to %s", ev.Status, status)
	}

	ev.Status = status
	ev.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEvent(ctx, ev)
}

// checkGuests enforces the event's guest rules on the requested party.
func checkGuests(ev Event, guestCount int) error {
	if guestCount == 0 {
		return nil
	}
	if !ev.AllowsGuests {
		return core.NewValidationError(ErrGuestsNotAllowed,
			core.FieldError{Field: "guest_count", Error: ErrGuestsNotAllowed.Error()})
	}
	if guestCount > ev.MaxGuestsPerMember {
		return core.NewValidationError(ErrTooManyGuests,
			core.FieldError{Field: "guest_count", Error: ErrTooManyGuests.Error()})
	}
	return nil
}

// checkCapacity verifies the party still fits next to the confirmed
// registrations. Events without a capacity always fit.
func (svc *service) checkCapacity(ctx context.Context, ev Event, partySize int) error {
	if ev.Capacity == 0 {
		return nil
	}
	taken, err := svc.repo.ConfirmedHeadcount(ctx, ev.ID)
	if err != nil {
		return errors.Wrap(err, "counting confirmed attendance")
	}
	if taken+partySize > ev.Capacity {
		return ErrNoCapacity
	}
	return nil
}

// Register signs a member up for an event as a pending registration. The
// ticket total is frozen at registration time: the member price plus the
// guest price per guest.
func (svc *service) Register(ctx context.Context, eventID string, nr NewRegistration) (Registration, error) {
	ev, err := svc.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return Registration{}, err
	}
	if !ev.IsOpenForRegistration(time.Now().UTC()) {
		return Registration{}, ErrRegistrationClosed
	}

	if _, err = svc.mbrRepo.GetMemberByID(ctx, nr.MemberID); err != nil {
		if errors.Cause(err) == member.ErrNotFound {
			return Registration{}, core.NewValidationError(ErrMemberNotFound,
				core.FieldError{Field: "member_id", Error: ErrMemberNotFound.Error()})
		}
		return Registration{}, err
	}

	if err = checkGuests(ev, nr.GuestCount); err != nil {
		return Registration{}, err
	}
	if err = svc.checkCapacity(ctx, ev, 1+nr.GuestCount); err != nil {
		return Registration{}, err
	}

	now := time.Now().UTC()
	reg := Registration{
		EventID:    ev.ID,
		MemberID:   nr.MemberID,
		GuestCount: nr.GuestCount,
		Status:     RegStatusPending,
		TotalAmount: ev.MemberPrice.Add(
			ev.GuestPrice.Mul(decimal.NewFromInt(int64(nr.GuestCount)))),
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateRegistration(ctx, reg)
}

func (svc *service) QueryRegistrations(ctx context.Context, filter *RegistrationFilter, ordering []core.DBOrdering) ([]Registration, error) {
	return svc.repo.QueryRegistrations(ctx, filter, ordering)
}

// ConfirmRegistration moves a pending registration to confirmed, taking its
// seats. The capacity check runs here since only confirmed parties count.
func (svc *service) ConfirmRegistration(ctx context.Context, id string) (Registration, error) {
	reg, err := svc.repo.GetRegistrationByID(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status != RegStatusPending {
		return Registration{}, errors.Wrapf(ErrInvalidTransition, "cannot confirm a %s registration", reg.Status)
	}

	ev, err := svc.repo.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return Registration{}, err
	}
	if err = svc.checkCapacity(ctx, ev, reg.PartySize()); err != nil {
		return Registration{}, err
	}

	reg.Status = RegStatusConfirmed
	reg.ConfirmedAt = time.Now().UTC()
	reg.UpdatedAt = reg.ConfirmedAt
	return svc.repo.UpdateRegistration(ctx, reg)
}

// CancelRegistration voids a pending or confirmed registration, freeing its
// seats.
func (svc *service) CancelRegistration(ctx context.Context, id string) (Registration, error) {
	reg, err := svc.repo.GetRegistrationByID(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status != RegStatusPending && reg.Status != RegStatusConfirmed {
		return Registration{}, errors.Wrapf(ErrInvalidTransition, "cannot cancel a %s registration", reg.Status)
	}

	reg.Status = RegStatusCancelled
	reg.CancelledAt = time.Now().UTC()
	reg.UpdatedAt = reg.CancelledAt
	return svc.repo.UpdateRegistration(ctx, reg)
}

// MarkNoShow flags a confirmed registration whose party never showed up.
func (svc *service) MarkNoShow(ctx context.Context, id string) (Registration, error) {
	reg, err := svc.repo.GetRegistrationByID(ctx, id)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status != RegStatusConfirmed {
		return Registration{}, errors.Wrapf(ErrInvalidTransition, "cannot mark a %s registration as no-show", reg.Status)
	}

	reg.Status = RegStatusNoShow
	reg.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateRegistration(ctx, reg)
}
