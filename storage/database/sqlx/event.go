package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/event"
)

type eventRow struct {
	ID                 string          `db:"id"`
	Name               string          `db:"name"`
	Description        string          `db:"description"`
	Type               string          `db:"event_type"`
	StartsAt           time.Time       `db:"starts_at"`
	EndsAt             time.Time       `db:"ends_at"`
	Location           string          `db:"location"`
	Address            string          `db:"address"`
	Capacity           int             `db:"capacity"`
	MemberPrice        decimal.Decimal `db:"member_price"`
	GuestPrice         decimal.Decimal `db:"guest_price"`
	AllowsGuests       bool            `db:"allows_guests"`
	MaxGuestsPerMember int             `db:"max_guests_per_member"`
	Status             string          `db:"status"`
	RegistrationOpen   bool            `db:"registration_open"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type registrationRow struct {
	ID           string          `db:"id"`
	EventID      string          `db:"event_id"`
	MemberID     string          `db:"member_id"`
	GuestCount   int             `db:"guest_count"`
	Status       string          `db:"status"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	RegisteredAt time.Time       `db:"registered_at"`
	ConfirmedAt  null.Time       `db:"confirmed_at"`
	CancelledAt  null.Time       `db:"cancelled_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

type eventRepository struct {
	exec core.DBExecutor
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(exec core.DBExecutor) *eventRepository {
	return &eventRepository{exec: exec}
}

func (repo eventRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo eventRepository) pack(ev event.Event) eventRow {
	return eventRow{
		ID:                 ev.ID,
		Name:               ev.Name,
		Description:        ev.Description,
		Type:               ev.Type,
		StartsAt:           ev.StartsAt.UTC(),
		EndsAt:             ev.EndsAt.UTC(),
		Location:           ev.Location,
		Address:            ev.Address,
		Capacity:           ev.Capacity,
		MemberPrice:        ev.MemberPrice,
		GuestPrice:         ev.GuestPrice,
		AllowsGuests:       ev.AllowsGuests,
		MaxGuestsPerMember: ev.MaxGuestsPerMember,
		Status:             ev.Status,
		RegistrationOpen:   ev.RegistrationOpen,
		CreatedAt:          ev.CreatedAt.UTC(),
		UpdatedAt:          ev.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unpack(row eventRow) event.Event {
	return event.Event{
		ID:                 row.ID,
		Name:               row.Name,
		Description:        row.Description,
		Type:               row.Type,
		StartsAt:           row.StartsAt,
		EndsAt:             row.EndsAt,
		Location:           row.Location,
		Address:            row.Address,
		Capacity:           row.Capacity,
		MemberPrice:        row.MemberPrice,
		GuestPrice:         row.GuestPrice,
		AllowsGuests:       row.AllowsGuests,
		MaxGuestsPerMember: row.MaxGuestsPerMember,
		Status:             row.Status,
		RegistrationOpen:   row.RegistrationOpen,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func (repo eventRepository) packReg(reg event.Registration) registrationRow {
	return registrationRow{
		ID:           reg.ID,
		EventID:      reg.EventID,
		MemberID:     reg.MemberID,
		GuestCount:   reg.GuestCount,
		Status:       reg.Status,
		TotalAmount:  reg.TotalAmount,
		RegisteredAt: reg.RegisteredAt.UTC(),
		ConfirmedAt:  null.NewTime(reg.ConfirmedAt.UTC(), !reg.ConfirmedAt.IsZero()),
		CancelledAt:  null.NewTime(reg.CancelledAt.UTC(), !reg.CancelledAt.IsZero()),
		UpdatedAt:    reg.UpdatedAt.UTC(),
	}
}

func (repo eventRepository) unpackReg(row registrationRow) event.Registration {
	return event.Registration{
		ID:           row.ID,
		EventID:      row.EventID,
		MemberID:     row.MemberID,
		GuestCount:   row.GuestCount,
		Status:       row.Status,
		TotalAmount:  row.TotalAmount,
		RegisteredAt: row.RegisteredAt,
		ConfirmedAt:  row.ConfirmedAt.Time,
		CancelledAt:  row.CancelledAt.Time,
		UpdatedAt:    row.UpdatedAt,
	}
}

func (repo eventRepository) CreateEvent(ctx context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	ev.ID = uuid.New().String()
	row := repo.pack(ev)

	const q = `
		INSERT INTO events (id, name, description, event_type, starts_at, ends_at, location, address, capacity,
		                    member_price, guest_price, allows_guests, max_guests_per_member, status,
		                    registration_open, created_at, updated_at)
		VALUES (:id, :name, :description, :event_type, :starts_at, :ends_at, :location, :address, :capacity,
		        :member_price, :guest_price, :allows_guests, :max_guests_per_member, :status,
		        :registration_open, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return repo.unpack(row), nil
}

func (repo eventRepository) GetEventByID(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Event{}, event.ErrNotFound
	}

	exe := repo.getExec(exec)
	var row eventRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT * FROM events WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "finding event by ID")
	}
	return repo.unpack(row), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Event, error) {
	q := "SELECT * FROM events"
	var conds []string
	var args []interface{}

	if filter != nil {
		// events with Name or Location matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(name ILIKE ? OR location ILIKE ?)")
			args = append(args, val, val)
		}
		if len(filter.Types) > 0 {
			conds = append(conds, "event_type IN (?)")
			args = append(args, filter.Types)
		}
		if len(filter.Statuses) > 0 {
			conds = append(conds, "status IN (?)")
			args = append(args, filter.Statuses)
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "starts_at DESC")

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}

	exe := repo.getExec(exec)
	var rows []eventRow
	if err = exe.SelectContext(ctx, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, repo.unpack(row))
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, ev event.Event, exec ...core.DBExecutor) (event.Event, error) {
	row := repo.pack(ev)

	const q = `
		UPDATE events
		SET name = :name, description = :description, event_type = :event_type, starts_at = :starts_at,
		    ends_at = :ends_at, location = :location, address = :address, capacity = :capacity,
		    member_price = :member_price, guest_price = :guest_price, allows_guests = :allows_guests,
		    max_guests_per_member = :max_guests_per_member, status = :status,
		    registration_open = :registration_open, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return repo.unpack(row), nil
}

func (repo eventRepository) CreateRegistration(ctx context.Context, reg event.Registration, exec ...core.DBExecutor) (event.Registration, error) {
	reg.ID = uuid.New().String()
	row := repo.packReg(reg)

	const q = `
		INSERT INTO event_registrations (id, event_id, member_id, guest_count, status, total_amount,
		                                 registered_at, confirmed_at, cancelled_at, updated_at)
		VALUES (:id, :event_id, :member_id, :guest_count, :status, :total_amount,
		        :registered_at, :confirmed_at, :cancelled_at, :updated_at)
		ON CONFLICT (event_id, member_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "inserting registration")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "inserting registration")
	}
	if cnt == 0 {
		return event.Registration{}, event.ErrRegistrationExists
	}
	return repo.unpackReg(row), nil
}

func (repo eventRepository) GetRegistrationByID(ctx context.Context, id string, exec ...core.DBExecutor) (event.Registration, error) {
	if _, err := uuid.Parse(id); err != nil {
		return event.Registration{}, event.ErrRegistrationNotFound
	}

	exe := repo.getExec(exec)
	var row registrationRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT * FROM event_registrations WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return event.Registration{}, event.ErrRegistrationNotFound
		}
		return event.Registration{}, errors.Wrap(err, "finding registration by ID")
	}
	return repo.unpackReg(row), nil
}

func (repo eventRepository) QueryRegistrations(ctx context.Context, filter *event.RegistrationFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]event.Registration, error) {
	q := "SELECT * FROM event_registrations"
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.EventID != "" {
			conds = append(conds, "event_id = ?")
			args = append(args, filter.EventID)
		}
		if filter.MemberID != "" {
			conds = append(conds, "member_id = ?")
			args = append(args, filter.MemberID)
		}
		if len(filter.Statuses) > 0 {
			conds = append(conds, "status IN (?)")
			args = append(args, filter.Statuses)
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "registered_at DESC")

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}

	exe := repo.getExec(exec)
	var rows []registrationRow
	if err = exe.SelectContext(ctx, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, repo.unpackReg(row))
	}
	return regs, nil
}

func (repo eventRepository) UpdateRegistration(ctx context.Context, reg event.Registration, exec ...core.DBExecutor) (event.Registration, error) {
	row := repo.packReg(reg)

	const q = `
		UPDATE event_registrations
		SET guest_count = :guest_count, status = :status, total_amount = :total_amount,
		    confirmed_at = :confirmed_at, cancelled_at = :cancelled_at, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return event.Registration{}, errors.Wrap(err, "updating registration")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	return repo.unpackReg(row), nil
}

func (repo eventRepository) ConfirmedHeadcount(ctx context.Context, eventID string, exec ...core.DBExecutor) (int, error) {
	const q = `
		SELECT COUNT(*) + COALESCE(SUM(guest_count), 0)
		FROM event_registrations
		WHERE event_id = ? AND status = ?`

	exe := repo.getExec(exec)
	var taken int
	if err := exe.GetContext(ctx, &taken, exe.Rebind(q), eventID, event.RegStatusConfirmed); err != nil {
		return 0, errors.Wrap(err, "counting confirmed attendance")
	}
	return taken, nil
}
