package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/event"
	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, tier string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Tier:      tier,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateMember(
	t *testing.T,
	repo member.Repository,
	name, email, category, status, sponsorID string,
) member.Member {
	t.Helper()

	now := time.Now().UTC()
	mbr := member.Member{
		Name:      name,
		Email:     email,
		Category:  category,
		Status:    status,
		SponsorID: sponsorID,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	mbr, err := repo.CreateMember(context.Background(), mbr)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return mbr
}

func CreateDue(
	t *testing.T,
	repo billing.Repository,
	mbr member.Member,
	period billing.Period,
	base decimal.Decimal,
	status string,
	dueDate time.Time,
) billing.Due {
	t.Helper()

	now := time.Now().UTC()
	due := billing.Due{
		MemberID:       mbr.ID,
		Period:         period,
		Category:       mbr.Category,
		BaseAmount:     base,
		InterestAmount: decimal.Zero,
		PenaltyAmount:  decimal.Zero,
		Status:         billing.StatusPending,
		DueDate:        dueDate,
		PaidAmount:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	due, _, err := repo.CreateDueIfAbsent(context.Background(), due)
	if err != nil {
		t.Fatalf("CreateDue() failed: %v", err)
	}
	if status != billing.StatusPending {
		due.Status = status
		due, err = repo.UpdateDueStatus(context.Background(), due, billing.StatusPending)
		if err != nil {
			t.Fatalf("CreateDue() failed: %v", err)
		}
	}
	return due
}

// CreateEvent stores a published event with registration open, starting a
// couple of days out. Capacity 0 means unlimited seats.
func CreateEvent(
	t *testing.T,
	repo event.Repository,
	name string,
	capacity int,
	memberPrice, guestPrice decimal.Decimal,
) event.Event {
	t.Helper()

	now := time.Now().UTC()
	ev := event.Event{
		Name:               name,
		Type:               event.TypeSocial,
		StartsAt:           now.AddDate(0, 0, 2),
		EndsAt:             now.AddDate(0, 0, 2).Add(4 * time.Hour),
		Location:           "Salão Principal",
		Capacity:           capacity,
		MemberPrice:        memberPrice,
		GuestPrice:         guestPrice,
		AllowsGuests:       true,
		MaxGuestsPerMember: 2,
		Status:             event.StatusPublished,
		RegistrationOpen:   true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	ev, err := repo.CreateEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return ev
}

// DefaultPolicy mirrors the seed migration: titular 150.00, dependent 75.00,
// 2% monthly interest, 10.00 late fee, due day 5.
func DefaultPolicy() billing.Policy {
	return billing.Policy{
		Prices: map[string]decimal.Decimal{
			member.CategoryPrimary:     decimal.RequireFromString("150.00"),
			member.CategoryDependent:   decimal.RequireFromString("75.00"),
			member.CategoryContributor: decimal.RequireFromString("100.00"),
			member.CategoryHonorary:    decimal.RequireFromString("0.00"),
			member.CategoryGuest:       decimal.RequireFromString("50.00"),
		},
		InterestMonthlyRate: decimal.RequireFromString("2.00"),
		LatePenalty:         decimal.RequireFromString("10.00"),
		DueDay:              5,
		UpdatedAt:           time.Now().UTC(),
	}
}
