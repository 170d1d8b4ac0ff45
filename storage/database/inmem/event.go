package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func regKey(eventID, memberID string) string {
	return eventID + "|" + memberID
}

func (repo *eventRepository) CreateEvent(_ context.Context, ev event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	ev.ID = uuid.New().String()
	repo.db.events[ev.ID] = &ev
	return ev, nil
}

func (repo *eventRepository) GetEventByID(_ context.Context, id string, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ev, ok := repo.db.events[id]; ok {
		return *ev, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]event.Event, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	events := make([]event.Event, 0)
	for _, ev := range repo.db.events {
		if matchEvent(*ev, filter) {
			events = append(events, *ev)
		}
	}
	sortEvents(events, ordering)
	return events, nil
}

func matchEvent(ev event.Event, filter *event.QueryFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(ev.Name), s) ||
			strings.Contains(strings.ToLower(ev.Location), s)) {
			return false
		}
	}
	if len(filter.Types) > 0 && !containsString(filter.Types, ev.Type) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, ev.Status) {
		return false
	}
	return true
}

func sortEvents(events []event.Event, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		// upcoming events first
		sort.SliceStable(events, func(i, j int) bool { return events[i].StartsAt.After(events[j].StartsAt) })
		return
	}
	ord := ordering[0]
	sort.SliceStable(events, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "name":
			less = events[i].Name < events[j].Name
		case "starts_at":
			less = events[i].StartsAt.Before(events[j].StartsAt)
		default:
			less = events[i].ID < events[j].ID
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
}

func (repo *eventRepository) UpdateEvent(_ context.Context, ev event.Event, _ ...core.DBExecutor) (event.Event, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.events[ev.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[ev.ID] = &ev
	return ev, nil
}

func (repo *eventRepository) CreateRegistration(_ context.Context, reg event.Registration, _ ...core.DBExecutor) (event.Registration, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := regKey(reg.EventID, reg.MemberID)
	if _, ok := repo.db.regKeys[key]; ok {
		return event.Registration{}, event.ErrRegistrationExists
	}

	reg.ID = uuid.New().String()
	repo.db.regs[reg.ID] = &reg
	repo.db.regKeys[key] = reg.ID
	return reg, nil
}

func (repo *eventRepository) GetRegistrationByID(_ context.Context, id string, _ ...core.DBExecutor) (event.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if reg, ok := repo.db.regs[id]; ok {
		return *reg, nil
	}
	return event.Registration{}, event.ErrRegistrationNotFound
}

func (repo *eventRepository) QueryRegistrations(_ context.Context, filter *event.RegistrationFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]event.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := make([]event.Registration, 0)
	for _, reg := range repo.db.regs {
		if matchRegistration(*reg, filter) {
			regs = append(regs, *reg)
		}
	}
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].RegisteredAt.After(regs[j].RegisteredAt) })
	if len(ordering) > 0 && ordering[0].Field == "registered_at" && ordering[0].Ascending {
		sort.SliceStable(regs, func(i, j int) bool { return regs[i].RegisteredAt.Before(regs[j].RegisteredAt) })
	}
	return regs, nil
}

func matchRegistration(reg event.Registration, filter *event.RegistrationFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.EventID != "" && reg.EventID != filter.EventID {
		return false
	}
	if filter.MemberID != "" && reg.MemberID != filter.MemberID {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, reg.Status) {
		return false
	}
	return true
}

func (repo *eventRepository) UpdateRegistration(_ context.Context, reg event.Registration, _ ...core.DBExecutor) (event.Registration, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.regs[reg.ID]; !ok {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	repo.db.regs[reg.ID] = &reg
	return reg, nil
}

func (repo *eventRepository) ConfirmedHeadcount(_ context.Context, eventID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var taken int
	for _, reg := range repo.db.regs {
		if reg.EventID == eventID && reg.Status == event.RegStatusConfirmed {
			taken += reg.PartySize()
		}
	}
	return taken, nil
}
