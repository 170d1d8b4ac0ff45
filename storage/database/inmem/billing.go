package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
)

type billingRepository struct {
	db *DB
}

var _ billing.Repository = (*billingRepository)(nil)

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{db: db}
}

func (repo *billingRepository) GetPolicy(_ context.Context, _ ...core.DBExecutor) (billing.Policy, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.policy == nil {
		return billing.Policy{Prices: map[string]decimal.Decimal{}}, nil
	}
	return *repo.db.policy, nil
}

func (repo *billingRepository) UpdatePolicy(_ context.Context, policy billing.Policy, _ ...core.DBExecutor) (billing.Policy, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.policy = &policy
	return policy, nil
}

func dueKey(due billing.Due) string {
	return due.MemberID + "|" + due.Period.String()
}

func (repo *billingRepository) CreateDueIfAbsent(_ context.Context, due billing.Due, _ ...core.DBExecutor) (billing.Due, bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := dueKey(due)
	if id, ok := repo.db.dueKeys[key]; ok {
		return *repo.db.dues[id], false, nil
	}
	due.ID = uuid.New().String()
	repo.db.dues[due.ID] = &due
	repo.db.dueKeys[key] = due.ID
	return due, true, nil
}

func (repo *billingRepository) GetDueByID(_ context.Context, id string, _ ...core.DBExecutor) (billing.Due, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if due, ok := repo.db.dues[id]; ok {
		return *due, nil
	}
	return billing.Due{}, billing.ErrNotFound
}

func (repo *billingRepository) QueryDues(_ context.Context, filter *billing.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]billing.Due, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	dues := make([]billing.Due, 0)
	for _, due := range repo.db.dues {
		if matchDue(*due, filter) {
			dues = append(dues, *due)
		}
	}
	sortDues(dues, ordering)
	return dues, nil
}

func matchDue(due billing.Due, filter *billing.QueryFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.MemberID != "" && due.MemberID != filter.MemberID {
		return false
	}
	if filter.Period != "" && due.Period.String() != filter.Period {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, due.Status) {
		return false
	}
	if !filter.DueBefore.IsZero() && !due.DueDate.Before(filter.DueBefore) {
		return false
	}
	return true
}

func sortDues(dues []billing.Due, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.SliceStable(dues, func(i, j int) bool { return dues[i].ID < dues[j].ID })
		return
	}
	ord := ordering[0]
	sort.SliceStable(dues, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "due_date":
			less = dues[i].DueDate.Before(dues[j].DueDate)
		case "period":
			less = dues[i].Period.String() < dues[j].Period.String()
		default:
			less = dues[i].ID < dues[j].ID
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
}

func (repo *billingRepository) UpdateDueStatus(_ context.Context, due billing.Due, expectedStatus string, _ ...core.DBExecutor) (billing.Due, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored, ok := repo.db.dues[due.ID]
	if !ok {
		return billing.Due{}, billing.ErrNotFound
	}
	if stored.Status != expectedStatus {
		return billing.Due{}, billing.ErrStatusConflict
	}
	repo.db.dues[due.ID] = &due
	return due, nil
}
