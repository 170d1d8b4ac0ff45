package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/member"
)

var (
	ErrNotFound          = errors.New("due not found")
	ErrMissingPrice      = errors.New("no price configured for member category")
	ErrInvalidTransition = errors.New("invalid due status transition")
	// ErrStatusConflict is returned by repositories when a compare-and-set
	// loses the race: the row moved to another status first.
	ErrStatusConflict = errors.New("due status changed concurrently")
)

type (
	Repository interface {
		GetPolicy(ctx context.Context, exec ...core.DBExecutor) (Policy, error)
		UpdatePolicy(ctx context.Context, policy Policy, exec ...core.DBExecutor) (Policy, error)
		// CreateDueIfAbsent inserts the due unless one already exists for the
		// same (member, period); the bool reports whether a row was created.
		CreateDueIfAbsent(ctx context.Context, due Due, exec ...core.DBExecutor) (Due, bool, error)
		GetDueByID(ctx context.Context, id string, exec ...core.DBExecutor) (Due, error)
		QueryDues(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Due, error)
		// UpdateDueStatus persists the due only if its stored status still
		// equals expectedStatus; ErrStatusConflict otherwise.
		UpdateDueStatus(ctx context.Context, due Due, expectedStatus string, exec ...core.DBExecutor) (Due, error)
	}

	ServiceInterface interface {
		GetPolicy(ctx context.Context) (Policy, error)
		UpdatePolicy(ctx context.Context, up UpdatePolicy) (Policy, error)
		Preview(ctx context.Context, inp GenerateInput) ([]Due, error)
		Generate(ctx context.Context, inp GenerateInput) (GenerateResult, error)
		EvaluateOverdue(ctx context.Context, asOf time.Time) (EvaluateResult, error)
		RecordPayment(ctx context.Context, id string, inp PaymentInput) (Due, error)
		Cancel(ctx context.Context, id string) (Due, error)
		GetByID(ctx context.Context, id string) (Due, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Due, error)
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

func (svc *service) GetPolicy(ctx context.Context) (Policy, error) {
	return svc.repo.GetPolicy(ctx)
}

func (svc *service) UpdatePolicy(ctx context.Context, up UpdatePolicy) (Policy, error) {
	policy := Policy{
		Prices:              up.Prices,
		InterestMonthlyRate: up.InterestMonthlyRate,
		LatePenalty:         up.LatePenalty,
		DueDay:              up.DueDay,
		UpdatedAt:           time.Now().UTC(),
	}
	return svc.repo.UpdatePolicy(ctx, policy)
}

// rosterFilter maps a generation scope to a member query.
func rosterFilter(scope string) *member.QueryFilter {
	switch scope {
	case ScopeActiveOnly:
		return &member.QueryFilter{Statuses: []string{member.StatusActive}}
	case ScopePrimaryOnly:
		// category filter only; membership status does not narrow this scope
		return &member.QueryFilter{Categories: []string{member.CategoryPrimary}}
	default: // ScopeAll
		return nil
	}
}

// buildDues resolves the roster and prices one pending due per member.
// It fails before returning anything if any category in the selection has no
// configured price.
func (svc *service) buildDues(ctx context.Context, policy Policy, inp GenerateInput) ([]Due, error) {
	roster, err := svc.mbrRepo.QueryMembers(ctx, rosterFilter(inp.Scope), nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying roster")
	}

	// every category present must be priced before anything is written
	for _, mbr := range roster {
		if _, ok := policy.PriceFor(mbr.Category); !ok {
			return nil, errors.Wrapf(ErrMissingPrice, "category %q", mbr.Category)
		}
	}

	dueDay := inp.DueDay
	if dueDay == 0 {
		dueDay = policy.DueDay
	}
	dueDate := inp.Period.DueDate(dueDay)

	now := time.Now().UTC()
	dues := make([]Due, 0, len(roster))
	for _, mbr := range roster {
		price, _ := policy.PriceFor(mbr.Category)
		dues = append(dues, Due{
			MemberID:       mbr.ID,
			Period:         inp.Period,
			Category:       mbr.Category,
			BaseAmount:     price,
			InterestAmount: decimal.Zero,
			PenaltyAmount:  decimal.Zero,
			Status:         StatusPending,
			DueDate:        dueDate,
			PaidAmount:     decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return dues, nil
}

func (svc *service) Preview(ctx context.Context, inp GenerateInput) ([]Due, error) {
	policy, err := svc.repo.GetPolicy(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading policy")
	}
	return svc.buildDues(ctx, policy, inp)
}

// Generate bills the selected roster for the period. Members already billed
// for the period are skipped; re-running a period is a no-op success.
func (svc *service) Generate(ctx context.Context, inp GenerateInput) (GenerateResult, error) {
	policy, err := svc.repo.GetPolicy(ctx)
	if err != nil {
		return GenerateResult{}, errors.Wrap(err, "loading policy")
	}

	dues, err := svc.buildDues(ctx, policy, inp)
	if err != nil {
		return GenerateResult{}, err
	}

	res := GenerateResult{Period: inp.Period}
	for _, due := range dues {
		if _, created, err := svc.repo.CreateDueIfAbsent(ctx, due); err != nil {
			return GenerateResult{}, errors.Wrap(err, "inserting due")
		} else if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}
	return res, nil
}

// EvaluateOverdue moves pending dues past their due date to overdue, applying
// interest = base * monthly rate and the flat late penalty. Already-overdue
// rows are untouched, so repeated runs do not compound charges.
func (svc *service) EvaluateOverdue(ctx context.Context, asOf time.Time) (EvaluateResult, error) {
	policy, err := svc.repo.GetPolicy(ctx)
	if err != nil {
		return EvaluateResult{}, errors.Wrap(err, "loading policy")
	}

	dues, err := svc.repo.QueryDues(ctx, &QueryFilter{
		Statuses:  []string{StatusPending},
		DueBefore: asOf,
	}, nil)
	if err != nil {
		return EvaluateResult{}, errors.Wrap(err, "querying pending dues")
	}

	var res EvaluateResult
	for _, due := range dues {
		due.InterestAmount = due.BaseAmount.
			Mul(policy.InterestMonthlyRate).
			Div(decimal.NewFromInt(100)).
			Round(2)
		due.PenaltyAmount = policy.LatePenalty
		due.Status = StatusOverdue
		due.UpdatedAt = time.Now().UTC()

		if _, err := svc.repo.UpdateDueStatus(ctx, due, StatusPending); err != nil {
			if errors.Cause(err) == ErrStatusConflict {
				continue // another run or a payment got there first
			}
			return res, errors.Wrap(err, "marking due overdue")
		}
		res.Marked++
	}
	return res, nil
}

// RecordPayment settles an open due, freezing the amount owed at payment
// time. Only pending and overdue dues are payable.
func (svc *service) RecordPayment(ctx context.Context, id string, inp PaymentInput) (Due, error) {
	due, err := svc.repo.GetDueByID(ctx, id)
	if err != nil {
		return Due{}, err
	}
	if !due.IsOpen() {
		return Due{}, errors.Wrapf(ErrInvalidTransition, "cannot pay a %s due", due.Status)
	}

	expected := due.Status
	paidAt := inp.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	due.Status = StatusPaid
	due.PaidAt = paidAt.UTC()
	due.PaidAmount = due.Total()
	due.UpdatedAt = time.Now().UTC()

	paid, err := svc.repo.UpdateDueStatus(ctx, due, expected)
	if err != nil {
		if errors.Cause(err) == ErrStatusConflict {
			return Due{}, errors.Wrap(ErrInvalidTransition, "due changed concurrently")
		}
		return Due{}, errors.Wrap(err, "recording payment")
	}
	return paid, nil
}

// Cancel voids an open due, dropping any accrued interest and penalty.
// Paid and cancelled dues are terminal.
func (svc *service) Cancel(ctx context.Context, id string) (Due, error) {
	due, err := svc.repo.GetDueByID(ctx, id)
	if err != nil {
		return Due{}, err
	}
	if !due.IsOpen() {
		return Due{}, errors.Wrapf(ErrInvalidTransition, "cannot cancel a %s due", due.Status)
	}

	expected := due.Status
	due.Status = StatusCancelled
	due.InterestAmount = decimal.Zero
	due.PenaltyAmount = decimal.Zero
	due.UpdatedAt = time.Now().UTC()

	cancelled, err := svc.repo.UpdateDueStatus(ctx, due, expected)
	if err != nil {
		if errors.Cause(err) == ErrStatusConflict {
			return Due{}, errors.Wrap(ErrInvalidTransition, "due changed concurrently")
		}
		return Due{}, errors.Wrap(err, "cancelling due")
	}
	return cancelled, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Due, error) {
	return svc.repo.GetDueByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Due, error) {
	return svc.repo.QueryDues(ctx, filter, ordering)
}
