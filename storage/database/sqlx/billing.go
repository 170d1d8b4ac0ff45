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
	"github.com/clubemanager/backend/core/billing"
)

type dueRow struct {
	ID             string              `db:"id"`
	MemberID       string              `db:"member_id"`
	Period         string              `db:"period"`
	Category       string              `db:"category"`
	BaseAmount     decimal.Decimal     `db:"base_amount"`
	InterestAmount decimal.Decimal     `db:"interest_amount"`
	PenaltyAmount  decimal.Decimal     `db:"penalty_amount"`
	Status         string              `db:"status"`
	DueDate        time.Time           `db:"due_date"`
	PaidAt         null.Time           `db:"paid_at"`
	PaidAmount     decimal.NullDecimal `db:"paid_amount"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

type policyRow struct {
	ID                  int             `db:"id"`
	InterestMonthlyRate decimal.Decimal `db:"interest_monthly_rate"`
	LatePenalty         decimal.Decimal `db:"late_penalty"`
	DueDay              int             `db:"due_day"`
	UpdatedAt           time.Time       `db:"updated_at"`
}

type priceRow struct {
	Category string          `db:"category"`
	Amount   decimal.Decimal `db:"amount"`
}

type billingRepository struct {
	exec core.DBExecutor
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(exec core.DBExecutor) *billingRepository {
	return &billingRepository{exec: exec}
}

func (repo billingRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo billingRepository) pack(due billing.Due) dueRow {
	return dueRow{
		ID:             due.ID,
		MemberID:       due.MemberID,
		Period:         due.Period.String(),
		Category:       due.Category,
		BaseAmount:     due.BaseAmount,
		InterestAmount: due.InterestAmount,
		PenaltyAmount:  due.PenaltyAmount,
		Status:         due.Status,
		DueDate:        due.DueDate.UTC(),
		PaidAt:         null.NewTime(due.PaidAt.UTC(), !due.PaidAt.IsZero()),
		PaidAmount:     decimal.NullDecimal{Decimal: due.PaidAmount, Valid: !due.PaidAt.IsZero()},
		CreatedAt:      due.CreatedAt.UTC(),
		UpdatedAt:      due.UpdatedAt.UTC(),
	}
}

func (repo billingRepository) unpack(row dueRow) (billing.Due, error) {
	period, err := billing.ParsePeriod(row.Period)
	if err != nil {
		return billing.Due{}, errors.Wrapf(err, "due %s has malformed period %q", row.ID, row.Period)
	}
	return billing.Due{
		ID:             row.ID,
		MemberID:       row.MemberID,
		Period:         period,
		Category:       row.Category,
		BaseAmount:     row.BaseAmount,
		InterestAmount: row.InterestAmount,
		PenaltyAmount:  row.PenaltyAmount,
		Status:         row.Status,
		DueDate:        row.DueDate,
		PaidAt:         row.PaidAt.Time,
		PaidAmount:     row.PaidAmount.Decimal,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

func (repo billingRepository) unpackSlice(rows []dueRow) ([]billing.Due, error) {
	dues := make([]billing.Due, 0, len(rows))
	for _, row := range rows {
		due, err := repo.unpack(row)
		if err != nil {
			return nil, err
		}
		dues = append(dues, due)
	}
	return dues, nil
}

func (repo billingRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return billing.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo billingRepository) GetPolicy(ctx context.Context, exec ...core.DBExecutor) (billing.Policy, error) {
	exe := repo.getExec(exec)

	policy := billing.Policy{Prices: make(map[string]decimal.Decimal)}

	var row policyRow
	err := exe.GetContext(ctx, &row, "SELECT * FROM billing_policy WHERE id = 1")
	if err == sql.ErrNoRows {
		return policy, nil
	}
	if err != nil {
		return billing.Policy{}, errors.Wrap(err, "loading billing policy")
	}
	policy.InterestMonthlyRate = row.InterestMonthlyRate
	policy.LatePenalty = row.LatePenalty
	policy.DueDay = row.DueDay
	policy.UpdatedAt = row.UpdatedAt

	var prices []priceRow
	if err = exe.SelectContext(ctx, &prices, "SELECT * FROM billing_prices"); err != nil {
		return billing.Policy{}, errors.Wrap(err, "loading billing prices")
	}
	for _, price := range prices {
		policy.Prices[price.Category] = price.Amount
	}
	return policy, nil
}

func (repo billingRepository) UpdatePolicy(ctx context.Context, policy billing.Policy, exec ...core.DBExecutor) (billing.Policy, error) {
	exe := repo.getExec(exec)

	const upsertPolicy = `
		INSERT INTO billing_policy (id, interest_monthly_rate, late_penalty, due_day, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET interest_monthly_rate = EXCLUDED.interest_monthly_rate, late_penalty = EXCLUDED.late_penalty,
		    due_day = EXCLUDED.due_day, updated_at = EXCLUDED.updated_at`
	if _, err := exe.ExecContext(ctx, upsertPolicy, policy.InterestMonthlyRate, policy.LatePenalty, policy.DueDay, policy.UpdatedAt.UTC()); err != nil {
		return billing.Policy{}, errors.Wrap(err, "updating billing policy")
	}

	categories := make([]string, 0, len(policy.Prices))
	for category := range policy.Prices {
		categories = append(categories, category)
	}

	if len(categories) == 0 {
		if _, err := exe.ExecContext(ctx, "DELETE FROM billing_prices"); err != nil {
			return billing.Policy{}, errors.Wrap(err, "updating billing prices")
		}
		return policy, nil
	}

	q, args, err := sqlx.In("DELETE FROM billing_prices WHERE category NOT IN (?)", categories)
	if err != nil {
		return billing.Policy{}, errors.Wrap(err, "updating billing prices")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(q), args...); err != nil {
		return billing.Policy{}, errors.Wrap(err, "updating billing prices")
	}

	const upsertPrice = `
		INSERT INTO billing_prices (category, amount)
		VALUES ($1, $2)
		ON CONFLICT (category) DO UPDATE SET amount = EXCLUDED.amount`
	for _, category := range categories {
		if _, err = exe.ExecContext(ctx, upsertPrice, category, policy.Prices[category]); err != nil {
			return billing.Policy{}, errors.Wrapf(err, "updating price of category %q", category)
		}
	}
	return policy, nil
}

func (repo billingRepository) CreateDueIfAbsent(ctx context.Context, due billing.Due, exec ...core.DBExecutor) (billing.Due, bool, error) {
	due.ID = uuid.New().String()
	row := repo.pack(due)
	exe := repo.getExec(exec)

	const q = `
		INSERT INTO dues (id, member_id, period, category, base_amount, interest_amount, penalty_amount,
		                  status, due_date, paid_at, paid_amount, created_at, updated_at)
		VALUES (:id, :member_id, :period, :category, :base_amount, :interest_amount, :penalty_amount,
		        :status, :due_date, :paid_at, :paid_amount, :created_at, :updated_at)
		ON CONFLICT (member_id, period) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, exe, q, row)
	if err != nil {
		return billing.Due{}, false, errors.Wrap(err, "inserting due")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return billing.Due{}, false, errors.Wrap(err, "inserting due")
	}
	if cnt > 0 {
		created, err := repo.unpack(row)
		return created, true, err
	}

	// a due for this (member, period) already exists; hand it back untouched
	var existing dueRow
	if err = exe.GetContext(ctx, &existing,
		exe.Rebind("SELECT * FROM dues WHERE member_id = ? AND period = ?"), row.MemberID, row.Period); err != nil {
		return billing.Due{}, false, repo.trapNoRowsErr(err, "finding existing due")
	}
	stored, err := repo.unpack(existing)
	return stored, false, err
}

func (repo billingRepository) GetDueByID(ctx context.Context, id string, exec ...core.DBExecutor) (billing.Due, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.Due{}, billing.ErrNotFound
	}

	exe := repo.getExec(exec)
	var row dueRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT * FROM dues WHERE id = ?"), id); err != nil {
		return billing.Due{}, repo.trapNoRowsErr(err, "finding due by ID")
	}
	return repo.unpack(row)
}

func (repo billingRepository) QueryDues(ctx context.Context, filter *billing.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]billing.Due, error) {
	q := "SELECT * FROM dues"
	var conds []string
	var args []interface{}

	if filter != nil {
		if filter.MemberID != "" {
			conds = append(conds, "member_id = ?")
			args = append(args, filter.MemberID)
		}
		if filter.Period != "" {
			conds = append(conds, "period = ?")
			args = append(args, filter.Period)
		}
		if len(filter.Statuses) > 0 {
			conds = append(conds, "status IN (?)")
			args = append(args, filter.Statuses)
		}
		if !filter.DueBefore.IsZero() {
			conds = append(conds, "due_date < ?")
			args = append(args, filter.DueBefore.UTC())
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "due_date ASC, member_id ASC")

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying dues")
	}

	exe := repo.getExec(exec)
	var rows []dueRow
	if err = exe.SelectContext(ctx, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying dues")
	}
	return repo.unpackSlice(rows)
}

func (repo billingRepository) UpdateDueStatus(ctx context.Context, due billing.Due, expectedStatus string, exec ...core.DBExecutor) (billing.Due, error) {
	row := repo.pack(due)
	exe := repo.getExec(exec)

	const q = `
		UPDATE dues
		SET interest_amount = ?, penalty_amount = ?, status = ?, paid_at = ?, paid_amount = ?, updated_at = ?
		WHERE id = ? AND status = ?`
	res, err := exe.ExecContext(ctx, exe.Rebind(q),
		row.InterestAmount, row.PenaltyAmount, row.Status, row.PaidAt, row.PaidAmount, row.UpdatedAt,
		row.ID, expectedStatus)
	if err != nil {
		return billing.Due{}, errors.Wrap(err, "updating due status")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return billing.Due{}, errors.Wrap(err, "updating due status")
	}
	if cnt == 0 {
		// either the due is gone or another writer moved it first
		if _, err = repo.GetDueByID(ctx, due.ID, exec...); err != nil {
			return billing.Due{}, err
		}
		return billing.Due{}, billing.ErrStatusConflict
	}
	return repo.unpack(row)
}
