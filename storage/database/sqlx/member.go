package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/member"
)

type memberRow struct {
	ID        string      `db:"id"`
	Name      string      `db:"name"`
	Email     string      `db:"email"`
	Phone     string      `db:"phone"`
	Category  string      `db:"category"`
	Status    string      `db:"status"`
	SponsorID null.String `db:"sponsor_id"`
	JoinedAt  time.Time   `db:"joined_at"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

type memberRepository struct {
	exec core.DBExecutor
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(exec core.DBExecutor) *memberRepository {
	return &memberRepository{exec: exec}
}

func (repo memberRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo memberRepository) pack(mbr member.Member) memberRow {
	return memberRow{
		ID:        mbr.ID,
		Name:      mbr.Name,
		Email:     mbr.Email,
		Phone:     mbr.Phone,
		Category:  mbr.Category,
		Status:    mbr.Status,
		SponsorID: null.NewString(mbr.SponsorID, mbr.SponsorID != ""),
		JoinedAt:  mbr.JoinedAt.UTC(),
		CreatedAt: mbr.CreatedAt.UTC(),
		UpdatedAt: mbr.UpdatedAt.UTC(),
	}
}

func (repo memberRepository) unpack(row memberRow) member.Member {
	return member.Member{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Phone:     row.Phone,
		Category:  row.Category,
		Status:    row.Status,
		SponsorID: row.SponsorID.String,
		JoinedAt:  row.JoinedAt,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo memberRepository) unpackSlice(rows []memberRow) []member.Member {
	members := make([]member.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, repo.unpack(row))
	}
	return members
}

func (repo memberRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return member.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo memberRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedMembers []member.Member, exec ...core.DBExecutor) error {
	if email == "" { // emails are optional for members
		return nil
	}

	q := "SELECT EXISTS (SELECT 1 FROM members WHERE email = ?"
	args := []interface{}{email}
	if len(excludedMembers) > 0 {
		ids := make([]string, 0, len(excludedMembers))
		for _, m := range excludedMembers {
			ids = append(ids, m.ID)
		}
		q += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	q += ")"

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return errors.Wrap(err, "checking member uniqueness")
	}

	exe := repo.getExec(exec)
	var exists bool
	if err = exe.GetContext(ctx, &exists, exe.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "checking member uniqueness")
	}
	if exists {
		return member.ErrEmailExists
	}
	return nil
}

func (repo memberRepository) CreateMember(ctx context.Context, mbr member.Member, exec ...core.DBExecutor) (member.Member, error) {
	mbr.ID = uuid.New().String()
	row := repo.pack(mbr)

	const q = `
		INSERT INTO members (id, name, email, phone, category, status, sponsor_id, joined_at, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :category, :status, :sponsor_id, :joined_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return repo.unpack(row), nil
}

func (repo memberRepository) QueryMembers(ctx context.Context, filter *member.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]member.Member, error) {
	q := "SELECT * FROM members"
	var conds []string
	var args []interface{}

	if filter != nil {
		// members with Name, Email or Phone matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			conds = append(conds, "(name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)")
			args = append(args, val, val, val)
		}
		if len(filter.Categories) > 0 {
			conds = append(conds, "category IN (?)")
			args = append(args, filter.Categories)
		}
		if len(filter.Statuses) > 0 {
			conds = append(conds, "status IN (?)")
			args = append(args, filter.Statuses)
		}
		if filter.SponsorID != "" {
			conds = append(conds, "sponsor_id = ?")
			args = append(args, filter.SponsorID)
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += orderByClause(ordering, "name ASC")

	q, args, err := sqlx.In(q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying members")
	}

	exe := repo.getExec(exec)
	var rows []memberRow
	if err = exe.SelectContext(ctx, &rows, exe.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return repo.unpackSlice(rows), nil
}

func (repo memberRepository) GetMemberByID(ctx context.Context, id string, exec ...core.DBExecutor) (member.Member, error) {
	if _, err := uuid.Parse(id); err != nil {
		return member.Member{}, member.ErrNotFound
	}

	exe := repo.getExec(exec)
	var row memberRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT * FROM members WHERE id = ?"), id); err != nil {
		return member.Member{}, repo.trapNoRowsErr(err, "finding member by ID")
	}
	return repo.unpack(row), nil
}

func (repo memberRepository) UpdateMember(ctx context.Context, mbr member.Member, exec ...core.DBExecutor) (member.Member, error) {
	row := repo.pack(mbr)

	const q = `
		UPDATE members
		SET name = :name, email = :email, phone = :phone, category = :category, status = :status,
		    sponsor_id = :sponsor_id, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return repo.unpack(row), nil
}

func (repo memberRepository) DeleteMembersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	q, args, err := sqlx.In("DELETE FROM members WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting members")
	}

	exe := repo.getExec(exec)
	res, err := exe.ExecContext(ctx, exe.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting members")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting members")
	}
	return int(cnt), nil
}
