package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/outreach"
)

type templateRow struct {
	Channel   string    `db:"channel"`
	Subject   string    `db:"subject"`
	Body      string    `db:"body"`
	UpdatedAt time.Time `db:"updated_at"`
}

type outreachRepository struct {
	exec core.DBExecutor
}

var _ outreach.Repository = (*outreachRepository)(nil) // interface compliance check

func NewOutreachRepository(exec core.DBExecutor) *outreachRepository {
	return &outreachRepository{exec: exec}
}

func (repo outreachRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

func (repo outreachRepository) unpack(row templateRow) outreach.Template {
	return outreach.Template{
		Channel:   row.Channel,
		Subject:   row.Subject,
		Body:      row.Body,
		UpdatedAt: row.UpdatedAt,
	}
}

func (repo outreachRepository) GetTemplate(ctx context.Context, channel string, exec ...core.DBExecutor) (outreach.Template, error) {
	exe := repo.getExec(exec)
	var row templateRow
	if err := exe.GetContext(ctx, &row, exe.Rebind("SELECT * FROM outreach_templates WHERE channel = ?"), channel); err != nil {
		if err == sql.ErrNoRows {
			return outreach.Template{}, outreach.ErrTemplateNotFound
		}
		return outreach.Template{}, errors.Wrap(err, "finding template")
	}
	return repo.unpack(row), nil
}

func (repo outreachRepository) QueryTemplates(ctx context.Context, exec ...core.DBExecutor) ([]outreach.Template, error) {
	var rows []templateRow
	if err := repo.getExec(exec).SelectContext(ctx, &rows, "SELECT * FROM outreach_templates ORDER BY channel ASC"); err != nil {
		return nil, errors.Wrap(err, "querying templates")
	}
	templates := make([]outreach.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, repo.unpack(row))
	}
	return templates, nil
}

func (repo outreachRepository) UpdateTemplate(ctx context.Context, tpl outreach.Template, exec ...core.DBExecutor) (outreach.Template, error) {
	const q = `
		INSERT INTO outreach_templates (channel, subject, body, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel) DO UPDATE
		SET subject = EXCLUDED.subject, body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, tpl.Channel, tpl.Subject, tpl.Body, tpl.UpdatedAt.UTC()); err != nil {
		return outreach.Template{}, errors.Wrap(err, "updating template")
	}
	return tpl, nil
}
