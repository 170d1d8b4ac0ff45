package outreach

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/member"
)

var (
	ErrTemplateNotFound = errors.New("outreach template not found")
	ErrUnknownChannel   = errors.New("unknown outreach channel")
)

type (
	Repository interface {
		GetTemplate(ctx context.Context, channel string, exec ...core.DBExecutor) (Template, error)
		QueryTemplates(ctx context.Context, exec ...core.DBExecutor) ([]Template, error)
		UpdateTemplate(ctx context.Context, tpl Template, exec ...core.DBExecutor) (Template, error)
	}

	ServiceInterface interface {
		GetTemplate(ctx context.Context, channel string) (Template, error)
		QueryTemplates(ctx context.Context) ([]Template, error)
		UpdateTemplate(ctx context.Context, channel string, ut UpdateTemplate) (Template, error)
		// BuildOverdueNotices renders one Notice per overdue due on the given
		// channel. It never sends anything.
		BuildOverdueNotices(ctx context.Context, channel string, asOf time.Time) ([]Notice, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		dueRepo billing.Repository
		mbrRepo member.Repository
		conf    *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, dueRepo billing.Repository, mbrRepo member.Repository, conf *core.Config) ServiceInterface {
	return &service{
		db:      db,
		repo:    repo,
		dueRepo: dueRepo,
		mbrRepo: mbrRepo,
		conf:    conf,
	}
}

func knownChannel(channel string) bool {
	for _, c := range AllChannels {
		if c == channel {
			return true
		}
	}
	return false
}

func (svc *service) GetTemplate(ctx context.Context, channel string) (Template, error) {
	if !knownChannel(channel) {
		return Template{}, errors.Wrapf(ErrUnknownChannel, "%q", channel)
	}
	return svc.repo.GetTemplate(ctx, channel)
}

func (svc *service) QueryTemplates(ctx context.Context) ([]Template, error) {
	return svc.repo.QueryTemplates(ctx)
}

func (svc *service) UpdateTemplate(ctx context.Context, channel string, ut UpdateTemplate) (Template, error) {
	if !knownChannel(channel) {
		return Template{}, errors.Wrapf(ErrUnknownChannel, "%q", channel)
	}
	tpl := Template{
		Channel:   channel,
		Subject:   ut.Subject,
		Body:      ut.Body,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateTemplate(ctx, tpl)
}

func (svc *service) BuildOverdueNotices(ctx context.Context, channel string, asOf time.Time) ([]Notice, error) {
	tpl, err := svc.GetTemplate(ctx, channel)
	if err != nil {
		return nil, err
	}

	dues, err := svc.dueRepo.QueryDues(ctx, &billing.QueryFilter{
		Statuses: []string{billing.StatusOverdue},
	}, []core.DBOrdering{{Field: "due_date", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying overdue dues")
	}

	notices := make([]Notice, 0, len(dues))
	for _, due := range dues {
		mbr, err := svc.mbrRepo.GetMemberByID(ctx, due.MemberID)
		if err != nil {
			if errors.Cause(err) == member.ErrNotFound {
				continue // roster row removed since billing
			}
			return nil, errors.Wrap(err, "loading member")
		}
		notices = append(notices, Build(tpl, mbr, due, asOf))
	}
	return notices, nil
}
