package inmemdb

import (
	"context"
	"sort"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/outreach"
)

type outreachRepository struct {
	db *DB
}

var _ outreach.Repository = (*outreachRepository)(nil)

func NewOutreachRepository(db *DB) outreach.Repository {
	return &outreachRepository{db: db}
}

func (repo *outreachRepository) GetTemplate(_ context.Context, channel string, _ ...core.DBExecutor) (outreach.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if tpl, ok := repo.db.templates[channel]; ok {
		return *tpl, nil
	}
	return outreach.Template{}, outreach.ErrTemplateNotFound
}

func (repo *outreachRepository) QueryTemplates(_ context.Context, _ ...core.DBExecutor) ([]outreach.Template, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	templates := make([]outreach.Template, 0, len(repo.db.templates))
	for _, tpl := range repo.db.templates {
		templates = append(templates, *tpl)
	}
	sort.SliceStable(templates, func(i, j int) bool { return templates[i].Channel < templates[j].Channel })
	return templates, nil
}

func (repo *outreachRepository) UpdateTemplate(_ context.Context, tpl outreach.Template, _ ...core.DBExecutor) (outreach.Template, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.templates[tpl.Channel] = &tpl
	return tpl, nil
}
