// Package inmemdb provides map-backed repositories for tests. They honor the
// same insert-if-absent and compare-and-set semantics as the postgres
// repositories.
package inmemdb

import (
	"sync"

	"github.com/clubemanager/backend/core/billing"
	"github.com/clubemanager/backend/core/event"
	"github.com/clubemanager/backend/core/member"
	"github.com/clubemanager/backend/core/outreach"
	"github.com/clubemanager/backend/core/user"
)

type DB struct {
	mutex sync.RWMutex

	users     map[string]*user.User
	members   map[string]*member.Member
	dues      map[string]*billing.Due
	dueKeys   map[string]string // (member_id|period) -> due ID
	policy    *billing.Policy
	templates map[string]*outreach.Template // by channel
	events    map[string]*event.Event
	regs      map[string]*event.Registration
	regKeys   map[string]string // (event_id|member_id) -> registration ID
}

func NewDB() *DB {
	return &DB{
		users:     make(map[string]*user.User),
		members:   make(map[string]*member.Member),
		dues:      make(map[string]*billing.Due),
		dueKeys:   make(map[string]string),
		templates: make(map[string]*outreach.Template),
		events:    make(map[string]*event.Event),
		regs:      make(map[string]*event.Registration),
		regKeys:   make(map[string]string),
	}
}
