package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/clubemanager/backend/core"
	"github.com/clubemanager/backend/core/member"
)

type memberRepository struct {
	db *DB
}

var _ member.Repository = (*memberRepository)(nil)

func NewMemberRepository(db *DB) member.Repository {
	return &memberRepository{db: db}
}

func (repo *memberRepository) all() []member.Member {
	members := make([]member.Member, 0, len(repo.db.members))
	for _, m := range repo.db.members {
		members = append(members, *m)
	}
	return members
}

func (repo *memberRepository) CheckEmailUniqueness(_ context.Context, email string, excludedMembers []member.Member, _ ...core.DBExecutor) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	excluded := make(map[string]bool, len(excludedMembers))
	for _, m := range excludedMembers {
		excluded[m.ID] = true
	}
	for _, mbr := range repo.all() {
		if excluded[mbr.ID] {
			continue
		}
		if email != "" && mbr.Email == email {
			return member.ErrEmailExists
		}
	}
	return nil
}

func (repo *memberRepository) CreateMember(_ context.Context, mbr member.Member, _ ...core.DBExecutor) (member.Member, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mbr.ID = uuid.New().String()
	repo.db.members[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *memberRepository) QueryMembers(_ context.Context, filter *member.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]member.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	members := make([]member.Member, 0)
	for _, mbr := range repo.all() {
		if matchMember(mbr, filter) {
			members = append(members, mbr)
		}
	}
	sortMembers(members, ordering)
	return members, nil
}

func matchMember(mbr member.Member, filter *member.QueryFilter) bool {
	if filter == nil || filter.IsEmpty() {
		return true
	}
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(mbr.Name), s) ||
			strings.Contains(strings.ToLower(mbr.Email), s) ||
			strings.Contains(mbr.Phone, s)) {
			return false
		}
	}
	if len(filter.Categories) > 0 && !containsString(filter.Categories, mbr.Category) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsString(filter.Statuses, mbr.Status) {
		return false
	}
	if filter.SponsorID != "" && mbr.SponsorID != filter.SponsorID {
		return false
	}
	return true
}

func containsString(vals []string, val string) bool {
	for _, v := range vals {
		if v == val {
			return true
		}
	}
	return false
}

func sortMembers(members []member.Member, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		sort.SliceStable(members, func(i, j int) bool { return members[i].Name < members[j].Name })
		return
	}
	ord := ordering[0]
	sort.SliceStable(members, func(i, j int) bool {
		var less bool
		switch ord.Field {
		case "name":
			less = members[i].Name < members[j].Name
		case "joined_at":
			less = members[i].JoinedAt.Before(members[j].JoinedAt)
		default:
			less = members[i].ID < members[j].ID
		}
		if ord.Ascending {
			return less
		}
		return !less
	})
}

func (repo *memberRepository) GetMemberByID(_ context.Context, id string, _ ...core.DBExecutor) (member.Member, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if mbr, ok := repo.db.members[id]; ok {
		return *mbr, nil
	}
	return member.Member{}, member.ErrNotFound
}

func (repo *memberRepository) UpdateMember(_ context.Context, mbr member.Member, _ ...core.DBExecutor) (member.Member, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.members[mbr.ID]; !ok {
		return member.Member{}, member.ErrNotFound
	}
	repo.db.members[mbr.ID] = &mbr
	return mbr, nil
}

func (repo *memberRepository) DeleteMembersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.members[id]; ok {
			delete(repo.db.members, id)
			cnt++
		}
	}
	return cnt, nil
}
