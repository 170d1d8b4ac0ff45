package member

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/clubemanager/backend/core"
)

var (
	ErrNotFound        = errors.New("member not found")
	ErrEmailExists     = errors.New("a member with this email already exists")
	ErrSponsorRequired = errors.New("a dependent member requires a sponsor")
	ErrSponsorNotFound = errors.New("sponsor member not found")
	ErrSponsorInvalid  = errors.New("a dependent cannot sponsor another member")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedMembers []Member, exec ...core.DBExecutor) error
		CreateMember(ctx context.Context, mbr Member, exec ...core.DBExecutor) (Member, error)
		// QueryMembers applies AND on available QueryFilter fields.
		QueryMembers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Member, error)
		GetMemberByID(ctx context.Context, id string, exec ...core.DBExecutor) (Member, error)
		UpdateMember(ctx context.Context, mbr Member, exec ...core.DBExecutor) (Member, error)
		DeleteMembersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, nm NewMember) (Member, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error)
		GetByID(ctx context.Context, id string) (Member, error)
		Update(ctx context.Context, id string, um UpdateMember) (Member, error)
		SetStatus(ctx context.Context, id, status string) (Member, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		db   core.DB
		repo Repository
		conf *core.Config
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(db core.DB, repo Repository, conf *core.Config) ServiceInterface {
	return &service{
		db:   db,
		repo: repo,
		conf: conf,
	}
}

// checkSponsor enforces the dependent/sponsor invariant: dependents must
// reference an existing, non-dependent sponsor; other categories must not.
func (svc *service) checkSponsor(ctx context.Context, category, sponsorID string) error {
	if category != CategoryDependent {
		return nil
	}
	if sponsorID == "" {
		return core.NewValidationError(ErrSponsorRequired, core.FieldError{Field: "sponsor_id", Error: ErrSponsorRequired.Error()})
	}
	sponsor, err := svc.repo.GetMemberByID(ctx, sponsorID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrSponsorNotFound, core.FieldError{Field: "sponsor_id", Error: ErrSponsorNotFound.Error()})
		}
		return err
	}
	if sponsor.IsDependent() {
		return core.NewValidationError(ErrSponsorInvalid, core.FieldError{Field: "sponsor_id", Error: ErrSponsorInvalid.Error()})
	}
	return nil
}

func (svc *service) checkEmail(ctx context.Context, email string, exclMembers ...Member) error {
	if email == "" {
		return nil
	}
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclMembers); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nm NewMember) (Member, error) {
	if err := svc.checkEmail(ctx, nm.Email); err != nil {
		return Member{}, err
	}
	if err := svc.checkSponsor(ctx, nm.Category, nm.SponsorID); err != nil {
		return Member{}, err
	}

	now := time.Now().UTC()
	mbr := Member{
		Name:      nm.Name,
		Email:     nm.Email,
		Phone:     nm.Phone,
		Category:  nm.Category,
		Status:    StatusActive,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nm.Category == CategoryDependent {
		mbr.SponsorID = nm.SponsorID
	}
	return svc.repo.CreateMember(ctx, mbr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMemberByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, um UpdateMember) (Member, error) {
	mbr, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}

	if um.Name != "" {
		mbr.Name = um.Name
	}
	if um.Email != "" {
		if err := svc.checkEmail(ctx, um.Email, mbr); err != nil {
			return Member{}, err
		}
		mbr.Email = um.Email
	}
	if um.Phone != "" {
		mbr.Phone = um.Phone
	}
	if um.Category != "" {
		mbr.Category = um.Category
	}
	if um.SponsorID != "" {
		mbr.SponsorID = um.SponsorID
	}
	if mbr.Category != CategoryDependent {
		mbr.SponsorID = ""
	}
	if err := svc.checkSponsor(ctx, mbr.Category, mbr.SponsorID); err != nil {
		return Member{}, err
	}
	if um.Status != "" {
		mbr.Status = um.Status
	}

	mbr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMember(ctx, mbr)
}

func (svc *service) SetStatus(ctx context.Context, id, status string) (Member, error) {
	mbr, err := svc.repo.GetMemberByID(ctx, id)
	if err != nil {
		return Member{}, err
	}
	mbr.Status = status
	mbr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateMember(ctx, mbr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteMembersByID(ctx, ids)
	return err
}
