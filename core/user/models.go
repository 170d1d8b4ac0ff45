package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/clubemanager/backend/core"
)

// Access tiers. An operator holds exactly one tier.
const (
	TierAdmin     = "admin"
	TierFinance   = "finance"
	TierFrontDesk = "frontdesk"
)

var (
	AllTiers = []string{TierAdmin, TierFinance, TierFrontDesk}

	// tierRanks orders tiers by power; a lower rank outranks a higher one.
	tierRanks = map[string]int{
		TierAdmin:     0,
		TierFinance:   1,
		TierFrontDesk: 2,
	}

	Tiers = []Tier{
		{Name: "Administrator", Value: TierAdmin},
		{Name: "Finance", Value: TierFinance},
		{Name: "Front Desk", Value: TierFrontDesk},
	}
)

// TierRank returns the rank of a tier; unknown tiers report !ok.
func TierRank(tier string) (int, bool) {
	rank, ok := tierRanks[tier]
	return rank, ok
}

// IsAuthorized reports whether a principal holding principalTier may perform
// an action gated at requiredTier. Unknown tiers on either side fail closed.
func IsAuthorized(principalTier, requiredTier string) bool {
	pRank, ok := TierRank(principalTier)
	if !ok {
		return false
	}
	rRank, ok := TierRank(requiredTier)
	if !ok {
		return false
	}
	return pRank <= rRank
}

type Tier struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a back-office operator account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Tier         string    `json:"tier"`
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

func (u *User) IsAdmin() bool {
	return u.Tier == TierAdmin
}

// Can reports whether the operator clears the given tier gate.
func (u *User) Can(requiredTier string) bool {
	return IsAuthorized(u.Tier, requiredTier)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string `json:"name" validate:"required"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Tier            string `json:"tier" validate:"required,alltiers"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Tier = core.CleanString(nu.Tier, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Tier            string `json:"tier" validate:"omitempty,alltiers"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate, svc ServiceInterface) error {
	name := core.CleanString(uu.Name)
	if name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	uname := core.CleanString(uu.Username, true /* lower */)
	if uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	email := core.CleanString(uu.Email, true /* lower */)
	if email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	uu.Tier = core.CleanString(uu.Tier, true /* lower */)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

// QueryFilter applies AND on its fields; Search matches one of
// Name, Username or Email case-insensitively.
type QueryFilter struct {
	Search      string    `query:"search"`
	Tiers       []string  `query:"tier"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Tiers == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User; fields are tried in order:
// ID, Username, Email, UsernameOrEmail.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}
