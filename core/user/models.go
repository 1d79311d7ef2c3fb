package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/edutech/backend/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

var AllRoles = []string{RoleStudent, RoleAdmin}

type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	Bio          string    `json:"bio,omitempty"`
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

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// OAuthAccount links a User to an external identity provider account.
type OAuthAccount struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	Provider          string    `json:"provider"` // "google"
	ProviderAccountID string    `json:"provider_account_id"`
	AccessToken       string    `json:"-"`
	ExpiresAt         time.Time `json:"expires_at"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// PasswordReset is a short-lived 6-digit PIN emailed to a user.
type PasswordReset struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	PIN       string    `json:"-"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (pr *PasswordReset) IsExpired(now time.Time) bool {
	return now.After(pr.ExpiresAt)
}

// NewUser contains information needed to sign a new User up.
type NewUser struct {
	FullName        string `json:"full_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(svc *Service) error {
	nu.FullName = core.CleanString(nu.FullName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkEmailUniqueness(nu.Email)
}

// LoginUser is the credentials payload for email+password login.
type LoginUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lu *LoginUser) Validate() error {
	lu.Email = core.CleanString(lu.Email, true /* lower */)
	return core.Validate.Struct(lu)
}

// UpdateProfile defines what information a user may change on their own profile.
type UpdateProfile struct {
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
}

func (up *UpdateProfile) Validate() error {
	up.FullName = core.CleanString(up.FullName)
	up.Bio = core.CleanString(up.Bio)
	return core.Validate.Struct(up)
}

type ForgotPassword struct {
	Email string `json:"email" validate:"required,email"`
}

func (fp *ForgotPassword) Validate() error {
	fp.Email = core.CleanString(fp.Email, true /* lower */)
	return core.Validate.Struct(fp)
}

type ResetUserPassword struct {
	Email           string `json:"email" validate:"required,email"`
	PIN             string `json:"pin" validate:"required,len=6,numeric"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (rp *ResetUserPassword) Validate() error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	return core.Validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Role == "" && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
