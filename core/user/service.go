package user

import (
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("this account has been deactivated")
	ErrNotAdmin           = errors.New("admin access required")
	ErrInvalidPIN         = errors.New("invalid PIN")
	ErrPINExpired         = errors.New("PIN has expired")
	ErrPINUsed            = errors.New("PIN has already been used")
)

type (
	Repository interface {
		CheckEmailUniqueness(email string, excludedUsers ...User) error
		CreateUser(user User) (User, error)
		QueryAllUsers() ([]User, error)
		GetUserByID(id string) (User, error)
		GetUserByEmail(email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName or User.Email.
		FilterUsers(filter QueryFilter) ([]User, error)
		UpdateUser(user User, isActive *bool) (User, error)

		GetOAuthAccount(provider, providerAccountID string) (OAuthAccount, error)
		UpsertOAuthAccount(account OAuthAccount) (OAuthAccount, error)

		CreatePasswordReset(reset PasswordReset) (PasswordReset, error)
		GetPasswordReset(userID, pin string) (PasswordReset, error)
		MarkPasswordResetUsed(id string) error
		InvalidatePasswordResets(userID string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *Service) checkEmailUniqueness(email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(email, exclUsers...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Register signs a new student up.
func (svc *Service) Register(nu NewUser) (User, error) {
	now := core.NowFunc().UTC()
	usr := User{
		ID:        uuid.New().String(),
		FullName:  nu.FullName,
		Email:     nu.Email,
		Role:      RoleStudent,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.CreateUser(usr)
	if err != nil {
		return User{}, err
	}
	svc.sendWelcomeMail(usr)
	return usr, nil
}

// Authenticate checks the given credentials and records the login time.
func (svc *Service) Authenticate(email, password string) (User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		if err == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(password); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if !usr.IsActive {
		return User{}, ErrUserInactive
	}
	usr.LastLogin = core.NowFunc().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

// AuthenticateAdmin is Authenticate restricted to admin accounts.
func (svc *Service) AuthenticateAdmin(email, password string) (User, error) {
	usr, err := svc.Authenticate(email, password)
	if err != nil {
		return User{}, err
	}
	if !usr.IsAdmin() {
		return User{}, ErrNotAdmin
	}
	return usr, nil
}

// OAuthUserInfo is the identity returned by an external provider.
type OAuthUserInfo struct {
	Provider          string
	ProviderAccountID string
	Email             string
	FullName          string
	AvatarURL         string
	AccessToken       string
	ExpiresAt         time.Time
}

// AuthenticateOAuth finds or creates the User matching an external identity
// and links the provider account to them.
func (svc *Service) AuthenticateOAuth(info OAuthUserInfo) (User, error) {
	now := core.NowFunc().UTC()

	email := core.CleanString(info.Email, true /* lower */)
	usr, err := svc.repo.GetUserByEmail(email)
	if err == ErrNotFound {
		usr = User{
			ID:        uuid.New().String(),
			FullName:  core.CleanString(info.FullName),
			Email:     email,
			Role:      RoleStudent,
			IsActive:  true,
			AvatarURL: info.AvatarURL,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if usr, err = svc.repo.CreateUser(usr); err != nil {
			return User{}, err
		}
		svc.sendWelcomeMail(usr)
	} else if err != nil {
		return User{}, err
	}
	if !usr.IsActive {
		return User{}, ErrUserInactive
	}

	account := OAuthAccount{
		ID:                uuid.New().String(),
		UserID:            usr.ID,
		Provider:          info.Provider,
		ProviderAccountID: info.ProviderAccountID,
		AccessToken:       info.AccessToken,
		ExpiresAt:         info.ExpiresAt,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if _, err = svc.repo.UpsertOAuthAccount(account); err != nil {
		return User{}, err
	}

	usr.LastLogin = now
	return svc.repo.UpdateUser(usr, nil)
}

func (svc *Service) QueryAll() ([]User, error) {
	return svc.repo.QueryAllUsers()
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

func (svc *Service) GetByEmail(email string) (User, error) {
	return svc.repo.GetUserByEmail(core.CleanString(email, true /* lower */))
}

func (svc *Service) Filter(filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(filter)
}

// GetUserBrief resolves a user id to the identity other domains embed in
// notifications and emails.
func (svc *Service) GetUserBrief(id string) (email, fullName string, err error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return "", "", err
	}
	return usr.Email, usr.FullName, nil
}

// UpdateProfile lets a user change their own display information.
func (svc *Service) UpdateProfile(id string, up UpdateProfile) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	if up.FullName != "" {
		usr.FullName = up.FullName
	}
	if up.Bio != "" {
		usr.Bio = up.Bio
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

// SetAvatar stores the URL of an uploaded avatar image.
func (svc *Service) SetAvatar(id, url string) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.AvatarURL = url
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(usr, nil)
}

// SetActive activates or deactivates an account (admin only).
func (svc *Service) SetActive(id string, isActive bool) (User, error) {
	usr, err := svc.repo.GetUserByID(id)
	if err != nil {
		return User{}, err
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	return svc.repo.UpdateUser(usr, &isActive)
}

// CreateAdmin creates an active admin account. Used by the admin CLI.
func (svc *Service) CreateAdmin(fullName, email, password string) (User, error) {
	email = core.CleanString(email, true /* lower */)
	if err := svc.checkEmailUniqueness(email); err != nil {
		return User{}, err
	}
	now := core.NowFunc().UTC()
	usr := User{
		ID:        uuid.New().String(),
		FullName:  core.CleanString(fullName),
		Email:     email,
		Role:      RoleAdmin,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(password); err != nil {
		return User{}, err
	}
	return svc.repo.CreateUser(usr)
}

// RequestPasswordReset generates a fresh PIN for the account and emails it.
// Any previously issued PINs are invalidated.
func (svc *Service) RequestPasswordReset(email string) error {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		return err
	}
	if err = svc.repo.InvalidatePasswordResets(usr.ID); err != nil {
		return err
	}

	pin, err := generatePIN()
	if err != nil {
		return err
	}
	now := core.NowFunc().UTC()
	reset := PasswordReset{
		ID:        uuid.New().String(),
		UserID:    usr.ID,
		PIN:       pin,
		CreatedAt: now,
		ExpiresAt: now.Add(core.Conf.PasswordResetPINTimeout),
	}
	if _, err = svc.repo.CreatePasswordReset(reset); err != nil {
		return err
	}
	svc.sendPasswordResetMail(usr, pin)
	return nil
}

// ResetPassword consumes a PIN and sets the new password.
func (svc *Service) ResetPassword(rp ResetUserPassword) error {
	usr, err := svc.GetByEmail(rp.Email)
	if err != nil {
		if err == ErrNotFound {
			return ErrInvalidPIN
		}
		return err
	}

	reset, err := svc.repo.GetPasswordReset(usr.ID, rp.PIN)
	if err != nil {
		if err == ErrNotFound {
			return ErrInvalidPIN
		}
		return err
	}
	if reset.Used {
		return ErrPINUsed
	}
	if reset.IsExpired(core.NowFunc().UTC()) {
		return ErrPINExpired
	}

	if err = usr.SetPassword(rp.Password); err != nil {
		return err
	}
	usr.UpdatedAt = core.NowFunc().UTC()
	if _, err = svc.repo.UpdateUser(usr, nil); err != nil {
		return err
	}
	return svc.repo.MarkPasswordResetUsed(reset.ID)
}

func (svc *Service) sendWelcomeMail(usr User) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject: fmt.Sprintf("Welcome to %s!", core.Conf.AppName),
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour account has been created. Explore our courses at %s.\n",
			usr.FullName, core.Conf.FrontendBaseURL,
		),
	}
	svc.mailSvc.SendMessages(msg)
}

func (svc *Service) sendPasswordResetMail(usr User, pin string) {
	msg := &core.EmailMessage{
		To:      []mail.Address{{Name: usr.FullName, Address: usr.Email}},
		Subject: fmt.Sprintf("%s - Password Reset PIN", core.Conf.AppName),
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour password reset PIN is %s. It expires in %d minutes.\n"+
				"If you did not request a reset, you can ignore this email.\n",
			usr.FullName, pin, int(core.Conf.PasswordResetPINTimeout.Minutes()),
		),
	}
	svc.mailSvc.SendMessages(msg)
}
