package sqlxrepos

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/user"
)

type userRepository struct {
	db DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string    `db:"id"`
	FullName     string    `db:"full_name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	AvatarURL    string    `db:"avatar_url"`
	Bio          string    `db:"bio"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    null.Time `db:"created_at"`
	UpdatedAt    null.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (r userRow) toDomain() user.User {
	return user.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive,
		AvatarURL:    r.AvatarURL,
		Bio:          r.Bio,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FullName:     usr.FullName,
		Email:        usr.Email,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		AvatarURL:    usr.AvatarURL,
		Bio:          usr.Bio,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    null.TimeFrom(usr.CreatedAt.UTC()),
		UpdatedAt:    null.TimeFrom(usr.UpdatedAt.UTC()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func toUsers(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users
}

const userColumns = `id, full_name, email, role, is_active, avatar_url, bio, password_hash, created_at, updated_at, last_login`

func (repo userRepository) CheckEmailUniqueness(email string, excludedUsers ...user.User) error {
	query := `SELECT COUNT(*) FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		q, qargs, err := sqlx.In(`SELECT COUNT(*) FROM "user" WHERE email = ? AND id NOT IN (?)`, email, ids)
		if err != nil {
			return errors.Wrap(err, "checking email uniqueness")
		}
		query, args = repo.db.Rebind(q), qargs
	}

	var count int
	if err := repo.db.Get(&count, query, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(usr user.User) (user.User, error) {
	row := toUserRow(usr)
	_, err := repo.db.NamedExec(`
		INSERT INTO "user" (`+userColumns+`)
		VALUES (:id, :full_name, :email, :role, :is_active, :avatar_url, :bio, :password_hash, :created_at, :updated_at, :last_login)`,
		row,
	)
	if err != nil {
		if isUniqueViolation(err, "") {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toDomain(), nil
}

func (repo userRepository) QueryAllUsers() ([]user.User, error) {
	var rows []userRow
	if err := repo.db.Select(&rows, `SELECT `+userColumns+` FROM "user" ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return toUsers(rows), nil
}

func (repo userRepository) GetUserByID(id string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT `+userColumns+` FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user by id")
	}
	return row.toDomain(), nil
}

func (repo userRepository) GetUserByEmail(email string) (user.User, error) {
	var row userRow
	if err := repo.db.Get(&row, `SELECT `+userColumns+` FROM "user" WHERE email = $1`, email); err != nil {
		return user.User{}, trapNoRows(err, user.ErrNotFound, "getting user by email")
	}
	return row.toDomain(), nil
}

func (repo userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	query := `SELECT ` + userColumns + ` FROM "user" WHERE 1=1`
	var args []interface{}

	// positional args built incrementally
	i := 0
	next := func(v interface{}) string {
		args = append(args, v)
		i++
		return fmt.Sprintf("$%d", i)
	}

	if filter.Search != "" {
		p := next("%" + filter.Search + "%")
		query += fmt.Sprintf(" AND (full_name ILIKE %s OR email ILIKE %s)", p, p)
	}
	if filter.Role != "" {
		query += " AND role = " + next(filter.Role)
	}
	if filter.IsActive != nil {
		query += " AND is_active = " + next(*filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		query += " AND created_at >= " + next(filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		query += " AND created_at <= " + next(filter.CreatedTo.UTC())
	}
	query += " ORDER BY created_at DESC"

	var rows []userRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return toUsers(rows), nil
}

func (repo userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	if isActive != nil {
		usr.IsActive = *isActive
	}
	row := toUserRow(usr)
	res, err := repo.db.NamedExec(`
		UPDATE "user"
		SET full_name = :full_name, email = :email, role = :role, is_active = :is_active,
		    avatar_url = :avatar_url, bio = :bio, password_hash = :password_hash,
		    updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return row.toDomain(), nil
}

type oauthAccountRow struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	Provider          string    `db:"provider"`
	ProviderAccountID string    `db:"provider_account_id"`
	AccessToken       string    `db:"access_token"`
	ExpiresAt         null.Time `db:"expires_at"`
	CreatedAt         null.Time `db:"created_at"`
	UpdatedAt         null.Time `db:"updated_at"`
}

func (r oauthAccountRow) toDomain() user.OAuthAccount {
	return user.OAuthAccount{
		ID:                r.ID,
		UserID:            r.UserID,
		Provider:          r.Provider,
		ProviderAccountID: r.ProviderAccountID,
		AccessToken:       r.AccessToken,
		ExpiresAt:         r.ExpiresAt.Time,
		CreatedAt:         r.CreatedAt.Time,
		UpdatedAt:         r.UpdatedAt.Time,
	}
}

func (repo userRepository) GetOAuthAccount(provider, providerAccountID string) (user.OAuthAccount, error) {
	var row oauthAccountRow
	err := repo.db.Get(&row, `
		SELECT id, user_id, provider, provider_account_id, access_token, expires_at, created_at, updated_at
		FROM oauth_account
		WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	)
	if err != nil {
		return user.OAuthAccount{}, trapNoRows(err, user.ErrNotFound, "getting oauth account")
	}
	return row.toDomain(), nil
}

func (repo userRepository) UpsertOAuthAccount(account user.OAuthAccount) (user.OAuthAccount, error) {
	row := oauthAccountRow{
		ID:                account.ID,
		UserID:            account.UserID,
		Provider:          account.Provider,
		ProviderAccountID: account.ProviderAccountID,
		AccessToken:       account.AccessToken,
		ExpiresAt:         null.NewTime(account.ExpiresAt.UTC(), !account.ExpiresAt.IsZero()),
		CreatedAt:         null.TimeFrom(account.CreatedAt.UTC()),
		UpdatedAt:         null.TimeFrom(account.UpdatedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO oauth_account (id, user_id, provider, provider_account_id, access_token, expires_at, created_at, updated_at)
		VALUES (:id, :user_id, :provider, :provider_account_id, :access_token, :expires_at, :created_at, :updated_at)
		ON CONFLICT (provider, provider_account_id)
		DO UPDATE SET access_token = EXCLUDED.access_token, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at`,
		row,
	)
	if err != nil {
		return user.OAuthAccount{}, errors.Wrap(err, "upserting oauth account")
	}
	return row.toDomain(), nil
}

type passwordResetRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	PIN       string    `db:"pin"`
	Used      bool      `db:"used"`
	CreatedAt null.Time `db:"created_at"`
	ExpiresAt null.Time `db:"expires_at"`
}

func (r passwordResetRow) toDomain() user.PasswordReset {
	return user.PasswordReset{
		ID:        r.ID,
		UserID:    r.UserID,
		PIN:       r.PIN,
		Used:      r.Used,
		CreatedAt: r.CreatedAt.Time,
		ExpiresAt: r.ExpiresAt.Time,
	}
}

func (repo userRepository) CreatePasswordReset(reset user.PasswordReset) (user.PasswordReset, error) {
	row := passwordResetRow{
		ID:        reset.ID,
		UserID:    reset.UserID,
		PIN:       reset.PIN,
		Used:      reset.Used,
		CreatedAt: null.TimeFrom(reset.CreatedAt.UTC()),
		ExpiresAt: null.TimeFrom(reset.ExpiresAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO password_reset (id, user_id, pin, used, created_at, expires_at)
		VALUES (:id, :user_id, :pin, :used, :created_at, :expires_at)`,
		row,
	)
	if err != nil {
		return user.PasswordReset{}, errors.Wrap(err, "inserting password reset")
	}
	return row.toDomain(), nil
}

func (repo userRepository) GetPasswordReset(userID, pin string) (user.PasswordReset, error) {
	var row passwordResetRow
	err := repo.db.Get(&row, `
		SELECT id, user_id, pin, used, created_at, expires_at
		FROM password_reset
		WHERE user_id = $1 AND pin = $2
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, pin,
	)
	if err != nil {
		return user.PasswordReset{}, trapNoRows(err, user.ErrNotFound, "getting password reset")
	}
	return row.toDomain(), nil
}

func (repo userRepository) MarkPasswordResetUsed(id string) error {
	_, err := repo.db.Exec(`UPDATE password_reset SET used = TRUE WHERE id = $1`, id)
	return errors.Wrap(err, "marking password reset used")
}

func (repo userRepository) InvalidatePasswordResets(userID string) error {
	_, err := repo.db.Exec(`UPDATE password_reset SET used = TRUE WHERE user_id = $1 AND used = FALSE`, userID)
	return errors.Wrap(err, "invalidating password resets")
}
