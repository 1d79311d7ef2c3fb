package inmemdb

import (
	"sort"
	"strings"

	"github.com/edutech/backend/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(email string, excludedUsers ...user.User) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email != email {
			continue
		}
		excluded := false
		for _, excl := range excludedUsers {
			if excl.ID == usr.ID {
				excluded = true
			}
		}
		if !excluded {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(usr user.User) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.users {
		if existing.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryAllUsers() ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, *usr)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (repo *userRepository) GetUserByID(id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) FilterUsers(filter user.QueryFilter) ([]user.User, error) {
	all, err := repo.QueryAllUsers()
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(filter.Search)
	users := make([]user.User, 0, len(all))
	for _, usr := range all {
		if search != "" &&
			!strings.Contains(strings.ToLower(usr.FullName), search) &&
			!strings.Contains(strings.ToLower(usr.Email), search) {
			continue
		}
		if filter.Role != "" && usr.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
			continue
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(usr user.User, isActive *bool) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if isActive != nil {
		usr.IsActive = *isActive
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetOAuthAccount(provider, providerAccountID string) (user.OAuthAccount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, acc := range repo.db.oauthAccounts {
		if acc.Provider == provider && acc.ProviderAccountID == providerAccountID {
			return *acc, nil
		}
	}
	return user.OAuthAccount{}, user.ErrNotFound
}

func (repo *userRepository) UpsertOAuthAccount(account user.OAuthAccount) (user.OAuthAccount, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, acc := range repo.db.oauthAccounts {
		if acc.Provider == account.Provider && acc.ProviderAccountID == account.ProviderAccountID {
			account.ID = acc.ID
			repo.db.oauthAccounts[id] = &account
			return account, nil
		}
	}
	repo.db.oauthAccounts[account.ID] = &account
	return account, nil
}

func (repo *userRepository) CreatePasswordReset(reset user.PasswordReset) (user.PasswordReset, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.passwordResets[reset.ID] = &reset
	return reset, nil
}

func (repo *userRepository) GetPasswordReset(userID, pin string) (user.PasswordReset, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var latest *user.PasswordReset
	for _, reset := range repo.db.passwordResets {
		if reset.UserID != userID || reset.PIN != pin {
			continue
		}
		if latest == nil || reset.CreatedAt.After(latest.CreatedAt) {
			latest = reset
		}
	}
	if latest == nil {
		return user.PasswordReset{}, user.ErrNotFound
	}
	return *latest, nil
}

func (repo *userRepository) MarkPasswordResetUsed(id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if reset, ok := repo.db.passwordResets[id]; ok {
		reset.Used = true
	}
	return nil
}

func (repo *userRepository) InvalidatePasswordResets(userID string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, reset := range repo.db.passwordResets {
		if reset.UserID == userID {
			reset.Used = true
		}
	}
	return nil
}
