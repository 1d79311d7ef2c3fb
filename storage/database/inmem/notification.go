package inmemdb

import (
	"sort"

	"github.com/edutech/backend/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(notif notification.Notification) (notification.Notification, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.notifications = append(repo.db.notifications, notif)
	return notif, nil
}

func (repo *notificationRepository) QueryNotificationsByUser(userID string) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, notif := range repo.db.notifications {
		if notif.UserID == userID {
			notifs = append(notifs, notif)
		}
	}
	sortNewestFirst(notifs)
	return notifs, nil
}

func (repo *notificationRepository) QueryRecentNotifications(limit int) ([]notification.Notification, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	notifs := append([]notification.Notification(nil), repo.db.notifications...)
	sortNewestFirst(notifs)
	if limit > 0 && limit < len(notifs) {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func sortNewestFirst(notifs []notification.Notification) {
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].Timestamp.After(notifs[j].Timestamp) })
}
