package sqlxrepos

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/notification"
)

type notificationRepository struct {
	db DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	EventType string    `db:"event_type"`
	Details   string    `db:"details"`
	Timestamp null.Time `db:"timestamp"`
}

func (r notificationRow) toDomain() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		EventType: r.EventType,
		Details:   r.Details,
		Timestamp: r.Timestamp.Time,
	}
}

func (repo notificationRepository) CreateNotification(notif notification.Notification) (notification.Notification, error) {
	row := notificationRow{
		ID:        notif.ID,
		UserID:    notif.UserID,
		EventType: notif.EventType,
		Details:   notif.Details,
		Timestamp: null.TimeFrom(notif.Timestamp.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO notification (id, user_id, event_type, details, timestamp)
		VALUES (:id, :user_id, :event_type, :details, :timestamp)`,
		row,
	)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.toDomain(), nil
}

func (repo notificationRepository) QueryNotificationsByUser(userID string) ([]notification.Notification, error) {
	var rows []notificationRow
	err := repo.db.Select(&rows, `
		SELECT id, user_id, event_type, details, timestamp
		FROM notification
		WHERE user_id = $1
		ORDER BY timestamp DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return toNotifications(rows), nil
}

func (repo notificationRepository) QueryRecentNotifications(limit int) ([]notification.Notification, error) {
	var rows []notificationRow
	err := repo.db.Select(&rows, `
		SELECT id, user_id, event_type, details, timestamp
		FROM notification
		ORDER BY timestamp DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent notifications")
	}
	return toNotifications(rows), nil
}

func toNotifications(rows []notificationRow) []notification.Notification {
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.toDomain())
	}
	return notifs
}
