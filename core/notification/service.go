package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
)

var ErrNotFound = errors.New("notification not found")

// Event types
const (
	EventPaymentProof       = "payment_proof"
	EventEnrollmentApproved = "enrollment_approved"
	EventEnrollmentRejected = "enrollment_rejected"
	EventEnrollmentExpired  = "enrollment_expired"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	EventType string    `json:"event_type"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"` // UTC
}

type (
	Repository interface {
		CreateNotification(notif Notification) (Notification, error)
		QueryNotificationsByUser(userID string) ([]Notification, error)
		// QueryRecentNotifications returns the newest notifications across
		// all users, newest first.
		QueryRecentNotifications(limit int) ([]Notification, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Notify records an event for a user. Failures are logged, never surfaced:
// a lost notification must not fail the operation that raised it.
func (svc *Service) Notify(userID, eventType, details string) {
	notif := Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		EventType: eventType,
		Details:   details,
		Timestamp: core.NowFunc().UTC(),
	}
	if _, err := svc.repo.CreateNotification(notif); err != nil {
		svc.logger.Error("creating notification: "+err.Error(), err)
	}
}

func (svc *Service) ListForUser(userID string) ([]Notification, error) {
	return svc.repo.QueryNotificationsByUser(userID)
}

// ListRecent returns the 50 newest notifications. Used by the admin panel.
func (svc *Service) ListRecent() ([]Notification, error) {
	return svc.repo.QueryRecentNotifications(50)
}
