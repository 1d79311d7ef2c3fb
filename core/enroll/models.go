package enroll

import (
	"time"

	"github.com/edutech/backend/core"
)

// Enrollment statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// AuditEvent is one entry of an enrollment's audit trail, stored as JSON.
type AuditEvent struct {
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Enrollment records a student's paid relationship to a course, including
// approval state and time-boxed access.
type Enrollment struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	CourseID       string       `json:"course_id"`
	Status         string       `json:"status"`
	EnrollDate     *time.Time   `json:"enroll_date"`
	ExpirationDate *time.Time   `json:"expiration_date"`
	IsAccessible   bool         `json:"is_accessible"`
	DaysRemaining  *int         `json:"days_remaining"`
	LastAccessDate *time.Time   `json:"last_access_date"`
	AuditLog       []AuditEvent `json:"audit_log"`
}

// Refresh recomputes the time-derived access fields from `now`. Both
// operands are taken in the civil timezone so the remaining time truncates
// on calendar-day boundaries. Pure and idempotent; always stamps
// LastAccessDate.
//
// A nil ExpirationDate on an approved enrollment is an unbounded grant.
// Accessibility never turns on for a non-approved enrollment, whatever its
// dates say.
func (e *Enrollment) Refresh(now time.Time) {
	now = now.In(core.CivilLocation())
	if e.ExpirationDate != nil {
		days := core.FloorDays(e.ExpirationDate.In(core.CivilLocation()).Sub(now))
		e.DaysRemaining = &days
		e.IsAccessible = e.Status == StatusApproved && days > 0
	} else {
		e.DaysRemaining = nil
		e.IsAccessible = e.Status == StatusApproved
	}
	e.LastAccessDate = &now
}

// IsExpired reports whether a set expiration date has passed.
func (e *Enrollment) IsExpired() bool {
	return e.ExpirationDate != nil && e.DaysRemaining != nil && *e.DaysRemaining <= 0
}

func (e *Enrollment) appendAudit(action, details string, at time.Time) {
	e.AuditLog = append(e.AuditLog, AuditEvent{Action: action, Details: details, Timestamp: at.UTC()})
}

// PaymentProof is one uploaded evidence artifact. Append-only: a student
// resubmitting after rejection adds a row, never replaces one.
type PaymentProof struct {
	ID           string    `json:"id"`
	EnrollmentID string    `json:"enrollment_id"`
	ProofURL     string    `json:"proof_url"`
	SubmittedAt  time.Time `json:"submitted_at"` // UTC
}

// BankAccount is a payment destination shown on the purchase page.
type BankAccount struct {
	ID            string `json:"id"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	IsActive      bool   `json:"is_active"`
}

// StatusInfo is the human-readable enrollment state shown to the student.
type StatusInfo struct {
	Status         string     `json:"status"`
	Message        string     `json:"message"`
	ExpirationDate *time.Time `json:"expiration_date"`
	DaysRemaining  *int       `json:"days_remaining"`
	IsExpired      bool       `json:"is_expired"`
	IsAccessible   bool       `json:"is_accessible"`
}

// PurchaseInfo is what a student needs to pay for a course offline.
type PurchaseInfo struct {
	CourseTitle  string        `json:"course_title"`
	CoursePrice  float64       `json:"course_price"`
	BankAccounts []BankAccount `json:"bank_accounts"`
}
