package enroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/notification"
)

var (
	// errors
	ErrNotFound       = errors.New("enrollment not found")
	ErrCourseNotFound = errors.New("course not found")
)

const proofFolder = "payment_proofs"

type (
	Repository interface {
		GetEnrollment(userID, courseID string) (Enrollment, error)
		GetEnrollmentByID(id string) (Enrollment, error)
		CreateEnrollment(enr Enrollment) (Enrollment, error)
		UpdateEnrollment(enr Enrollment) (Enrollment, error)
		// QueryEnrollmentsByUser returns all of a student's enrollments,
		// optionally restricted to a status.
		QueryEnrollmentsByUser(userID string, status ...string) ([]Enrollment, error)
		QueryEnrollmentsByCourse(courseID string) ([]Enrollment, error)
		CountEnrollmentsByCourse(courseID string) (total, approved int, err error)
		CountEnrollments() (total, accessible int, err error)
		// ApprovedRevenue sums the price of the enrolled course over approved
		// enrollments; courseID narrows it to one course when non-empty.
		ApprovedRevenue(courseID string) (float64, error)

		CreatePaymentProof(proof PaymentProof) (PaymentProof, error)
		QueryPaymentProofs(enrollmentID string) ([]PaymentProof, error)

		QueryActiveBankAccounts() ([]BankAccount, error)
	}

	// CourseCatalog is the slice of the course domain this package needs.
	CourseCatalog interface {
		GetCourseBrief(courseID string) (title string, price float64, err error)
	}

	// UserDirectory resolves a user id to the identity used in
	// notifications and emails.
	UserDirectory interface {
		GetUserBrief(userID string) (email, fullName string, err error)
	}

	// Notifier records an event for a user, best-effort.
	Notifier interface {
		Notify(userID, eventType, details string)
	}

	Service struct {
		repo     Repository
		courses  CourseCatalog
		users    UserDirectory
		notifier Notifier
		storage  core.FileStorage
		mailSvc  core.EmailService
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	courses CourseCatalog,
	users UserDirectory,
	notifier Notifier,
	storage core.FileStorage,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		users:    users,
		notifier: notifier,
		storage:  storage,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

// SubmitPaymentProof stores the uploaded proof, creates the pending
// enrollment when the student has none yet, and alerts the admins.
// Resubmissions append a new proof to the same enrollment.
func (svc *Service) SubmitPaymentProof(ctx context.Context, studentID, courseID string, file io.Reader, filename string) error {
	url, err := svc.storage.Upload(ctx, file, proofFolder, filename)
	if err != nil {
		return err
	}

	courseTitle, _, err := svc.courses.GetCourseBrief(courseID)
	if err != nil {
		return err
	}

	now := core.CivilNow()
	enr, err := svc.repo.GetEnrollment(studentID, courseID)
	if err == ErrNotFound {
		enrollDate := now
		enr = Enrollment{
			ID:           uuid.New().String(),
			UserID:       studentID,
			CourseID:     courseID,
			Status:       StatusPending,
			EnrollDate:   &enrollDate,
			IsAccessible: false,
		}
		enr.appendAudit("payment_proof_submitted", "", now)
		if enr, err = svc.repo.CreateEnrollment(enr); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	proof := PaymentProof{
		ID:           uuid.New().String(),
		EnrollmentID: enr.ID,
		ProofURL:     url,
		SubmittedAt:  core.NowFunc().UTC(),
	}
	if _, err = svc.repo.CreatePaymentProof(proof); err != nil {
		return err
	}

	email, fullName, err := svc.users.GetUserBrief(studentID)
	if err != nil {
		svc.logger.Error("resolving student identity: "+err.Error(), err)
		email, fullName = "", studentID
	}
	if fullName == "" {
		fullName = email
	}
	svc.notifier.Notify(studentID, notification.EventPaymentProof, fmt.Sprintf(
		"Payment proof submitted for course %s.\nUser: %s (ID: %s)\nEmail: %s\nProof image: %s",
		courseTitle, fullName, studentID, email, url,
	))
	return nil
}

// Approve grants a student time-boxed access: 30 days per duration month,
// counted from the enrollment date. Notification and email are best-effort;
// the approval stands even if both fail.
func (svc *Service) Approve(userID, courseID string, durationMonths int) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	now := core.CivilNow()
	enr.Status = StatusApproved
	if enr.EnrollDate == nil {
		enrollDate := now
		enr.EnrollDate = &enrollDate
	}
	expiration := enr.EnrollDate.Add(time.Duration(30*durationMonths) * 24 * time.Hour)
	enr.ExpirationDate = &expiration
	enr.Refresh(now)
	enr.appendAudit("approved", fmt.Sprintf("access for %d month(s)", durationMonths), now)

	if enr, err = svc.repo.UpdateEnrollment(enr); err != nil {
		return Enrollment{}, err
	}

	days := 0
	if enr.DaysRemaining != nil {
		days = *enr.DaysRemaining
	}
	svc.notifier.Notify(enr.UserID, notification.EventEnrollmentApproved, fmt.Sprintf(
		"Enrollment approved for course ID %s. Access granted until %s (%d days remaining)",
		enr.CourseID, expiration.Format("2006-01-02 15:04:05 MST"), days,
	))
	svc.sendApprovalMail(enr, days)
	return enr, nil
}

func (svc *Service) sendApprovalMail(enr Enrollment, daysRemaining int) {
	email, fullName, err := svc.users.GetUserBrief(enr.UserID)
	if err != nil {
		svc.logger.Error("sending approval email: "+err.Error(), err)
		return
	}
	courseTitle, _, err := svc.courses.GetCourseBrief(enr.CourseID)
	if err != nil {
		svc.logger.Error("sending approval email: "+err.Error(), err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: fullName, Address: email}},
		Subject: "Enrollment Approved",
		TextContent: fmt.Sprintf(
			"Hi %s,\n\nYour enrollment for \"%s\" has been approved. "+
				"You have access until %s (%d days remaining).\n",
			fullName, courseTitle, enr.ExpirationDate.Format("2006-01-02"), daysRemaining,
		),
	})
}

// Reject closes a pending enrollment without granting access.
func (svc *Service) Reject(userID, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	now := core.CivilNow()
	enr.Status = StatusRejected
	enr.IsAccessible = false
	enr.appendAudit("rejected", "", now)

	if enr, err = svc.repo.UpdateEnrollment(enr); err != nil {
		return Enrollment{}, err
	}
	svc.notifier.Notify(enr.UserID, notification.EventEnrollmentRejected, fmt.Sprintf(
		"Enrollment rejected for course ID %s. Contact support if you believe this is a mistake.",
		enr.CourseID,
	))
	return enr, nil
}

// ExpireNow sets the enrollment's expiration to today's civil midnight.
// Admin helper for exercising the expiration path.
func (svc *Service) ExpireNow(userID, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}

	now := core.CivilNow()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, core.CivilLocation())
	enr.ExpirationDate = &midnight
	enr.Refresh(now)
	enr.appendAudit("expired", "expiration forced by admin", now)

	if enr, err = svc.repo.UpdateEnrollment(enr); err != nil {
		return Enrollment{}, err
	}
	svc.notifier.Notify(enr.UserID, notification.EventEnrollmentExpired, fmt.Sprintf(
		"Your enrollment for course ID %s has expired today (%s)",
		enr.CourseID, midnight.Format("2006-01-02 15:04:05 MST"),
	))
	return enr, nil
}

// Status refreshes the enrollment and shapes it for the student UI.
func (svc *Service) Status(studentID, courseID string) (StatusInfo, error) {
	enr, err := svc.repo.GetEnrollment(studentID, courseID)
	if err == ErrNotFound {
		return StatusInfo{
			Status:  "not_enrolled",
			Message: "You are not enrolled in this course.",
		}, nil
	} else if err != nil {
		return StatusInfo{}, err
	}

	enr.Refresh(core.CivilNow())
	if enr, err = svc.repo.UpdateEnrollment(enr); err != nil {
		return StatusInfo{}, err
	}

	switch {
	case enr.Status == StatusPending:
		return StatusInfo{
			Status:         StatusPending,
			Message:        "Your course enrollment is pending admin approval.",
			ExpirationDate: enr.ExpirationDate,
			DaysRemaining:  enr.DaysRemaining,
			IsExpired:      enr.IsExpired(),
			IsAccessible:   enr.IsAccessible,
		}, nil
	case enr.Status == StatusApproved && enr.IsExpired():
		zero := 0
		return StatusInfo{
			Status:         "expired",
			Message:        "Your course access has expired.",
			ExpirationDate: enr.ExpirationDate,
			DaysRemaining:  &zero,
			IsExpired:      true,
			IsAccessible:   false,
		}, nil
	case enr.Status == StatusApproved:
		days := 0
		if enr.DaysRemaining != nil {
			days = *enr.DaysRemaining
		}
		return StatusInfo{
			Status:         StatusApproved,
			Message:        fmt.Sprintf("Your course enrollment is approved! %d days remaining.", days),
			ExpirationDate: enr.ExpirationDate,
			DaysRemaining:  enr.DaysRemaining,
			IsExpired:      false,
			IsAccessible:   true,
		}, nil
	default:
		return StatusInfo{
			Status:         enr.Status,
			Message:        fmt.Sprintf("Your enrollment status is %s.", enr.Status),
			ExpirationDate: enr.ExpirationDate,
			DaysRemaining:  enr.DaysRemaining,
			IsExpired:      enr.IsExpired(),
			IsAccessible:   enr.IsAccessible,
		}, nil
	}
}

// GetPurchaseInfo returns what a student needs to pay for a course offline.
func (svc *Service) GetPurchaseInfo(courseID string) (PurchaseInfo, error) {
	title, price, err := svc.courses.GetCourseBrief(courseID)
	if err != nil {
		return PurchaseInfo{}, err
	}
	accounts, err := svc.repo.QueryActiveBankAccounts()
	if err != nil {
		return PurchaseInfo{}, err
	}
	return PurchaseInfo{
		CourseTitle:  title,
		CoursePrice:  price,
		BankAccounts: accounts,
	}, nil
}

// CheckAccess reports whether the student may view the course's content
// right now. The check reads current state; it does not refresh first.
func (svc *Service) CheckAccess(studentID, courseID string) error {
	enr, err := svc.repo.GetEnrollment(studentID, courseID)
	if err == ErrNotFound {
		return core.NewForbiddenError("you are not enrolled in this course")
	} else if err != nil {
		return err
	}
	if enr.Status != StatusApproved || !enr.IsAccessible {
		return core.NewForbiddenError("you are not enrolled in this course or your access has expired")
	}
	return nil
}

// AccessibleEnrollments refreshes and persists the student's approved
// enrollments and returns the ones still accessible.
func (svc *Service) AccessibleEnrollments(studentID string) ([]Enrollment, error) {
	enrs, err := svc.repo.QueryEnrollmentsByUser(studentID, StatusApproved)
	if err != nil {
		return nil, err
	}

	now := core.CivilNow()
	valid := make([]Enrollment, 0, len(enrs))
	for _, enr := range enrs {
		enr.Refresh(now)
		if enr, err = svc.repo.UpdateEnrollment(enr); err != nil {
			return nil, err
		}
		if enr.IsAccessible {
			valid = append(valid, enr)
		}
	}
	return valid, nil
}

// CountByCourse exposes enrollment counts for the admin course views.
func (svc *Service) CountByCourse(courseID string) (total, approved int, err error) {
	return svc.repo.CountEnrollmentsByCourse(courseID)
}

// Counts exposes platform-wide enrollment counts for the dashboard.
func (svc *Service) Counts() (total, accessible int, err error) {
	return svc.repo.CountEnrollments()
}

// Revenue sums approved enrollments' course prices; courseID narrows to one
// course when non-empty.
func (svc *Service) Revenue(courseID string) (float64, error) {
	return svc.repo.ApprovedRevenue(courseID)
}

// ListByCourse returns a course's enrollments with their payment proofs.
// Admin view backing the approval queue.
func (svc *Service) ListByCourse(courseID string) ([]Enrollment, error) {
	return svc.repo.QueryEnrollmentsByCourse(courseID)
}

// PaymentProofs returns the audit trail of uploaded proofs for an enrollment.
func (svc *Service) PaymentProofs(enrollmentID string) ([]PaymentProof, error) {
	if _, err := svc.repo.GetEnrollmentByID(enrollmentID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPaymentProofs(enrollmentID)
}
