package certificate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
)

var ErrNotFound = errors.New("certificate not found")

const certificateFolder = "certificates"

type Certificate struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	CourseID          string    `json:"course_id"`
	CertificateNumber string    `json:"certificate_number"`
	FileURL           string    `json:"file_url"`
	IssuedAt          time.Time `json:"issued_at"`
}

type (
	Repository interface {
		GetCertificate(userID, courseID string) (Certificate, error)
		CreateCertificate(cert Certificate) (Certificate, error)
		QueryCertificatesByUser(userID string) ([]Certificate, error)
	}

	// ProgressChecker reports whether the student finished the course.
	ProgressChecker interface {
		IsCompleted(studentID, courseID string) (bool, error)
	}

	// CourseCatalog resolves the course title printed on the document.
	CourseCatalog interface {
		GetCourseBrief(courseID string) (title string, price float64, err error)
	}

	// UserDirectory resolves the student name printed on the document.
	UserDirectory interface {
		GetUserBrief(userID string) (email, fullName string, err error)
	}

	// Renderer produces the PDF document.
	Renderer interface {
		Render(studentName, courseTitle, certificateNumber string, issuedAt time.Time) (*bytes.Buffer, error)
	}

	Service struct {
		repo     Repository
		progress ProgressChecker
		courses  CourseCatalog
		users    UserDirectory
		renderer Renderer
		storage  core.FileStorage
		logger   core.Logger
	}
)

func NewService(
	repo Repository,
	progress ProgressChecker,
	courses CourseCatalog,
	users UserDirectory,
	renderer Renderer,
	storage core.FileStorage,
	logger core.Logger,
) *Service {
	return &Service{
		repo:     repo,
		progress: progress,
		courses:  courses,
		users:    users,
		renderer: renderer,
		storage:  storage,
		logger:   logger,
	}
}

// Get finds or generates the student's certificate for a completed
// course. Generation renders the PDF, uploads it, and records the
// certificate so later reads return the same document.
func (svc *Service) Get(ctx context.Context, studentID, courseID string) (Certificate, error) {
	courseTitle, _, err := svc.courses.GetCourseBrief(courseID)
	if err != nil {
		return Certificate{}, err
	}

	done, err := svc.progress.IsCompleted(studentID, courseID)
	if err != nil {
		return Certificate{}, err
	}
	if !done {
		return Certificate{}, core.NewForbiddenError("you must complete the course to receive a certificate")
	}

	_, fullName, err := svc.users.GetUserBrief(studentID)
	if err != nil {
		return Certificate{}, err
	}
	if fullName == "" {
		return Certificate{}, core.NewValidationError(nil, core.FieldError{
			Field: "full_name",
			Error: "add your full name to your profile before requesting a certificate",
		})
	}

	cert, err := svc.repo.GetCertificate(studentID, courseID)
	if err == nil {
		return cert, nil
	} else if err != ErrNotFound {
		return Certificate{}, err
	}

	now := core.NowFunc().UTC()
	number := newCertificateNumber(studentID, now)
	doc, err := svc.renderer.Render(fullName, courseTitle, number, now)
	if err != nil {
		return Certificate{}, err
	}
	url, err := svc.storage.Upload(ctx, doc, certificateFolder, number+".pdf")
	if err != nil {
		return Certificate{}, err
	}

	return svc.repo.CreateCertificate(Certificate{
		ID:                uuid.New().String(),
		UserID:            studentID,
		CourseID:          courseID,
		CertificateNumber: number,
		FileURL:           url,
		IssuedAt:          now,
	})
}

// ListForUser returns the student's earned certificates.
func (svc *Service) ListForUser(studentID string) ([]Certificate, error) {
	return svc.repo.QueryCertificatesByUser(studentID)
}

func newCertificateNumber(userID string, now time.Time) string {
	suffix := userID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("CERT-%d-%s", now.Unix(), suffix)
}
