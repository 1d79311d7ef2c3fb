package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/edutech/backend/apps/api/echo"
	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
	"github.com/edutech/backend/core/certificate"
	"github.com/edutech/backend/core/course"
	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/notification"
	"github.com/edutech/backend/core/quiz"
	"github.com/edutech/backend/core/user"
	emailsvc "github.com/edutech/backend/services/email"
	pdfsvc "github.com/edutech/backend/services/pdf"
	inmemdb "github.com/edutech/backend/storage/database/inmem"
)

// env gathers everything a flow test needs to seed data and call the API.
type env struct {
	app Server
	db  *inmemdb.DB

	userSvc       *user.Service
	courseSvc     *course.Service
	enrollSvc     *enroll.Service
	quizSvc       *quiz.Service
	assignmentSvc *assignment.Service
	certSvc       *certificate.Service
	notifSvc      *notification.Service

	mailSvc *emailsvc.ConsoleServiceMock
}

// fakeStorage hands back deterministic URLs without network access.
type fakeStorage struct{}

func (fakeStorage) Upload(_ context.Context, _ io.Reader, folder, filename string) (string, error) {
	return fmt.Sprintf("https://files.test/%s/%s", folder, filename), nil
}

// courseCatalog defers the course service lookup so the enrollment and
// course services can reference each other.
type courseCatalog struct {
	svc *course.Service
}

func (c *courseCatalog) GetCourseBrief(courseID string) (string, float64, error) {
	return c.svc.GetCourseBrief(courseID)
}

func setup(t *testing.T) *env {
	t.Helper()

	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := core.NewNopLogger()
	storage := fakeStorage{}

	usrSvc := user.NewService(inmemdb.NewUserRepository(db), mailSvc, logger)
	notifSvc := notification.NewService(inmemdb.NewNotificationRepository(db), logger)

	catalog := &courseCatalog{}
	enrollSvc := enroll.NewService(inmemdb.NewEnrollRepository(db), catalog, usrSvc, notifSvc, storage, mailSvc, logger)
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db), enrollSvc, storage, logger)
	catalog.svc = courseSvc

	quizSvc := quiz.NewService(inmemdb.NewQuizRepository(db), enrollSvc, logger)
	assignmentSvc := assignment.NewService(inmemdb.NewAssignmentRepository(db), enrollSvc, usrSvc, storage, logger)
	certSvc := certificate.NewService(
		inmemdb.NewCertificateRepository(db),
		courseSvc,
		courseSvc,
		usrSvc,
		pdfsvc.NewCertificateRenderer(core.Conf),
		storage,
		logger,
	)

	app := NewServer(&Options{
		DisableReqLogs:  true,
		UserSvc:         usrSvc,
		CourseSvc:       courseSvc,
		EnrollSvc:       enrollSvc,
		QuizSvc:         quizSvc,
		AssignmentSvc:   assignmentSvc,
		CertificateSvc:  certSvc,
		NotificationSvc: notifSvc,
		Storage:         storage,
		Logger:          logger,
	})

	return &env{
		app:           app,
		db:            db,
		userSvc:       usrSvc,
		courseSvc:     courseSvc,
		enrollSvc:     enrollSvc,
		quizSvc:       quizSvc,
		assignmentSvc: assignmentSvc,
		certSvc:       certSvc,
		notifSvc:      notifSvc,
		mailSvc:       mailSvc,
	}
}

func (e *env) student(t *testing.T, email string) user.User {
	t.Helper()
	usr, err := e.userSvc.Register(user.NewUser{
		FullName:        "Student " + email,
		Email:           email,
		Password:        "s3cr3tPass!",
		PasswordConfirm: "s3cr3tPass!",
	})
	if err != nil {
		t.Fatalf("creating student: %v", err)
	}
	return usr
}

func (e *env) admin(t *testing.T) user.User {
	t.Helper()
	usr, err := e.userSvc.CreateAdmin("Site Admin", "admin@edutech.test", "adm1nPass!")
	if err != nil {
		t.Fatalf("creating admin: %v", err)
	}
	return usr
}

func (e *env) course(t *testing.T, adminID, title string, videos ...course.NewVideo) course.Course {
	t.Helper()
	crs, err := e.courseSvc.Create(context.Background(), adminID, course.NewCourse{
		Title:       title,
		Description: "A thorough, hands-on walkthrough.",
		Price:       50,
		Videos:      videos,
	}, nil, "")
	if err != nil {
		t.Fatalf("creating course: %v", err)
	}
	return crs
}

// enroll approves an enrollment end to end: proof submission then admin
// approval for the given number of months.
func (e *env) enroll(t *testing.T, studentID, courseID string, months int) {
	t.Helper()
	if err := e.enrollSvc.SubmitPaymentProof(context.Background(), studentID, courseID, bytes.NewBufferString("proof"), "proof.png"); err != nil {
		t.Fatalf("submitting payment proof: %v", err)
	}
	if _, err := e.enrollSvc.Approve(studentID, courseID, months); err != nil {
		t.Fatalf("approving enrollment: %v", err)
	}
}

type httpErr struct {
	Error string `json:"error"`
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// newUploadRequest builds a multipart request with a single file field.
func newUploadRequest(t *testing.T, method, path, token, field, filename string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err = fw.Write([]byte("file-content")); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	if err = w.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}
