package enroll

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core"
	emailsvc "github.com/edutech/backend/services/email"
)

type fakeRepo struct {
	enrollments map[string]Enrollment // by ID
	proofs      []PaymentProof
	accounts    []BankAccount
	prices      map[string]float64 // courseID -> price, for revenue sums
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		enrollments: make(map[string]Enrollment),
		prices:      make(map[string]float64),
	}
}

func (r *fakeRepo) GetEnrollment(userID, courseID string) (Enrollment, error) {
	for _, enr := range r.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return Enrollment{}, ErrNotFound
}

func (r *fakeRepo) GetEnrollmentByID(id string) (Enrollment, error) {
	if enr, ok := r.enrollments[id]; ok {
		return enr, nil
	}
	return Enrollment{}, ErrNotFound
}

func (r *fakeRepo) CreateEnrollment(enr Enrollment) (Enrollment, error) {
	r.enrollments[enr.ID] = enr
	return enr, nil
}

func (r *fakeRepo) UpdateEnrollment(enr Enrollment) (Enrollment, error) {
	if _, ok := r.enrollments[enr.ID]; !ok {
		return Enrollment{}, ErrNotFound
	}
	r.enrollments[enr.ID] = enr
	return enr, nil
}

func (r *fakeRepo) QueryEnrollmentsByUser(userID string, status ...string) ([]Enrollment, error) {
	var res []Enrollment
	for _, enr := range r.enrollments {
		if enr.UserID != userID {
			continue
		}
		if len(status) > 0 {
			match := false
			for _, s := range status {
				if enr.Status == s {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		res = append(res, enr)
	}
	return res, nil
}

func (r *fakeRepo) QueryEnrollmentsByCourse(courseID string) ([]Enrollment, error) {
	var res []Enrollment
	for _, enr := range r.enrollments {
		if enr.CourseID == courseID {
			res = append(res, enr)
		}
	}
	return res, nil
}

func (r *fakeRepo) CountEnrollmentsByCourse(courseID string) (total, approved int, err error) {
	for _, enr := range r.enrollments {
		if enr.CourseID != courseID {
			continue
		}
		total++
		if enr.Status == StatusApproved {
			approved++
		}
	}
	return total, approved, nil
}

func (r *fakeRepo) CountEnrollments() (total, accessible int, err error) {
	for _, enr := range r.enrollments {
		total++
		if enr.Status == StatusApproved && enr.IsAccessible {
			accessible++
		}
	}
	return total, accessible, nil
}

func (r *fakeRepo) ApprovedRevenue(courseID string) (float64, error) {
	var sum float64
	for _, enr := range r.enrollments {
		if enr.Status != StatusApproved {
			continue
		}
		if courseID != "" && enr.CourseID != courseID {
			continue
		}
		sum += r.prices[enr.CourseID]
	}
	return sum, nil
}

func (r *fakeRepo) CreatePaymentProof(proof PaymentProof) (PaymentProof, error) {
	r.proofs = append(r.proofs, proof)
	return proof, nil
}

func (r *fakeRepo) QueryPaymentProofs(enrollmentID string) ([]PaymentProof, error) {
	var res []PaymentProof
	for _, p := range r.proofs {
		if p.EnrollmentID == enrollmentID {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r *fakeRepo) QueryActiveBankAccounts() ([]BankAccount, error) {
	var res []BankAccount
	for _, acc := range r.accounts {
		if acc.IsActive {
			res = append(res, acc)
		}
	}
	return res, nil
}

type fakeCatalog map[string]float64 // courseID -> price

func (c fakeCatalog) GetCourseBrief(courseID string) (string, float64, error) {
	price, ok := c[courseID]
	if !ok {
		return "", 0, core.NewNotFoundError("course not found")
	}
	return "Course " + courseID, price, nil
}

type fakeUsers map[string][2]string // userID -> {email, fullName}

func (u fakeUsers) GetUserBrief(userID string) (string, string, error) {
	brief, ok := u[userID]
	if !ok {
		return "", "", core.NewNotFoundError("user not found")
	}
	return brief[0], brief[1], nil
}

type notifEvent struct {
	userID, eventType, details string
}

type fakeNotifier struct{ events []notifEvent }

func (n *fakeNotifier) Notify(userID, eventType, details string) {
	n.events = append(n.events, notifEvent{userID, eventType, details})
}

type fakeStorage struct{ uploads []string }

func (s *fakeStorage) Upload(_ context.Context, _ io.Reader, folder, filename string) (string, error) {
	url := fmt.Sprintf("https://files.test/%s/%s", folder, filename)
	s.uploads = append(s.uploads, url)
	return url, nil
}

type testEnv struct {
	svc      *Service
	repo     *fakeRepo
	notifier *fakeNotifier
	storage  *fakeStorage
	mailSvc  *emailsvc.ConsoleServiceMock
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	repo.prices["crs1"] = 50
	notifier := &fakeNotifier{}
	storage := &fakeStorage{}
	mailSvc := emailsvc.NewConsoleServiceMock()
	svc := NewService(
		repo,
		fakeCatalog{"crs1": 50},
		fakeUsers{"std1": {"jane@test.test", "Jane Doe"}},
		notifier,
		storage,
		mailSvc,
		core.NewNopLogger(),
	)
	return &testEnv{svc: svc, repo: repo, notifier: notifier, storage: storage, mailSvc: mailSvc}
}

// fixClock pins NowFunc for the duration of the test.
func fixClock(t *testing.T, now time.Time) {
	t.Helper()
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })
}

func TestEnrollment_Refresh(t *testing.T) {
	loc := core.CivilLocation()
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, loc)

	expIn := func(d time.Duration) *time.Time {
		exp := now.Add(d)
		return &exp
	}
	days := func(n int) *int { return &n }

	tests := []struct {
		name           string
		enr            Enrollment
		wantDays       *int
		wantAccessible bool
	}{
		{
			name:           "approved with future expiration",
			enr:            Enrollment{Status: StatusApproved, ExpirationDate: expIn(10*24*time.Hour + time.Hour)},
			wantDays:       days(10),
			wantAccessible: true,
		},
		{
			name:           "approved expiring within the day",
			enr:            Enrollment{Status: StatusApproved, ExpirationDate: expIn(time.Hour)},
			wantDays:       days(0),
			wantAccessible: false,
		},
		{
			name:           "approved past expiration",
			enr:            Enrollment{Status: StatusApproved, ExpirationDate: expIn(-time.Hour)},
			wantDays:       days(-1),
			wantAccessible: false,
		},
		{
			name:           "approved without expiration is an unbounded grant",
			enr:            Enrollment{Status: StatusApproved},
			wantDays:       nil,
			wantAccessible: true,
		},
		{
			name:           "pending never becomes accessible",
			enr:            Enrollment{Status: StatusPending},
			wantDays:       nil,
			wantAccessible: false,
		},
		{
			name:           "rejected never becomes accessible",
			enr:            Enrollment{Status: StatusRejected, ExpirationDate: expIn(5 * 24 * time.Hour)},
			wantDays:       days(5),
			wantAccessible: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.enr.Refresh(now)
			if tt.wantDays == nil {
				assert.Nil(t, tt.enr.DaysRemaining)
			} else {
				require.NotNil(t, tt.enr.DaysRemaining)
				assert.Equal(t, *tt.wantDays, *tt.enr.DaysRemaining)
			}
			assert.Equal(t, tt.wantAccessible, tt.enr.IsAccessible)
			require.NotNil(t, tt.enr.LastAccessDate)
			assert.True(t, tt.enr.LastAccessDate.Equal(now))

			// accessibility implies approval, always
			if tt.enr.IsAccessible {
				assert.Equal(t, StatusApproved, tt.enr.Status)
			}
		})
	}
}

func TestEnrollment_Refresh_Idempotent(t *testing.T) {
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, core.CivilLocation())
	exp := now.Add(72 * time.Hour)
	enr := Enrollment{Status: StatusApproved, ExpirationDate: &exp}

	enr.Refresh(now)
	first := enr
	enr.Refresh(now)
	assert.Equal(t, first, enr)
}

func TestService_SubmitPaymentProof(t *testing.T) {
	env := newTestEnv()
	fixClock(t, time.Date(2023, time.May, 10, 12, 0, 0, 0, time.UTC))

	// unknown course
	err := env.svc.SubmitPaymentProof(context.Background(), "std1", "nope", strings.NewReader("img"), "proof.png")
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, env.svc.SubmitPaymentProof(context.Background(), "std1", "crs1", strings.NewReader("img"), "proof.png"))

	enr, err := env.repo.GetEnrollment("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, enr.Status)
	assert.False(t, enr.IsAccessible)
	require.NotNil(t, enr.EnrollDate)

	proofs, err := env.repo.QueryPaymentProofs(enr.ID)
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	assert.Contains(t, proofs[0].ProofURL, "payment_proofs/proof.png")

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, "payment_proof", env.notifier.events[0].eventType)
	assert.Contains(t, env.notifier.events[0].details, "jane@test.test")

	// resubmission appends a proof, never a second enrollment
	require.NoError(t, env.svc.SubmitPaymentProof(context.Background(), "std1", "crs1", strings.NewReader("img2"), "proof2.png"))
	assert.Len(t, env.repo.enrollments, 1)
	proofs, _ = env.repo.QueryPaymentProofs(enr.ID)
	assert.Len(t, proofs, 2)
}

func TestService_Approve(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, core.CivilLocation())
	fixClock(t, now)

	// no enrollment yet
	_, err := env.svc.Approve("std1", "crs1", 1)
	assert.Equal(t, ErrNotFound, err)

	require.NoError(t, env.svc.SubmitPaymentProof(context.Background(), "std1", "crs1", strings.NewReader("img"), "proof.png"))
	env.notifier.events = nil

	enr, err := env.svc.Approve("std1", "crs1", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, enr.Status)
	assert.True(t, enr.IsAccessible)
	require.NotNil(t, enr.ExpirationDate)
	require.NotNil(t, enr.EnrollDate)

	// expiration = enroll date + 30 days per month, exactly
	assert.True(t, enr.ExpirationDate.Equal(enr.EnrollDate.Add(60*24*time.Hour)))
	require.NotNil(t, enr.DaysRemaining)
	assert.Equal(t, 60, *enr.DaysRemaining)

	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, "enrollment_approved", env.notifier.events[0].eventType)

	require.Len(t, env.mailSvc.SentMessages, 1)
	msg := env.mailSvc.SentMessages[0]
	assert.Equal(t, "Enrollment Approved", msg.Subject)
	assert.Contains(t, msg.TextContent, "Course crs1")
}

func TestService_Approve_KeepsEnrollDate(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, core.CivilLocation())
	fixClock(t, now)

	enrollDate := now.Add(-10 * 24 * time.Hour)
	_, err := env.repo.CreateEnrollment(Enrollment{
		ID: "enr1", UserID: "std1", CourseID: "crs1", Status: StatusPending, EnrollDate: &enrollDate,
	})
	require.NoError(t, err)

	enr, err := env.svc.Approve("std1", "crs1", 1)
	require.NoError(t, err)
	assert.True(t, enr.EnrollDate.Equal(enrollDate))
	assert.True(t, enr.ExpirationDate.Equal(enrollDate.Add(30*24*time.Hour)))
	// 30 days from an enroll date 10 days ago leaves 20
	require.NotNil(t, enr.DaysRemaining)
	assert.Equal(t, 20, *enr.DaysRemaining)
}

func TestService_Reject(t *testing.T) {
	env := newTestEnv()
	fixClock(t, time.Date(2023, time.May, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, env.svc.SubmitPaymentProof(context.Background(), "std1", "crs1", strings.NewReader("img"), "proof.png"))
	env.notifier.events = nil

	enr, err := env.svc.Reject("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, enr.Status)
	assert.False(t, enr.IsAccessible)
	require.Len(t, env.notifier.events, 1)
	assert.Equal(t, "enrollment_rejected", env.notifier.events[0].eventType)
}

func TestService_Status(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, core.CivilLocation())
	fixClock(t, now)

	info, err := env.svc.Status("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, "not_enrolled", info.Status)
	assert.False(t, info.IsAccessible)

	require.NoError(t, env.svc.SubmitPaymentProof(context.Background(), "std1", "crs1", strings.NewReader("img"), "proof.png"))
	info, err = env.svc.Status("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, "pending", info.Status)
	assert.False(t, info.IsAccessible)

	_, err = env.svc.Approve("std1", "crs1", 1)
	require.NoError(t, err)
	info, err = env.svc.Status("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, "approved", info.Status)
	assert.True(t, info.IsAccessible)
	assert.Contains(t, info.Message, "30 days remaining")

	// past the expiration date
	fixClock(t, now.Add(31*24*time.Hour))
	info, err = env.svc.Status("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, "expired", info.Status)
	assert.True(t, info.IsExpired)
	assert.False(t, info.IsAccessible)
	require.NotNil(t, info.DaysRemaining)
	assert.Equal(t, 0, *info.DaysRemaining)

	// the stored record still says approved; only accessibility changed
	enr, err := env.repo.GetEnrollment("std1", "crs1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, enr.Status)
}

func TestService_CheckAccess(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, core.CivilLocation())
	fixClock(t, now)

	err := env.svc.CheckAccess("std1", "crs1")
	assert.True(t, core.IsForbidden(err))

	require.NoError(t, env.svc.SubmitPaymentProof(context.Background(), "std1", "crs1", strings.NewReader("img"), "proof.png"))
	err = env.svc.CheckAccess("std1", "crs1")
	assert.True(t, core.IsForbidden(err))

	_, err = env.svc.Approve("std1", "crs1", 1)
	require.NoError(t, err)
	assert.NoError(t, env.svc.CheckAccess("std1", "crs1"))
}

func TestService_AccessibleEnrollments(t *testing.T) {
	env := newTestEnv()
	now := time.Date(2023, time.May, 10, 12, 0, 0, 0, core.CivilLocation())
	fixClock(t, now)

	expired := now.Add(-24 * time.Hour)
	active := now.Add(10 * 24 * time.Hour)
	for i, enr := range []Enrollment{
		{UserID: "std1", CourseID: "crs1", Status: StatusApproved, ExpirationDate: &active},
		{UserID: "std1", CourseID: "crs2", Status: StatusApproved, ExpirationDate: &expired, IsAccessible: true},
		{UserID: "std1", CourseID: "crs3", Status: StatusPending},
	} {
		enr.ID = fmt.Sprintf("enr%d", i)
		_, err := env.repo.CreateEnrollment(enr)
		require.NoError(t, err)
	}

	valid, err := env.svc.AccessibleEnrollments("std1")
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, "crs1", valid[0].CourseID)

	// the stale accessible flag on the expired enrollment was persisted away
	enr, err := env.repo.GetEnrollment("std1", "crs2")
	require.NoError(t, err)
	assert.False(t, enr.IsAccessible)
}

func TestService_GetPurchaseInfo(t *testing.T) {
	env := newTestEnv()
	env.repo.accounts = []BankAccount{
		{ID: "b1", BankName: "First Bank", AccountName: "EduTech", AccountNumber: "0123", IsActive: true},
		{ID: "b2", BankName: "Old Bank", AccountName: "EduTech", AccountNumber: "9999", IsActive: false},
	}

	_, err := env.svc.GetPurchaseInfo("nope")
	assert.True(t, core.IsNotFound(err))

	info, err := env.svc.GetPurchaseInfo("crs1")
	require.NoError(t, err)
	assert.Equal(t, "Course crs1", info.CourseTitle)
	assert.Equal(t, 50.0, info.CoursePrice)
	require.Len(t, info.BankAccounts, 1)
	assert.Equal(t, "First Bank", info.BankAccounts[0].BankName)
}
