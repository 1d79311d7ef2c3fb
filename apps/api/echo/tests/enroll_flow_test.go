package tests

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/notification"
)

func TestAPI_EnrollmentLifecycle(t *testing.T) {
	env := setup(t)
	admin := env.admin(t)
	student := env.student(t, "ada@edutech.test")
	crs := env.course(t, admin.ID, "Go From Scratch")
	env.db.AddBankAccount(enroll.BankAccount{
		ID: "acc1", AccountName: "EduTech Ltd", AccountNumber: "001122", BankName: "First Bank", IsActive: true,
	})

	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)

	t.Run("purchase info", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments/courses/"+crs.ID+"/purchase-info", studentToken)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var info enroll.PurchaseInfo
		decodeBody(t, rec, &info)
		assert.Equal(t, "Go From Scratch", info.CourseTitle)
		assert.Equal(t, float64(50), info.CoursePrice)
		require.Len(t, info.BankAccounts, 1)
		assert.Equal(t, "First Bank", info.BankAccounts[0].BankName)
	})

	t.Run("status before enrolling", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments/"+crs.ID+"/status", studentToken)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var info enroll.StatusInfo
		decodeBody(t, rec, &info)
		assert.Equal(t, "not_enrolled", info.Status)
	})

	t.Run("submit payment proof", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/enrollments/"+crs.ID+"/payment-proof", studentToken, "proof", "receipt.png")
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/enrollments/"+crs.ID+"/status", studentToken)
		env.app.ServeHTTP(rec, req)
		var info enroll.StatusInfo
		decodeBody(t, rec, &info)
		assert.Equal(t, enroll.StatusPending, info.Status)
	})

	t.Run("admin sees payment proof notification", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/notifications", adminToken)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var notifs []notification.Notification
		decodeBody(t, rec, &notifs)
		require.NotEmpty(t, notifs)
		assert.Equal(t, notification.EventPaymentProof, notifs[0].EventType)
	})

	t.Run("student cannot approve", func(t *testing.T) {
		q := url.Values{"user_id": {student.ID}, "course_id": {crs.ID}, "duration_months": {"2"}}
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/enrollments/approve?"+q.Encode(), studentToken)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("admin approves", func(t *testing.T) {
		q := url.Values{"user_id": {student.ID}, "course_id": {crs.ID}, "duration_months": {"2"}}
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/enrollments/approve?"+q.Encode(), adminToken)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enr enroll.Enrollment
		decodeBody(t, rec, &enr)
		assert.Equal(t, enroll.StatusApproved, enr.Status)
		assert.True(t, enr.IsAccessible)
		require.NotNil(t, enr.DaysRemaining)
		assert.Equal(t, 60, *enr.DaysRemaining)
	})

	t.Run("status after approval", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/enrollments/"+crs.ID+"/status", studentToken)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var info enroll.StatusInfo
		decodeBody(t, rec, &info)
		assert.Equal(t, enroll.StatusApproved, info.Status)
		assert.True(t, info.IsAccessible)
		assert.Contains(t, info.Message, "60 days remaining")
	})

	t.Run("test expiration cuts access", func(t *testing.T) {
		q := url.Values{"user_id": {student.ID}, "course_id": {crs.ID}}
		req, rec := newAuthRequest(http.MethodPost, "/v1/admin/enrollments/test-expiration?"+q.Encode(), adminToken)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newAuthRequest(http.MethodGet, "/v1/enrollments/"+crs.ID+"/status", studentToken)
		env.app.ServeHTTP(rec, req)
		var info enroll.StatusInfo
		decodeBody(t, rec, &info)
		assert.False(t, info.IsAccessible)
		assert.True(t, info.IsExpired)
	})
}

func TestAPI_EnrollmentRejection(t *testing.T) {
	env := setup(t)
	admin := env.admin(t)
	student := env.student(t, "bob@edutech.test")
	crs := env.course(t, admin.ID, "Intro to SQL")

	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)

	req, rec := newUploadRequest(t, http.MethodPost, "/v1/enrollments/"+crs.ID+"/payment-proof", studentToken, "proof", "receipt.png")
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	q := url.Values{"user_id": {student.ID}, "course_id": {crs.ID}}
	req, rec = newAuthRequest(http.MethodPut, "/v1/admin/enrollments/reject?"+q.Encode(), adminToken)
	env.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var enr enroll.Enrollment
	decodeBody(t, rec, &enr)
	assert.Equal(t, enroll.StatusRejected, enr.Status)
	assert.False(t, enr.IsAccessible)

	// a rejected student may resubmit proof on the same enrollment
	req, rec = newUploadRequest(t, http.MethodPost, "/v1/enrollments/"+crs.ID+"/payment-proof", studentToken, "proof", "receipt2.png")
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAPI_PaymentProofRequiresFile(t *testing.T) {
	env := setup(t)
	admin := env.admin(t)
	student := env.student(t, "ada@edutech.test")
	crs := env.course(t, admin.ID, "Go From Scratch")

	req, rec := newAuthRequest(http.MethodPost, "/v1/enrollments/"+crs.ID+"/payment-proof", getToken(t, student))
	env.app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}
