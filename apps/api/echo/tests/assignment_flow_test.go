package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
)

func seedAssignment(t *testing.T, env *env, courseID string, due time.Time) assignment.Assignment {
	t.Helper()
	asg, err := env.assignmentSvc.Create(courseID, assignment.NewAssignment{
		Title:       "Build a CLI",
		Description: "Ship a small command line tool.",
		DueDate:     due,
	})
	if err != nil {
		t.Fatalf("creating assignment: %v", err)
	}
	return asg
}

func TestAPI_AssignmentFlow(t *testing.T) {
	env := setup(t)
	admin := env.admin(t)
	student := env.student(t, "ada@edutech.test")
	crs := env.course(t, admin.ID, "Go From Scratch")
	asg := seedAssignment(t, env, crs.ID, core.NowFunc().Add(72*time.Hour))
	env.enroll(t, student.ID, crs.ID, 1)

	token := getToken(t, student)
	adminToken := getToken(t, admin)
	base := "/v1/courses/" + crs.ID + "/assignments"

	t.Run("list and detail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base, token)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var asgs []assignment.Assignment
		decodeBody(t, rec, &asgs)
		require.Len(t, asgs, 1)

		req, rec = newAuthRequest(http.MethodGet, base+"/"+asg.ID, token)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var detail assignment.AssignmentDetail
		decodeBody(t, rec, &detail)
		assert.Nil(t, detail.MySubmission)
	})

	var submissionID string
	t.Run("submit before deadline", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, base+"/"+asg.ID+"/submissions", token, "file", "work.pdf")
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var sub assignment.Submission
		decodeBody(t, rec, &sub)
		assert.Contains(t, sub.ContentURL, "assignment_submissions/work.pdf")
		submissionID = sub.ID
	})

	t.Run("duplicate submission rejected", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, base+"/"+asg.ID+"/submissions", token, "file", "work2.pdf")
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("detail shows my submission", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base+"/"+asg.ID, token)
		env.app.ServeHTTP(rec, req)
		var detail assignment.AssignmentDetail
		decodeBody(t, rec, &detail)
		require.NotNil(t, detail.MySubmission)
		assert.Equal(t, submissionID, detail.MySubmission.ID)
	})

	t.Run("admin grades", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"grade": 87.5, "feedback": "Solid work."})
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/submissions/"+submissionID+"/grade", adminToken, body)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var sub assignment.Submission
		decodeBody(t, rec, &sub)
		require.NotNil(t, sub.Grade)
		assert.Equal(t, 87.5, *sub.Grade)
		assert.Equal(t, "Solid work.", sub.Feedback)
	})

	t.Run("admin listings carry student identity", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/assignments/"+asg.ID+"/submissions", adminToken)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var subs []assignment.GradedSubmission
		decodeBody(t, rec, &subs)
		require.Len(t, subs, 1)
		assert.Equal(t, "ada@edutech.test", subs[0].StudentEmail)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/assignments/"+asg.ID+"/submissions/on-time", adminToken)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeBody(t, rec, &subs)
		assert.Len(t, subs, 1)
	})
}

func TestAPI_AssignmentDeadline(t *testing.T) {
	env := setup(t)
	admin := env.admin(t)
	student := env.student(t, "bob@edutech.test")
	crs := env.course(t, admin.ID, "Go From Scratch")
	asg := seedAssignment(t, env, crs.ID, core.NowFunc().Add(-time.Hour))
	env.enroll(t, student.ID, crs.ID, 1)

	req, rec := newUploadRequest(t, http.MethodPost, "/v1/courses/"+crs.ID+"/assignments/"+asg.ID+"/submissions", getToken(t, student), "file", "late.pdf")
	env.app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	var res httpErr
	decodeBody(t, rec, &res)
	assert.Contains(t, res.Error, "deadline has passed")
}
