package echoapi

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
	"github.com/edutech/backend/core/assignment"
	"github.com/edutech/backend/core/course"
	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/notification"
	"github.com/edutech/backend/core/quiz"
	"github.com/edutech/backend/core/user"
)

type adminApi struct {
	userSvc       *user.Service
	courseSvc     *course.Service
	enrollSvc     *enroll.Service
	quizSvc       *quiz.Service
	assignmentSvc *assignment.Service
	notifSvc      *notification.Service
}

func registerAdminAPI(
	g *echo.Group,
	userSvc *user.Service,
	courseSvc *course.Service,
	enrollSvc *enroll.Service,
	quizSvc *quiz.Service,
	assignmentSvc *assignment.Service,
	notifSvc *notification.Service,
) {
	api := adminApi{
		userSvc:       userSvc,
		courseSvc:     courseSvc,
		enrollSvc:     enrollSvc,
		quizSvc:       quizSvc,
		assignmentSvc: assignmentSvc,
		notifSvc:      notifSvc,
	}

	g.GET("/users", api.listUsers)
	g.PUT("/users/:id/active", api.setUserActive)

	g.GET("/dashboard", api.dashboard)
	g.GET("/courses", api.listCourses)
	g.POST("/courses", api.createCourse)
	g.GET("/courses/:course_id", api.courseDetail)
	g.PUT("/courses/:course_id", api.updateCourse)
	g.DELETE("/courses/:course_id", api.deleteCourse)
	g.PUT("/courses/:course_id/videos", api.replaceVideos)

	g.GET("/courses/:course_id/enrollments", api.listEnrollments)
	g.GET("/enrollments/:enrollment_id/payment-proofs", api.paymentProofs)
	g.PUT("/enrollments/approve", api.approveEnrollment)
	g.PUT("/enrollments/reject", api.rejectEnrollment)
	g.POST("/enrollments/test-expiration", api.testExpiration)

	g.GET("/notifications", api.recentNotifications)

	g.GET("/courses/:course_id/quizzes", api.listQuizzes)
	g.POST("/courses/:course_id/quizzes", api.createQuiz)
	g.PUT("/quizzes/:quiz_id", api.updateQuiz)
	g.DELETE("/quizzes/:quiz_id", api.deleteQuiz)
	g.GET("/quizzes/:quiz_id/submissions", api.quizSubmissions)
	g.GET("/quizzes/:quiz_id/audit", api.quizAudit)

	g.GET("/courses/:course_id/assignments", api.listAssignments)
	g.POST("/courses/:course_id/assignments", api.createAssignment)
	g.PUT("/assignments/:assignment_id", api.updateAssignment)
	g.DELETE("/assignments/:assignment_id", api.deleteAssignment)
	g.GET("/assignments/:assignment_id/submissions", api.assignmentSubmissions)
	g.GET("/assignments/:assignment_id/submissions/on-time", api.onTimeSubmissions)
	g.PUT("/submissions/:submission_id/grade", api.gradeSubmission)
}

// Users

func (api *adminApi) listUsers(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}

	users, err := api.userSvc.Filter(*filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) setUserActive(ctx echo.Context) error {
	var data struct {
		IsActive *bool `json:"is_active"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding active payload")
	}
	if data.IsActive == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "is_active", Error: "is_active is required"})
	}

	usr, err := api.userSvc.SetActive(ctx.Param("id"), *data.IsActive)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

// Courses

func (api *adminApi) dashboard(ctx echo.Context) error {
	stats, err := api.courseSvc.Dashboard()
	if err != nil {
		return errors.Wrap(err, "computing dashboard stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *adminApi) listCourses(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []course.CourseWithStats{})
	}

	courses, err := api.courseSvc.AdminList(*filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.CourseWithStats{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *adminApi) courseDetail(ctx echo.Context) error {
	crs, err := api.courseSvc.AdminDetail(ctx.Param("course_id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

// bindCoursePayload accepts either a plain JSON body or a multipart form
// with a "data" JSON field and an optional "thumbnail" file.
func bindCoursePayload(ctx echo.Context, dst interface{}) (thumbnail multipart.File, filename string, err error) {
	contentType := ctx.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		return nil, "", errors.Wrap(ctx.Bind(dst), "binding course payload")
	}

	data := ctx.FormValue("data")
	if data == "" {
		return nil, "", core.NewValidationError(nil, core.FieldError{Field: "data", Error: "a data JSON field is required"})
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return nil, "", core.NewValidationError(nil, core.FieldError{Field: "data", Error: "invalid JSON"})
	}

	fileHdr, err := ctx.FormFile("thumbnail")
	if err != nil {
		return nil, "", nil // thumbnail is optional
	}
	file, err := fileHdr.Open()
	if err != nil {
		return nil, "", errors.Wrap(err, "opening uploaded thumbnail")
	}
	return file, fileHdr.Filename, nil
}

func (api *adminApi) createCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data course.NewCourse
	thumbnail, filename, err := bindCoursePayload(ctx, &data)
	if err != nil {
		return err
	}
	var reader io.Reader
	if thumbnail != nil {
		//goland:noinspection GoUnhandledErrorResult
		defer thumbnail.Close()
		reader = thumbnail
	}

	crs, err := api.courseSvc.Create(ctx.Request().Context(), claims.Subject, data, reader, filename)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *adminApi) updateCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data course.UpdateCourse
	thumbnail, filename, err := bindCoursePayload(ctx, &data)
	if err != nil {
		return err
	}
	var reader io.Reader
	if thumbnail != nil {
		//goland:noinspection GoUnhandledErrorResult
		defer thumbnail.Close()
		reader = thumbnail
	}

	crs, err := api.courseSvc.Update(ctx.Request().Context(), claims.Subject, ctx.Param("course_id"), data, reader, filename)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *adminApi) deleteCourse(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	if err := api.courseSvc.Delete(claims.Subject, ctx.Param("course_id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) replaceVideos(ctx echo.Context) error {
	var data struct {
		Videos []course.NewVideo `json:"videos"`
	}
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding videos payload")
	}

	vids, err := api.courseSvc.ReplaceVideos(ctx.Param("course_id"), data.Videos)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, vids)
}

// Enrollments

func (api *adminApi) listEnrollments(ctx echo.Context) error {
	enrs, err := api.enrollSvc.ListByCourse(ctx.Param("course_id"))
	if err != nil {
		return errors.Wrap(err, "listing enrollments")
	}
	if enrs == nil {
		enrs = []enroll.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrs)
}

func (api *adminApi) paymentProofs(ctx echo.Context) error {
	proofs, err := api.enrollSvc.PaymentProofs(ctx.Param("enrollment_id"))
	if err != nil {
		return errors.Wrap(err, "listing payment proofs")
	}
	if proofs == nil {
		proofs = []enroll.PaymentProof{}
	}
	return ctx.JSON(http.StatusOK, proofs)
}

func enrollmentTarget(ctx echo.Context) (userID, courseID string, err error) {
	userID = ctx.QueryParam("user_id")
	courseID = ctx.QueryParam("course_id")
	var flds []core.FieldError
	if userID == "" {
		flds = append(flds, core.FieldError{Field: "user_id", Error: "user_id is required"})
	}
	if courseID == "" {
		flds = append(flds, core.FieldError{Field: "course_id", Error: "course_id is required"})
	}
	if len(flds) > 0 {
		return "", "", core.NewValidationError(nil, flds...)
	}
	return userID, courseID, nil
}

func (api *adminApi) approveEnrollment(ctx echo.Context) error {
	userID, courseID, err := enrollmentTarget(ctx)
	if err != nil {
		return err
	}
	months, err := strconv.Atoi(ctx.QueryParam("duration_months"))
	if err != nil || months <= 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "duration_months", Error: "a positive duration_months is required"})
	}

	enr, err := api.enrollSvc.Approve(userID, courseID, months)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *adminApi) rejectEnrollment(ctx echo.Context) error {
	userID, courseID, err := enrollmentTarget(ctx)
	if err != nil {
		return err
	}

	enr, err := api.enrollSvc.Reject(userID, courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *adminApi) testExpiration(ctx echo.Context) error {
	userID, courseID, err := enrollmentTarget(ctx)
	if err != nil {
		return err
	}

	enr, err := api.enrollSvc.ExpireNow(userID, courseID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

// Notifications

func (api *adminApi) recentNotifications(ctx echo.Context) error {
	notifs, err := api.notifSvc.ListRecent()
	if err != nil {
		return errors.Wrap(err, "listing notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

// Quizzes

func (api *adminApi) listQuizzes(ctx echo.Context) error {
	quizzes, err := api.quizSvc.ListByCourse(ctx.Param("course_id"))
	if err != nil {
		return errors.Wrap(err, "listing quizzes")
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	return ctx.JSON(http.StatusOK, quizzes)
}

func (api *adminApi) createQuiz(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}

	qz, err := api.quizSvc.Create(ctx.Param("course_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, qz)
}

func (api *adminApi) updateQuiz(ctx echo.Context) error {
	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}

	qz, err := api.quizSvc.Update(ctx.Param("quiz_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, qz)
}

func (api *adminApi) deleteQuiz(ctx echo.Context) error {
	if err := api.quizSvc.Delete(ctx.Param("quiz_id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) quizSubmissions(ctx echo.Context) error {
	results, err := api.quizSvc.Submissions(ctx.Param("quiz_id"))
	if err != nil {
		return err
	}
	if results == nil {
		results = []quiz.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *adminApi) quizAudit(ctx echo.Context) error {
	entries, err := api.quizSvc.AuditTrail(ctx.Param("quiz_id"))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []quiz.AuditEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// Assignments

func (api *adminApi) listAssignments(ctx echo.Context) error {
	asgs, err := api.assignmentSvc.ListByCourse(ctx.Param("course_id"))
	if err != nil {
		return errors.Wrap(err, "listing assignments")
	}
	if asgs == nil {
		asgs = []assignment.Assignment{}
	}
	return ctx.JSON(http.StatusOK, asgs)
}

func (api *adminApi) createAssignment(ctx echo.Context) error {
	var data assignment.NewAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAssignment")
	}

	asg, err := api.assignmentSvc.Create(ctx.Param("course_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, asg)
}

func (api *adminApi) updateAssignment(ctx echo.Context) error {
	var data assignment.UpdateAssignment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAssignment")
	}

	asg, err := api.assignmentSvc.Update(ctx.Param("assignment_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asg)
}

func (api *adminApi) deleteAssignment(ctx echo.Context) error {
	if err := api.assignmentSvc.Delete(ctx.Param("assignment_id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *adminApi) assignmentSubmissions(ctx echo.Context) error {
	subs, err := api.assignmentSvc.Submissions(ctx.Param("assignment_id"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []assignment.GradedSubmission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *adminApi) onTimeSubmissions(ctx echo.Context) error {
	subs, err := api.assignmentSvc.OnTimeSubmissions(ctx.Param("assignment_id"))
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []assignment.GradedSubmission{}
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *adminApi) gradeSubmission(ctx echo.Context) error {
	var data assignment.GradeSubmission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GradeSubmission")
	}

	sub, err := api.assignmentSvc.Grade(ctx.Param("submission_id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sub)
}
