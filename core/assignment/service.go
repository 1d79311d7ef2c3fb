package assignment

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("assignment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAlreadySubmitted is also produced by the sqlx repository when a
	// concurrent insert loses to the unique (assignment_id, student_id)
	// index.
	ErrAlreadySubmitted = errors.New("assignment already submitted")
)

const submissionFolder = "assignment_submissions"

type (
	Repository interface {
		CreateAssignment(asg Assignment) (Assignment, error)
		GetAssignmentByID(id string) (Assignment, error)
		QueryAssignmentsByCourse(courseID string) ([]Assignment, error)
		UpdateAssignment(asg Assignment) (Assignment, error)
		DeleteAssignment(id string) error

		// CreateSubmission returns ErrAlreadySubmitted when the student
		// already has a row for the assignment.
		CreateSubmission(sub Submission) (Submission, error)
		GetSubmissionByID(id string) (Submission, error)
		GetSubmissionByStudent(assignmentID, studentID string) (Submission, error)
		QuerySubmissionsByAssignment(assignmentID string) ([]Submission, error)
		UpdateSubmission(sub Submission) (Submission, error)
	}

	// AccessChecker gates assignment reads and submissions on a current,
	// accessible enrollment.
	AccessChecker interface {
		CheckAccess(studentID, courseID string) error
	}

	// UserDirectory resolves student identities for the admin listings.
	UserDirectory interface {
		GetUserBrief(userID string) (email, fullName string, err error)
	}

	Service struct {
		repo    Repository
		access  AccessChecker
		users   UserDirectory
		storage core.FileStorage
		logger  core.Logger
	}
)

func NewService(repo Repository, access AccessChecker, users UserDirectory, storage core.FileStorage, logger core.Logger) *Service {
	return &Service{repo: repo, access: access, users: users, storage: storage, logger: logger}
}

// getAssignmentInCourse treats an assignment reached through the wrong
// course as nonexistent.
func (svc *Service) getAssignmentInCourse(courseID, assignmentID string) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if asg.CourseID != courseID {
		return Assignment{}, ErrNotFound
	}
	return asg, nil
}

// ListForCourse returns a course's assignments for an enrolled student.
func (svc *Service) ListForCourse(studentID, courseID string) ([]Assignment, error) {
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAssignmentsByCourse(courseID)
}

// Detail returns the assignment with the student's own submission, when
// one exists.
func (svc *Service) Detail(studentID, courseID, assignmentID string) (AssignmentDetail, error) {
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return AssignmentDetail{}, err
	}
	asg, err := svc.getAssignmentInCourse(courseID, assignmentID)
	if err != nil {
		return AssignmentDetail{}, err
	}

	detail := AssignmentDetail{Assignment: asg}
	sub, err := svc.repo.GetSubmissionByStudent(assignmentID, studentID)
	if err == nil {
		detail.MySubmission = &sub
	} else if err != ErrSubmissionNotFound {
		return AssignmentDetail{}, err
	}
	return detail, nil
}

// Submit uploads the student's work and records the one allowed
// submission. The deadline is checked before the duplicate, so a late
// resubmission reads as "deadline passed" rather than "already
// submitted".
func (svc *Service) Submit(ctx context.Context, studentID, courseID, assignmentID string, file io.Reader, filename string) (Submission, error) {
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return Submission{}, err
	}
	asg, err := svc.getAssignmentInCourse(courseID, assignmentID)
	if err != nil {
		return Submission{}, err
	}

	now := core.NowFunc().UTC()
	if now.After(asg.DueDate) {
		return Submission{}, core.NewForbiddenError("the submission deadline has passed")
	}
	if _, err = svc.repo.GetSubmissionByStudent(assignmentID, studentID); err == nil {
		return Submission{}, core.NewForbiddenError("you have already submitted this assignment")
	} else if err != ErrSubmissionNotFound {
		return Submission{}, err
	}

	url, err := svc.storage.Upload(ctx, file, submissionFolder, filename)
	if err != nil {
		return Submission{}, err
	}

	sub, err := svc.repo.CreateSubmission(Submission{
		ID:           uuid.New().String(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		ContentURL:   url,
		SubmittedAt:  now,
	})
	if err == ErrAlreadySubmitted {
		return Submission{}, core.NewForbiddenError("you have already submitted this assignment")
	}
	return sub, err
}

// Grade records the admin's grade and feedback on a submission.
func (svc *Service) Grade(submissionID string, gs GradeSubmission) (Submission, error) {
	if err := gs.Validate(); err != nil {
		return Submission{}, err
	}
	sub, err := svc.repo.GetSubmissionByID(submissionID)
	if err != nil {
		return Submission{}, err
	}

	now := core.NowFunc().UTC()
	sub.Grade = &gs.Grade
	sub.Feedback = gs.Feedback
	sub.GradedAt = &now
	return svc.repo.UpdateSubmission(sub)
}

// Create adds an assignment to a course. Admin only.
func (svc *Service) Create(courseID string, na NewAssignment) (Assignment, error) {
	if err := na.Validate(); err != nil {
		return Assignment{}, err
	}
	return svc.repo.CreateAssignment(Assignment{
		ID:          uuid.New().String(),
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		DueDate:     na.DueDate.UTC(),
		CreatedAt:   core.NowFunc().UTC(),
	})
}

// Update edits an assignment. Admin only.
func (svc *Service) Update(assignmentID string, ua UpdateAssignment) (Assignment, error) {
	asg, err := svc.repo.GetAssignmentByID(assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if err = ua.Validate(); err != nil {
		return Assignment{}, err
	}
	asg.Title = ua.Title
	asg.Description = ua.Description
	asg.DueDate = ua.DueDate.UTC()
	return svc.repo.UpdateAssignment(asg)
}

// Delete removes an assignment. Admin only.
func (svc *Service) Delete(assignmentID string) error {
	if _, err := svc.repo.GetAssignmentByID(assignmentID); err != nil {
		return err
	}
	return svc.repo.DeleteAssignment(assignmentID)
}

// ListByCourse returns a course's assignments without an enrollment
// gate. Admin only.
func (svc *Service) ListByCourse(courseID string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByCourse(courseID)
}

// Submissions returns an assignment's submissions with student
// identities. Admin only.
func (svc *Service) Submissions(assignmentID string) ([]GradedSubmission, error) {
	if _, err := svc.repo.GetAssignmentByID(assignmentID); err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubmissionsByAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	return svc.decorate(subs), nil
}

// OnTimeSubmissions returns the submissions that beat the deadline,
// with student identities. Admin only.
func (svc *Service) OnTimeSubmissions(assignmentID string) ([]GradedSubmission, error) {
	asg, err := svc.repo.GetAssignmentByID(assignmentID)
	if err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubmissionsByAssignment(assignmentID)
	if err != nil {
		return nil, err
	}
	onTime := subs[:0:0]
	for _, sub := range subs {
		if !sub.SubmittedAt.After(asg.DueDate) {
			onTime = append(onTime, sub)
		}
	}
	return svc.decorate(onTime), nil
}

func (svc *Service) decorate(subs []Submission) []GradedSubmission {
	res := make([]GradedSubmission, 0, len(subs))
	for _, sub := range subs {
		gs := GradedSubmission{Submission: sub}
		email, fullName, err := svc.users.GetUserBrief(sub.StudentID)
		if err != nil {
			svc.logger.Error("resolving student identity: "+err.Error(), err)
		} else {
			gs.StudentEmail = email
			gs.StudentFullName = fullName
		}
		res = append(res, gs)
	}
	return res
}
