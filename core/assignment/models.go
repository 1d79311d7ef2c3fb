package assignment

import (
	"time"

	"github.com/edutech/backend/core"
)

type Assignment struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date"`
	CreatedAt   time.Time `json:"created_at"`
}

type Submission struct {
	ID           string     `json:"id"`
	AssignmentID string     `json:"assignment_id"`
	StudentID    string     `json:"student_id"`
	ContentURL   string     `json:"content_url"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	Grade        *float64   `json:"grade,omitempty"`
	Feedback     string     `json:"feedback,omitempty"`
	GradedAt     *time.Time `json:"graded_at,omitempty"`
}

func (s Submission) IsGraded() bool { return s.Grade != nil }

// AssignmentDetail is the student-facing page: the assignment plus the
// student's own submission when one exists.
type AssignmentDetail struct {
	Assignment
	MySubmission *Submission `json:"my_submission,omitempty"`
}

// GradedSubmission decorates a submission with the student's identity
// for the admin views.
type GradedSubmission struct {
	Submission
	StudentEmail    string `json:"student_email"`
	StudentFullName string `json:"student_full_name"`
}

// NewAssignment is the admin payload for creating an assignment.
type NewAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (na *NewAssignment) Validate() error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	return core.Validate.Struct(na)
}

// UpdateAssignment edits an assignment in place, deadline included.
type UpdateAssignment struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (ua *UpdateAssignment) Validate() error {
	ua.Title = core.CleanString(ua.Title)
	ua.Description = core.CleanString(ua.Description)
	return core.Validate.Struct(ua)
}

// GradeSubmission is the admin grading payload. The grade scale is the
// admin's own; no bounds are enforced.
type GradeSubmission struct {
	Grade    float64 `json:"grade"`
	Feedback string  `json:"feedback"`
}

func (gs *GradeSubmission) Validate() error {
	gs.Feedback = core.CleanString(gs.Feedback)
	return core.Validate.Struct(gs)
}
