package sqlxrepos

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/assignment"
)

type assignmentRepository struct {
	db DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	DueDate     null.Time `db:"due_date"`
	CreatedAt   null.Time `db:"created_at"`
}

func (r assignmentRow) toDomain() assignment.Assignment {
	return assignment.Assignment{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Time,
		CreatedAt:   r.CreatedAt.Time,
	}
}

const assignmentColumns = `id, course_id, title, description, due_date, created_at`

func (repo assignmentRepository) CreateAssignment(asg assignment.Assignment) (assignment.Assignment, error) {
	row := assignmentRow{
		ID:          asg.ID,
		CourseID:    asg.CourseID,
		Title:       asg.Title,
		Description: asg.Description,
		DueDate:     null.TimeFrom(asg.DueDate.UTC()),
		CreatedAt:   null.TimeFrom(asg.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO assignment (`+assignmentColumns+`)
		VALUES (:id, :course_id, :title, :description, :due_date, :created_at)`,
		row,
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return row.toDomain(), nil
}

func (repo assignmentRepository) GetAssignmentByID(id string) (assignment.Assignment, error) {
	var row assignmentRow
	if err := repo.db.Get(&row, `SELECT `+assignmentColumns+` FROM assignment WHERE id = $1`, id); err != nil {
		return assignment.Assignment{}, trapNoRows(err, assignment.ErrNotFound, "getting assignment by id")
	}
	return row.toDomain(), nil
}

func (repo assignmentRepository) QueryAssignmentsByCourse(courseID string) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.Select(&rows, `
		SELECT `+assignmentColumns+`
		FROM assignment
		WHERE course_id = $1
		ORDER BY due_date`,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, r := range rows {
		asgs = append(asgs, r.toDomain())
	}
	return asgs, nil
}

func (repo assignmentRepository) UpdateAssignment(asg assignment.Assignment) (assignment.Assignment, error) {
	res, err := repo.db.Exec(`
		UPDATE assignment SET title = $1, description = $2, due_date = $3 WHERE id = $4`,
		asg.Title, asg.Description, asg.DueDate.UTC(), asg.ID,
	)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	return asg, nil
}

func (repo assignmentRepository) DeleteAssignment(id string) error {
	_, err := repo.db.Exec(`DELETE FROM assignment WHERE id = $1`, id)
	return errors.Wrap(err, "deleting assignment")
}

type assignmentSubmissionRow struct {
	ID           string       `db:"id"`
	AssignmentID string       `db:"assignment_id"`
	StudentID    string       `db:"student_id"`
	ContentURL   string       `db:"content_url"`
	SubmittedAt  null.Time    `db:"submitted_at"`
	Grade        null.Float64 `db:"grade"`
	Feedback     string       `db:"feedback"`
	GradedAt     null.Time    `db:"graded_at"`
}

func (r assignmentSubmissionRow) toDomain() assignment.Submission {
	sub := assignment.Submission{
		ID:           r.ID,
		AssignmentID: r.AssignmentID,
		StudentID:    r.StudentID,
		ContentURL:   r.ContentURL,
		SubmittedAt:  r.SubmittedAt.Time,
		Feedback:     r.Feedback,
	}
	if r.Grade.Valid {
		g := r.Grade.Float64
		sub.Grade = &g
	}
	if r.GradedAt.Valid {
		t := r.GradedAt.Time
		sub.GradedAt = &t
	}
	return sub
}

func toAssignmentSubmissionRow(sub assignment.Submission) assignmentSubmissionRow {
	row := assignmentSubmissionRow{
		ID:           sub.ID,
		AssignmentID: sub.AssignmentID,
		StudentID:    sub.StudentID,
		ContentURL:   sub.ContentURL,
		SubmittedAt:  null.TimeFrom(sub.SubmittedAt.UTC()),
		Feedback:     sub.Feedback,
	}
	if sub.Grade != nil {
		row.Grade = null.Float64From(*sub.Grade)
	}
	if sub.GradedAt != nil {
		row.GradedAt = null.TimeFrom(sub.GradedAt.UTC())
	}
	return row
}

const assignmentSubmissionColumns = `id, assignment_id, student_id, content_url, submitted_at, grade, feedback, graded_at`

func (repo assignmentRepository) CreateSubmission(sub assignment.Submission) (assignment.Submission, error) {
	row := toAssignmentSubmissionRow(sub)
	_, err := repo.db.NamedExec(`
		INSERT INTO assignment_submission (`+assignmentSubmissionColumns+`)
		VALUES (:id, :assignment_id, :student_id, :content_url, :submitted_at, :grade, :feedback, :graded_at)`,
		row,
	)
	if err != nil {
		if isUniqueViolation(err, "assignment_submission_assignment_id_student_id_key") {
			return assignment.Submission{}, assignment.ErrAlreadySubmitted
		}
		return assignment.Submission{}, errors.Wrap(err, "inserting assignment submission")
	}
	return row.toDomain(), nil
}

func (repo assignmentRepository) GetSubmissionByID(id string) (assignment.Submission, error) {
	var row assignmentSubmissionRow
	err := repo.db.Get(&row, `SELECT `+assignmentSubmissionColumns+` FROM assignment_submission WHERE id = $1`, id)
	if err != nil {
		return assignment.Submission{}, trapNoRows(err, assignment.ErrSubmissionNotFound, "getting assignment submission")
	}
	return row.toDomain(), nil
}

func (repo assignmentRepository) GetSubmissionByStudent(assignmentID, studentID string) (assignment.Submission, error) {
	var row assignmentSubmissionRow
	err := repo.db.Get(&row, `
		SELECT `+assignmentSubmissionColumns+`
		FROM assignment_submission
		WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, studentID,
	)
	if err != nil {
		return assignment.Submission{}, trapNoRows(err, assignment.ErrSubmissionNotFound, "getting assignment submission")
	}
	return row.toDomain(), nil
}

func (repo assignmentRepository) QuerySubmissionsByAssignment(assignmentID string) ([]assignment.Submission, error) {
	var rows []assignmentSubmissionRow
	err := repo.db.Select(&rows, `
		SELECT `+assignmentSubmissionColumns+`
		FROM assignment_submission
		WHERE assignment_id = $1
		ORDER BY submitted_at`,
		assignmentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying assignment submissions")
	}
	subs := make([]assignment.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toDomain())
	}
	return subs, nil
}

func (repo assignmentRepository) UpdateSubmission(sub assignment.Submission) (assignment.Submission, error) {
	row := toAssignmentSubmissionRow(sub)
	res, err := repo.db.NamedExec(`
		UPDATE assignment_submission
		SET content_url = :content_url, grade = :grade, feedback = :feedback, graded_at = :graded_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return assignment.Submission{}, errors.Wrap(err, "updating assignment submission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	return row.toDomain(), nil
}
