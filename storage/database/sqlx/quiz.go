package sqlxrepos

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/quiz"
)

type quizRepository struct {
	db DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db DB) *quizRepository {
	return &quizRepository{db: db}
}

type quizRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   null.Time `db:"created_at"`
}

func (r quizRow) toDomain() quiz.Quiz {
	return quiz.Quiz{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.Time,
	}
}

func (repo quizRepository) CreateQuiz(qz quiz.Quiz) (quiz.Quiz, error) {
	row := quizRow{
		ID:          qz.ID,
		CourseID:    qz.CourseID,
		Title:       qz.Title,
		Description: qz.Description,
		CreatedAt:   null.TimeFrom(qz.CreatedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO quiz (id, course_id, title, description, created_at)
		VALUES (:id, :course_id, :title, :description, :created_at)`,
		row,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "inserting quiz")
	}
	return row.toDomain(), nil
}

func (repo quizRepository) GetQuizByID(id string) (quiz.Quiz, error) {
	var row quizRow
	err := repo.db.Get(&row, `SELECT id, course_id, title, description, created_at FROM quiz WHERE id = $1`, id)
	if err != nil {
		return quiz.Quiz{}, trapNoRows(err, quiz.ErrNotFound, "getting quiz by id")
	}
	return row.toDomain(), nil
}

func (repo quizRepository) QueryQuizzesByCourse(courseID string) ([]quiz.Quiz, error) {
	var rows []quizRow
	err := repo.db.Select(&rows, `
		SELECT id, course_id, title, description, created_at
		FROM quiz
		WHERE course_id = $1
		ORDER BY created_at`,
		courseID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying quizzes")
	}
	quizzes := make([]quiz.Quiz, 0, len(rows))
	for _, r := range rows {
		quizzes = append(quizzes, r.toDomain())
	}
	return quizzes, nil
}

func (repo quizRepository) UpdateQuiz(qz quiz.Quiz) (quiz.Quiz, error) {
	res, err := repo.db.Exec(`
		UPDATE quiz SET title = $1, description = $2 WHERE id = $3`,
		qz.Title, qz.Description, qz.ID,
	)
	if err != nil {
		return quiz.Quiz{}, errors.Wrap(err, "updating quiz")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	return qz, nil
}

func (repo quizRepository) DeleteQuiz(id string) error {
	_, err := repo.db.Exec(`DELETE FROM quiz WHERE id = $1`, id)
	return errors.Wrap(err, "deleting quiz")
}

func (repo quizRepository) CreateQuestion(q quiz.Question) (quiz.Question, error) {
	_, err := repo.db.Exec(`
		INSERT INTO quiz_question (id, quiz_id, text, is_multiple_choice, position)
		VALUES ($1, $2, $3, $4, $5)`,
		q.ID, q.QuizID, q.Text, q.IsMultipleChoice, q.Position,
	)
	if err != nil {
		return quiz.Question{}, errors.Wrap(err, "inserting quiz question")
	}
	return q, nil
}

func (repo quizRepository) CreateOption(opt quiz.Option) (quiz.Option, error) {
	_, err := repo.db.Exec(`
		INSERT INTO quiz_option (id, question_id, text, is_correct)
		VALUES ($1, $2, $3, $4)`,
		opt.ID, opt.QuestionID, opt.Text, opt.IsCorrect,
	)
	if err != nil {
		return quiz.Option{}, errors.Wrap(err, "inserting quiz option")
	}
	return opt, nil
}

func (repo quizRepository) QueryQuestions(quizID string) ([]quiz.Question, error) {
	type questionRow struct {
		ID               string `db:"id"`
		QuizID           string `db:"quiz_id"`
		Text             string `db:"text"`
		IsMultipleChoice bool   `db:"is_multiple_choice"`
		Position         int    `db:"position"`
	}
	var qrows []questionRow
	err := repo.db.Select(&qrows, `
		SELECT id, quiz_id, text, is_multiple_choice, position
		FROM quiz_question
		WHERE quiz_id = $1
		ORDER BY position`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz questions")
	}

	type optionRow struct {
		ID         string `db:"id"`
		QuestionID string `db:"question_id"`
		Text       string `db:"text"`
		IsCorrect  bool   `db:"is_correct"`
	}
	var orows []optionRow
	err = repo.db.Select(&orows, `
		SELECT o.id, o.question_id, o.text, o.is_correct
		FROM quiz_option o
		JOIN quiz_question q ON q.id = o.question_id
		WHERE q.quiz_id = $1
		ORDER BY o.id`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz options")
	}
	optionsOf := make(map[string][]quiz.Option, len(qrows))
	for _, r := range orows {
		optionsOf[r.QuestionID] = append(optionsOf[r.QuestionID], quiz.Option{
			ID:         r.ID,
			QuestionID: r.QuestionID,
			Text:       r.Text,
			IsCorrect:  r.IsCorrect,
		})
	}

	questions := make([]quiz.Question, 0, len(qrows))
	for _, r := range qrows {
		questions = append(questions, quiz.Question{
			ID:               r.ID,
			QuizID:           r.QuizID,
			Text:             r.Text,
			IsMultipleChoice: r.IsMultipleChoice,
			Position:         r.Position,
			Options:          optionsOf[r.ID],
		})
	}
	return questions, nil
}

func (repo quizRepository) CreateSubmission(sub quiz.Submission) (quiz.Submission, error) {
	_, err := repo.db.Exec(`
		INSERT INTO quiz_submission (id, quiz_id, student_id, submitted_at)
		VALUES ($1, $2, $3, $4)`,
		sub.ID, sub.QuizID, sub.StudentID, sub.SubmittedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err, "quiz_submission_quiz_id_student_id_key") {
			return quiz.Submission{}, quiz.ErrAlreadySubmitted
		}
		return quiz.Submission{}, errors.Wrap(err, "inserting quiz submission")
	}
	return sub, nil
}

type submissionRow struct {
	ID          string    `db:"id"`
	QuizID      string    `db:"quiz_id"`
	StudentID   string    `db:"student_id"`
	SubmittedAt null.Time `db:"submitted_at"`
}

func (r submissionRow) toDomain() quiz.Submission {
	return quiz.Submission{
		ID:          r.ID,
		QuizID:      r.QuizID,
		StudentID:   r.StudentID,
		SubmittedAt: r.SubmittedAt.Time,
	}
}

func (repo quizRepository) GetSubmissionByID(id string) (quiz.Submission, error) {
	var row submissionRow
	err := repo.db.Get(&row, `SELECT id, quiz_id, student_id, submitted_at FROM quiz_submission WHERE id = $1`, id)
	if err != nil {
		return quiz.Submission{}, trapNoRows(err, quiz.ErrSubmissionNotFound, "getting quiz submission")
	}
	return row.toDomain(), nil
}

func (repo quizRepository) GetSubmissionByStudent(quizID, studentID string) (quiz.Submission, error) {
	var row submissionRow
	err := repo.db.Get(&row, `
		SELECT id, quiz_id, student_id, submitted_at
		FROM quiz_submission
		WHERE quiz_id = $1 AND student_id = $2`,
		quizID, studentID,
	)
	if err != nil {
		return quiz.Submission{}, trapNoRows(err, quiz.ErrSubmissionNotFound, "getting quiz submission")
	}
	return row.toDomain(), nil
}

func (repo quizRepository) QuerySubmissionsByQuiz(quizID string) ([]quiz.Submission, error) {
	var rows []submissionRow
	err := repo.db.Select(&rows, `
		SELECT id, quiz_id, student_id, submitted_at
		FROM quiz_submission
		WHERE quiz_id = $1
		ORDER BY submitted_at`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz submissions")
	}
	subs := make([]quiz.Submission, 0, len(rows))
	for _, r := range rows {
		subs = append(subs, r.toDomain())
	}
	return subs, nil
}

func (repo quizRepository) CreateAnswers(answers []quiz.Answer) error {
	if len(answers) == 0 {
		return nil
	}
	tx, err := repo.db.Beginx()
	if err != nil {
		return errors.Wrap(err, "inserting quiz answers")
	}
	defer func() { _ = tx.Rollback() }()

	for _, ans := range answers {
		if _, err = tx.Exec(`
			INSERT INTO quiz_answer (id, submission_id, question_id, selected_option_id)
			VALUES ($1, $2, $3, $4)`,
			ans.ID, ans.SubmissionID, ans.QuestionID, null.StringFromPtr(ans.SelectedOptionID),
		); err != nil {
			return errors.Wrap(err, "inserting quiz answers")
		}
	}
	return errors.Wrap(tx.Commit(), "inserting quiz answers")
}

func (repo quizRepository) QueryAnswersBySubmission(submissionID string) ([]quiz.Answer, error) {
	type answerRow struct {
		ID               string      `db:"id"`
		SubmissionID     string      `db:"submission_id"`
		QuestionID       string      `db:"question_id"`
		SelectedOptionID null.String `db:"selected_option_id"`
	}
	var rows []answerRow
	err := repo.db.Select(&rows, `
		SELECT id, submission_id, question_id, selected_option_id
		FROM quiz_answer
		WHERE submission_id = $1`,
		submissionID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz answers")
	}
	answers := make([]quiz.Answer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, quiz.Answer{
			ID:               r.ID,
			SubmissionID:     r.SubmissionID,
			QuestionID:       r.QuestionID,
			SelectedOptionID: r.SelectedOptionID.Ptr(),
		})
	}
	return answers, nil
}

func (repo quizRepository) CreateAuditEntry(entry quiz.AuditEntry) (quiz.AuditEntry, error) {
	_, err := repo.db.Exec(`
		INSERT INTO quiz_audit (id, student_id, quiz_id, action, details, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.StudentID, entry.QuizID, entry.Action, entry.Details, entry.Timestamp.UTC(),
	)
	if err != nil {
		return quiz.AuditEntry{}, errors.Wrap(err, "inserting quiz audit entry")
	}
	return entry, nil
}

func (repo quizRepository) QueryAuditByQuiz(quizID string) ([]quiz.AuditEntry, error) {
	type auditRow struct {
		ID        string    `db:"id"`
		StudentID string    `db:"student_id"`
		QuizID    string    `db:"quiz_id"`
		Action    string    `db:"action"`
		Details   string    `db:"details"`
		Timestamp null.Time `db:"timestamp"`
	}
	var rows []auditRow
	err := repo.db.Select(&rows, `
		SELECT id, student_id, quiz_id, action, details, timestamp
		FROM quiz_audit
		WHERE quiz_id = $1
		ORDER BY timestamp`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying quiz audit entries")
	}
	entries := make([]quiz.AuditEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, quiz.AuditEntry{
			ID:        r.ID,
			StudentID: r.StudentID,
			QuizID:    r.QuizID,
			Action:    r.Action,
			Details:   r.Details,
			Timestamp: r.Timestamp.Time,
		})
	}
	return entries, nil
}
