package quiz

import (
	"time"

	"github.com/edutech/backend/core"
)

type Quiz struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Question struct {
	ID               string   `json:"id"`
	QuizID           string   `json:"quiz_id"`
	Text             string   `json:"text"`
	IsMultipleChoice bool     `json:"is_multiple_choice"`
	Position         int      `json:"position"`
	Options          []Option `json:"options,omitempty"`
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
}

type Submission struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quiz_id"`
	StudentID   string    `json:"student_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Answer struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	QuestionID   string `json:"question_id"`
	// nil when the student skipped the question
	SelectedOptionID *string `json:"selected_option_id"`
}

// AuditEntry records who submitted what and when, independent of the
// answer rows.
type AuditEntry struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	QuizID    string    `json:"quiz_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OptionView is an option as shown to students: correctness stripped.
type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type QuestionView struct {
	ID               string       `json:"id"`
	Text             string       `json:"text"`
	IsMultipleChoice bool         `json:"is_multiple_choice"`
	Options          []OptionView `json:"options"`
}

// QuizDetail is the student-facing quiz page.
type QuizDetail struct {
	Quiz
	Questions []QuestionView `json:"questions"`
}

// AnswerResult pairs an answer with its verdict.
type AnswerResult struct {
	QuestionID       string  `json:"question_id"`
	SelectedOptionID *string `json:"selected_option_id"`
	Correct          bool    `json:"correct"`
}

// Result is the graded outcome of a submission. Score and Total are
// re-derived from the stored answers on every read.
type Result struct {
	SubmissionID string         `json:"submission_id"`
	QuizID       string         `json:"quiz_id"`
	StudentID    string         `json:"student_id"`
	Score        int            `json:"score"`
	Total        int            `json:"total"`
	SubmittedAt  time.Time      `json:"submitted_at"`
	Answers      []AnswerResult `json:"answers"`
}

// AnswerInput is one answer in a submission payload. A null selected
// option is a valid answer: the question was skipped and counts as
// incorrect.
type AnswerInput struct {
	QuestionID       string  `json:"question_id" validate:"required"`
	SelectedOptionID *string `json:"selected_option_id"`
}

// SubmitQuiz is the student submission payload. An empty answer list is
// accepted and grades to 0/0.
type SubmitQuiz struct {
	Answers []AnswerInput `json:"answers" validate:"dive"`
}

func (sq *SubmitQuiz) Validate() error {
	return core.Validate.Struct(sq)
}

// NewOption is a nested option on quiz creation.
type NewOption struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// NewQuestion is a nested question on quiz creation.
type NewQuestion struct {
	Text             string      `json:"text" validate:"required"`
	IsMultipleChoice bool        `json:"is_multiple_choice"`
	Options          []NewOption `json:"options" validate:"required,min=2,dive"`
}

// NewQuiz is the admin payload for creating a quiz with its questions.
type NewQuiz struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	Questions   []NewQuestion `json:"questions" validate:"dive"`
}

func (nq *NewQuiz) Validate() error {
	nq.Title = core.CleanString(nq.Title)
	nq.Description = core.CleanString(nq.Description)
	return core.Validate.Struct(nq)
}

// UpdateQuiz edits title and description only; questions are immutable
// once students may have submitted against them.
type UpdateQuiz struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

func (uq *UpdateQuiz) Validate() error {
	uq.Title = core.CleanString(uq.Title)
	uq.Description = core.CleanString(uq.Description)
	return core.Validate.Struct(uq)
}
