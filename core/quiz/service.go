package quiz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/edutech/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("quiz not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAlreadySubmitted is also produced by the sqlx repository when a
	// concurrent insert loses to the unique (quiz_id, student_id) index.
	ErrAlreadySubmitted = errors.New("quiz already submitted")
)

type (
	Repository interface {
		CreateQuiz(qz Quiz) (Quiz, error)
		GetQuizByID(id string) (Quiz, error)
		QueryQuizzesByCourse(courseID string) ([]Quiz, error)
		UpdateQuiz(qz Quiz) (Quiz, error)
		DeleteQuiz(id string) error

		CreateQuestion(q Question) (Question, error)
		CreateOption(opt Option) (Option, error)
		// QueryQuestions returns a quiz's questions with their options
		// populated, in position order.
		QueryQuestions(quizID string) ([]Question, error)

		// CreateSubmission returns ErrAlreadySubmitted when the student
		// already has a row for the quiz.
		CreateSubmission(sub Submission) (Submission, error)
		GetSubmissionByID(id string) (Submission, error)
		GetSubmissionByStudent(quizID, studentID string) (Submission, error)
		QuerySubmissionsByQuiz(quizID string) ([]Submission, error)

		CreateAnswers(answers []Answer) error
		QueryAnswersBySubmission(submissionID string) ([]Answer, error)

		CreateAuditEntry(entry AuditEntry) (AuditEntry, error)
		QueryAuditByQuiz(quizID string) ([]AuditEntry, error)
	}

	// AccessChecker gates quiz reads and submissions on a current,
	// accessible enrollment.
	AccessChecker interface {
		CheckAccess(studentID, courseID string) error
	}

	Service struct {
		repo   Repository
		access AccessChecker
		logger core.Logger
	}
)

func NewService(repo Repository, access AccessChecker, logger core.Logger) *Service {
	return &Service{repo: repo, access: access, logger: logger}
}

// getQuizInCourse treats a quiz reached through the wrong course as
// nonexistent.
func (svc *Service) getQuizInCourse(courseID, quizID string) (Quiz, error) {
	qz, err := svc.repo.GetQuizByID(quizID)
	if err != nil {
		return Quiz{}, err
	}
	if qz.CourseID != courseID {
		return Quiz{}, ErrNotFound
	}
	return qz, nil
}

// ListForCourse returns a course's quizzes for an enrolled student.
func (svc *Service) ListForCourse(studentID, courseID string) ([]Quiz, error) {
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryQuizzesByCourse(courseID)
}

// Detail returns the quiz with its questions, correctness stripped.
func (svc *Service) Detail(studentID, courseID, quizID string) (QuizDetail, error) {
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return QuizDetail{}, err
	}
	qz, err := svc.getQuizInCourse(courseID, quizID)
	if err != nil {
		return QuizDetail{}, err
	}
	questions, err := svc.repo.QueryQuestions(quizID)
	if err != nil {
		return QuizDetail{}, err
	}

	views := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		qv := QuestionView{
			ID:               q.ID,
			Text:             q.Text,
			IsMultipleChoice: q.IsMultipleChoice,
			Options:          make([]OptionView, 0, len(q.Options)),
		}
		for _, opt := range q.Options {
			qv.Options = append(qv.Options, OptionView{ID: opt.ID, Text: opt.Text})
		}
		views = append(views, qv)
	}
	return QuizDetail{Quiz: qz, Questions: views}, nil
}

// Submit grades a student's one and only attempt at a quiz.
//
// The submission row is committed before the answers are validated;
// an invalid answer aborts with the empty submission left in place, so
// the attempt is still spent. Score counts answers whose selected
// option is the correct one; total is the number of answers given.
func (svc *Service) Submit(studentID, courseID, quizID string, sq SubmitQuiz) (Result, error) {
	if _, err := svc.repo.GetSubmissionByStudent(quizID, studentID); err == nil {
		return Result{}, core.NewForbiddenError("you have already submitted this quiz")
	} else if err != ErrSubmissionNotFound {
		return Result{}, err
	}
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return Result{}, err
	}
	if _, err := svc.getQuizInCourse(courseID, quizID); err != nil {
		return Result{}, err
	}
	if err := sq.Validate(); err != nil {
		return Result{}, err
	}

	now := core.NowFunc().UTC()
	sub, err := svc.repo.CreateSubmission(Submission{
		ID:          uuid.New().String(),
		QuizID:      quizID,
		StudentID:   studentID,
		SubmittedAt: now,
	})
	if err == ErrAlreadySubmitted {
		return Result{}, core.NewForbiddenError("you have already submitted this quiz")
	} else if err != nil {
		return Result{}, err
	}
	if _, err = svc.repo.CreateAuditEntry(AuditEntry{
		ID:        uuid.New().String(),
		StudentID: studentID,
		QuizID:    quizID,
		Action:    "quiz_submitted",
		Details:   fmt.Sprintf("%d answer(s)", len(sq.Answers)),
		Timestamp: now,
	}); err != nil {
		svc.logger.Error("recording quiz audit entry: "+err.Error(), err)
	}

	questions, err := svc.repo.QueryQuestions(quizID)
	if err != nil {
		return Result{}, err
	}
	questionSet := make(map[string]bool, len(questions))
	optionOwner := make(map[string]string, len(questions)) // optionID -> questionID
	correct := make(map[string]string, len(questions))     // questionID -> correct optionID
	for _, q := range questions {
		questionSet[q.ID] = true
		for _, opt := range q.Options {
			optionOwner[opt.ID] = q.ID
			if opt.IsCorrect {
				correct[q.ID] = opt.ID
			}
		}
	}

	// validation happens after the durability point: a bad payload spends
	// the attempt and leaves the empty submission behind
	answers := make([]Answer, 0, len(sq.Answers))
	results := make([]AnswerResult, 0, len(sq.Answers))
	score := 0
	for _, in := range sq.Answers {
		if !questionSet[in.QuestionID] {
			return Result{}, core.NewValidationError(nil, core.FieldError{
				Field: "question_id",
				Error: fmt.Sprintf("question %s does not belong to this quiz", in.QuestionID),
			})
		}
		if in.SelectedOptionID != nil && optionOwner[*in.SelectedOptionID] != in.QuestionID {
			return Result{}, core.NewValidationError(nil, core.FieldError{
				Field: "selected_option_id",
				Error: fmt.Sprintf("option %s does not belong to question %s", *in.SelectedOptionID, in.QuestionID),
			})
		}
		isCorrect := in.SelectedOptionID != nil && correct[in.QuestionID] == *in.SelectedOptionID
		if isCorrect {
			score++
		}
		answers = append(answers, Answer{
			ID:               uuid.New().String(),
			SubmissionID:     sub.ID,
			QuestionID:       in.QuestionID,
			SelectedOptionID: in.SelectedOptionID,
		})
		results = append(results, AnswerResult{
			QuestionID:       in.QuestionID,
			SelectedOptionID: in.SelectedOptionID,
			Correct:          isCorrect,
		})
	}
	if err = svc.repo.CreateAnswers(answers); err != nil {
		return Result{}, err
	}

	return Result{
		SubmissionID: sub.ID,
		QuizID:       quizID,
		StudentID:    studentID,
		Score:        score,
		Total:        len(sq.Answers),
		SubmittedAt:  sub.SubmittedAt,
		Answers:      results,
	}, nil
}

// Result re-derives the grade for a past submission from the stored
// answers. Same inputs, same score, no cached state.
func (svc *Service) Result(studentID, courseID, quizID, submissionID string) (Result, error) {
	if err := svc.access.CheckAccess(studentID, courseID); err != nil {
		return Result{}, err
	}
	if _, err := svc.getQuizInCourse(courseID, quizID); err != nil {
		return Result{}, err
	}
	sub, err := svc.repo.GetSubmissionByID(submissionID)
	if err != nil {
		return Result{}, err
	}
	if sub.QuizID != quizID {
		return Result{}, ErrSubmissionNotFound
	}
	if sub.StudentID != studentID {
		return Result{}, core.NewForbiddenError("this submission belongs to another student")
	}
	return svc.deriveResult(sub)
}

func (svc *Service) deriveResult(sub Submission) (Result, error) {
	answers, err := svc.repo.QueryAnswersBySubmission(sub.ID)
	if err != nil {
		return Result{}, err
	}
	questions, err := svc.repo.QueryQuestions(sub.QuizID)
	if err != nil {
		return Result{}, err
	}
	correct := make(map[string]string, len(questions))
	for _, q := range questions {
		for _, opt := range q.Options {
			if opt.IsCorrect {
				correct[q.ID] = opt.ID
			}
		}
	}

	res := Result{
		SubmissionID: sub.ID,
		QuizID:       sub.QuizID,
		StudentID:    sub.StudentID,
		Total:        len(answers),
		SubmittedAt:  sub.SubmittedAt,
		Answers:      make([]AnswerResult, 0, len(answers)),
	}
	for _, ans := range answers {
		isCorrect := ans.SelectedOptionID != nil && correct[ans.QuestionID] == *ans.SelectedOptionID
		if isCorrect {
			res.Score++
		}
		res.Answers = append(res.Answers, AnswerResult{
			QuestionID:       ans.QuestionID,
			SelectedOptionID: ans.SelectedOptionID,
			Correct:          isCorrect,
		})
	}
	return res, nil
}

// Create adds a quiz with its nested questions and options. Admin only.
func (svc *Service) Create(courseID string, nq NewQuiz) (Quiz, error) {
	if err := nq.Validate(); err != nil {
		return Quiz{}, err
	}

	now := core.NowFunc().UTC()
	qz, err := svc.repo.CreateQuiz(Quiz{
		ID:          uuid.New().String(),
		CourseID:    courseID,
		Title:       nq.Title,
		Description: nq.Description,
		CreatedAt:   now,
	})
	if err != nil {
		return Quiz{}, err
	}

	for i, nque := range nq.Questions {
		q, err := svc.repo.CreateQuestion(Question{
			ID:               uuid.New().String(),
			QuizID:           qz.ID,
			Text:             nque.Text,
			IsMultipleChoice: nque.IsMultipleChoice,
			Position:         i,
		})
		if err != nil {
			return Quiz{}, err
		}
		for _, nopt := range nque.Options {
			if _, err = svc.repo.CreateOption(Option{
				ID:         uuid.New().String(),
				QuestionID: q.ID,
				Text:       nopt.Text,
				IsCorrect:  nopt.IsCorrect,
			}); err != nil {
				return Quiz{}, err
			}
		}
	}
	return qz, nil
}

// Update edits a quiz's title and description. Admin only.
func (svc *Service) Update(quizID string, uq UpdateQuiz) (Quiz, error) {
	qz, err := svc.repo.GetQuizByID(quizID)
	if err != nil {
		return Quiz{}, err
	}
	if err = uq.Validate(); err != nil {
		return Quiz{}, err
	}
	qz.Title = uq.Title
	qz.Description = uq.Description
	return svc.repo.UpdateQuiz(qz)
}

// Delete removes a quiz. Admin only.
func (svc *Service) Delete(quizID string) error {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return err
	}
	return svc.repo.DeleteQuiz(quizID)
}

// ListByCourse returns a course's quizzes without an enrollment gate.
// Admin only.
func (svc *Service) ListByCourse(courseID string) ([]Quiz, error) {
	return svc.repo.QueryQuizzesByCourse(courseID)
}

// Submissions returns a quiz's submissions with re-derived results.
// Admin only.
func (svc *Service) Submissions(quizID string) ([]Result, error) {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return nil, err
	}
	subs, err := svc.repo.QuerySubmissionsByQuiz(quizID)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(subs))
	for _, sub := range subs {
		res, err := svc.deriveResult(sub)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// AuditTrail returns a quiz's submission audit entries. Admin only.
func (svc *Service) AuditTrail(quizID string) ([]AuditEntry, error) {
	if _, err := svc.repo.GetQuizByID(quizID); err != nil {
		return nil, err
	}
	return svc.repo.QueryAuditByQuiz(quizID)
}
