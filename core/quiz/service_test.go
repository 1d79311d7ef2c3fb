package quiz

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core"
)

type fakeRepo struct {
	quizzes     map[string]Quiz
	questions   map[string]Question
	submissions map[string]Submission
	answers     []Answer
	audit       []AuditEntry
}

var _ Repository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		quizzes:     make(map[string]Quiz),
		questions:   make(map[string]Question),
		submissions: make(map[string]Submission),
	}
}

func (r *fakeRepo) CreateQuiz(qz Quiz) (Quiz, error) {
	r.quizzes[qz.ID] = qz
	return qz, nil
}

func (r *fakeRepo) GetQuizByID(id string) (Quiz, error) {
	if qz, ok := r.quizzes[id]; ok {
		return qz, nil
	}
	return Quiz{}, ErrNotFound
}

func (r *fakeRepo) QueryQuizzesByCourse(courseID string) ([]Quiz, error) {
	var res []Quiz
	for _, qz := range r.quizzes {
		if qz.CourseID == courseID {
			res = append(res, qz)
		}
	}
	return res, nil
}

func (r *fakeRepo) UpdateQuiz(qz Quiz) (Quiz, error) {
	if _, ok := r.quizzes[qz.ID]; !ok {
		return Quiz{}, ErrNotFound
	}
	r.quizzes[qz.ID] = qz
	return qz, nil
}

func (r *fakeRepo) DeleteQuiz(id string) error {
	delete(r.quizzes, id)
	return nil
}

func (r *fakeRepo) CreateQuestion(q Question) (Question, error) {
	r.questions[q.ID] = q
	return q, nil
}

func (r *fakeRepo) CreateOption(opt Option) (Option, error) {
	for id, q := range r.questions {
		if id == opt.QuestionID {
			q.Options = append(q.Options, opt)
			r.questions[id] = q
		}
	}
	return opt, nil
}

func (r *fakeRepo) QueryQuestions(quizID string) ([]Question, error) {
	var res []Question
	for _, q := range r.questions {
		if q.QuizID == quizID {
			res = append(res, q)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Position < res[j].Position })
	return res, nil
}

func (r *fakeRepo) CreateSubmission(sub Submission) (Submission, error) {
	for _, existing := range r.submissions {
		if existing.QuizID == sub.QuizID && existing.StudentID == sub.StudentID {
			return Submission{}, ErrAlreadySubmitted
		}
	}
	r.submissions[sub.ID] = sub
	return sub, nil
}

func (r *fakeRepo) GetSubmissionByID(id string) (Submission, error) {
	if sub, ok := r.submissions[id]; ok {
		return sub, nil
	}
	return Submission{}, ErrSubmissionNotFound
}

func (r *fakeRepo) GetSubmissionByStudent(quizID, studentID string) (Submission, error) {
	for _, sub := range r.submissions {
		if sub.QuizID == quizID && sub.StudentID == studentID {
			return sub, nil
		}
	}
	return Submission{}, ErrSubmissionNotFound
}

func (r *fakeRepo) QuerySubmissionsByQuiz(quizID string) ([]Submission, error) {
	var res []Submission
	for _, sub := range r.submissions {
		if sub.QuizID == quizID {
			res = append(res, sub)
		}
	}
	return res, nil
}

func (r *fakeRepo) CreateAnswers(answers []Answer) error {
	r.answers = append(r.answers, answers...)
	return nil
}

func (r *fakeRepo) QueryAnswersBySubmission(submissionID string) ([]Answer, error) {
	var res []Answer
	for _, ans := range r.answers {
		if ans.SubmissionID == submissionID {
			res = append(res, ans)
		}
	}
	return res, nil
}

func (r *fakeRepo) CreateAuditEntry(entry AuditEntry) (AuditEntry, error) {
	r.audit = append(r.audit, entry)
	return entry, nil
}

func (r *fakeRepo) QueryAuditByQuiz(quizID string) ([]AuditEntry, error) {
	var res []AuditEntry
	for _, entry := range r.audit {
		if entry.QuizID == quizID {
			res = append(res, entry)
		}
	}
	return res, nil
}

type fakeAccess map[string]bool // studentID+"/"+courseID

func (a fakeAccess) CheckAccess(studentID, courseID string) error {
	if a[studentID+"/"+courseID] {
		return nil
	}
	return core.NewForbiddenError("you are not enrolled in this course")
}

type quizFixture struct {
	svc    *Service
	repo   *fakeRepo
	access fakeAccess
	quiz   Quiz
	// question ID -> (correct option ID, a wrong option ID)
	correctOf map[string]*string
	wrongOf   map[string]*string
	questions []Question
}

func newQuizFixture(t *testing.T) *quizFixture {
	t.Helper()
	repo := newFakeRepo()
	access := fakeAccess{"std1/crs1": true}
	svc := NewService(repo, access, core.NewNopLogger())

	qz, err := svc.Create("crs1", NewQuiz{
		Title: "Basics",
		Questions: []NewQuestion{
			{Text: "Q1", Options: []NewOption{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
			{Text: "Q2", Options: []NewOption{{Text: "wrong"}, {Text: "right", IsCorrect: true}}},
			{Text: "Q3", Options: []NewOption{{Text: "right", IsCorrect: true}, {Text: "wrong"}}},
		},
	})
	require.NoError(t, err)

	questions, err := repo.QueryQuestions(qz.ID)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	f := &quizFixture{
		svc: svc, repo: repo, access: access, quiz: qz,
		correctOf: make(map[string]*string), wrongOf: make(map[string]*string),
		questions: questions,
	}
	for _, q := range questions {
		for _, opt := range q.Options {
			id := opt.ID
			if opt.IsCorrect {
				f.correctOf[q.ID] = &id
			} else {
				f.wrongOf[q.ID] = &id
			}
		}
	}
	return f
}

func TestService_Submit(t *testing.T) {
	f := newQuizFixture(t)
	q := f.questions

	res, err := f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: q[0].ID, SelectedOptionID: f.correctOf[q[0].ID]},
		{QuestionID: q[1].ID, SelectedOptionID: f.wrongOf[q[1].ID]},
		{QuestionID: q[2].ID, SelectedOptionID: f.correctOf[q[2].ID]},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.Answers, 3)
	assert.True(t, res.Answers[0].Correct)
	assert.False(t, res.Answers[1].Correct)

	require.Len(t, f.repo.audit, 1)
	assert.Equal(t, "quiz_submitted", f.repo.audit[0].Action)

	// the attempt is spent
	_, err = f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: q[0].ID, SelectedOptionID: f.correctOf[q[0].ID]},
	}})
	require.True(t, core.IsForbidden(err))
	assert.EqualError(t, err, "you have already submitted this quiz")
}

func TestService_Submit_Gates(t *testing.T) {
	f := newQuizFixture(t)
	q := f.questions
	answers := SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: q[0].ID, SelectedOptionID: f.correctOf[q[0].ID]},
	}}

	// not enrolled
	_, err := f.svc.Submit("std2", "crs1", f.quiz.ID, answers)
	assert.True(t, core.IsForbidden(err))

	// quiz not in this course
	f.access["std1/crs2"] = true
	_, err = f.svc.Submit("std1", "crs2", f.quiz.ID, answers)
	assert.Equal(t, ErrNotFound, err)

	// unknown quiz
	_, err = f.svc.Submit("std1", "crs1", "nope", answers)
	assert.Equal(t, ErrNotFound, err)

	// none of the rejections spent the attempt
	assert.Empty(t, f.repo.submissions)
}

func TestService_Submit_SkippedQuestion(t *testing.T) {
	f := newQuizFixture(t)
	q := f.questions

	// a null selected option is a valid answer that grades as incorrect
	res, err := f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: q[0].ID, SelectedOptionID: f.correctOf[q[0].ID]},
		{QuestionID: q[1].ID},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Score)
	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Answers, 2)
	assert.False(t, res.Answers[1].Correct)
	assert.Nil(t, res.Answers[1].SelectedOptionID)

	// the skip survives re-derivation
	got, err := f.svc.Result("std1", "crs1", f.quiz.ID, res.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Score)
	assert.Equal(t, 2, got.Total)
	assert.Nil(t, got.Answers[1].SelectedOptionID)
}

func TestService_Submit_Empty(t *testing.T) {
	f := newQuizFixture(t)

	// an empty submission is accepted, grades to 0/0 and spends the attempt
	res, err := f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.Total)
	assert.Empty(t, res.Answers)
	require.Len(t, f.repo.submissions, 1)

	_, err = f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: f.questions[0].ID, SelectedOptionID: f.correctOf[f.questions[0].ID]},
	}})
	require.True(t, core.IsForbidden(err))
}

func TestService_Submit_InvalidAnswerSpendsAttempt(t *testing.T) {
	tests := []struct {
		name   string
		answer func(f *quizFixture) AnswerInput
	}{
		{"foreign question", func(f *quizFixture) AnswerInput {
			return AnswerInput{QuestionID: "nope", SelectedOptionID: f.correctOf[f.questions[0].ID]}
		}},
		{"option from another question", func(f *quizFixture) AnswerInput {
			return AnswerInput{QuestionID: f.questions[0].ID, SelectedOptionID: f.correctOf[f.questions[1].ID]}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQuizFixture(t)
			_, err := f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{tt.answer(f)}})
			var verr *core.ValidationError
			require.ErrorAs(t, err, &verr)

			// the empty submission stays; the attempt is spent
			sub, err2 := f.repo.GetSubmissionByStudent(f.quiz.ID, "std1")
			require.NoError(t, err2)
			answers, err2 := f.repo.QueryAnswersBySubmission(sub.ID)
			require.NoError(t, err2)
			assert.Empty(t, answers)

			_, err = f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
				{QuestionID: f.questions[0].ID, SelectedOptionID: f.correctOf[f.questions[0].ID]},
			}})
			assert.True(t, core.IsForbidden(err))
		})
	}
}

func TestService_Result(t *testing.T) {
	f := newQuizFixture(t)
	q := f.questions

	res, err := f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: q[0].ID, SelectedOptionID: f.correctOf[q[0].ID]},
		{QuestionID: q[1].ID, SelectedOptionID: f.wrongOf[q[1].ID]},
	}})
	require.NoError(t, err)

	// same score every read, derived from the stored answers
	for i := 0; i < 3; i++ {
		got, err := f.svc.Result("std1", "crs1", f.quiz.ID, res.SubmissionID)
		require.NoError(t, err)
		assert.Equal(t, res.Score, got.Score)
		assert.Equal(t, res.Total, got.Total)
		assert.Equal(t, res.Answers, got.Answers)
	}

	// another student cannot read it
	f.access["std2/crs1"] = true
	_, err = f.svc.Result("std2", "crs1", f.quiz.ID, res.SubmissionID)
	assert.True(t, core.IsForbidden(err))

	_, err = f.svc.Result("std1", "crs1", f.quiz.ID, "nope")
	assert.Equal(t, ErrSubmissionNotFound, err)
}

func TestService_Detail_StripsCorrectness(t *testing.T) {
	f := newQuizFixture(t)

	detail, err := f.svc.Detail("std1", "crs1", f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, detail.Questions, 3)
	for _, q := range detail.Questions {
		assert.Len(t, q.Options, 2)
	}

	_, err = f.svc.Detail("std2", "crs1", f.quiz.ID)
	assert.True(t, core.IsForbidden(err))
}

func TestService_AdminSubmissions(t *testing.T) {
	f := newQuizFixture(t)
	q := f.questions

	_, err := f.svc.Submit("std1", "crs1", f.quiz.ID, SubmitQuiz{Answers: []AnswerInput{
		{QuestionID: q[0].ID, SelectedOptionID: f.correctOf[q[0].ID]},
	}})
	require.NoError(t, err)

	subs, err := f.svc.Submissions(f.quiz.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 1, subs[0].Score)
	assert.Equal(t, "std1", subs[0].StudentID)
	assert.WithinDuration(t, time.Now().UTC(), subs[0].SubmittedAt, time.Minute)
}

func TestService_UpdateDelete(t *testing.T) {
	f := newQuizFixture(t)

	qz, err := f.svc.Update(f.quiz.ID, UpdateQuiz{Title: "Basics v2", Description: "refreshed"})
	require.NoError(t, err)
	assert.Equal(t, "Basics v2", qz.Title)

	require.NoError(t, f.svc.Delete(f.quiz.ID))
	assert.Equal(t, ErrNotFound, f.svc.Delete(f.quiz.ID))
}
