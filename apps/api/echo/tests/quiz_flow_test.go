package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutech/backend/core/quiz"
)

func seedQuiz(t *testing.T, env *env, courseID string) quiz.Quiz {
	t.Helper()
	qz, err := env.quizSvc.Create(courseID, quiz.NewQuiz{
		Title: "Basics Check",
		Questions: []quiz.NewQuestion{
			{Text: "What does go build do?", Options: []quiz.NewOption{
				{Text: "Compiles the package", IsCorrect: true},
				{Text: "Formats the code"},
			}},
			{Text: "What is a goroutine?", Options: []quiz.NewOption{
				{Text: "A lightweight thread", IsCorrect: true},
				{Text: "A package manager"},
			}},
		},
	})
	if err != nil {
		t.Fatalf("creating quiz: %v", err)
	}
	return qz
}

// answersFor picks, per question, the option whose text matches pick.
func answersFor(detail quiz.QuizDetail, pick func(q quiz.QuestionView) string) []quiz.AnswerInput {
	answers := make([]quiz.AnswerInput, 0, len(detail.Questions))
	for _, q := range detail.Questions {
		want := pick(q)
		for _, opt := range q.Options {
			if opt.Text == want {
				optID := opt.ID
				answers = append(answers, quiz.AnswerInput{QuestionID: q.ID, SelectedOptionID: &optID})
			}
		}
	}
	return answers
}

func TestAPI_QuizFlow(t *testing.T) {
	env := setup(t)
	admin := env.admin(t)
	student := env.student(t, "ada@edutech.test")
	crs := env.course(t, admin.ID, "Go From Scratch")
	qz := seedQuiz(t, env, crs.ID)

	token := getToken(t, student)
	base := "/v1/courses/" + crs.ID + "/quizzes"

	t.Run("gated before enrollment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base, token)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	env.enroll(t, student.ID, crs.ID, 1)

	var detail quiz.QuizDetail
	t.Run("detail strips correctness", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base+"/"+qz.ID, token)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "is_correct")
		decodeBody(t, rec, &detail)
		require.Len(t, detail.Questions, 2)
		require.Len(t, detail.Questions[0].Options, 2)
	})

	var submissionID string
	t.Run("submit grades immediately", func(t *testing.T) {
		answers := answersFor(detail, func(q quiz.QuestionView) string {
			if q.Text == "What does go build do?" {
				return "Compiles the package"
			}
			return "A package manager" // wrong on purpose
		})
		body := marchallObj(t, quiz.SubmitQuiz{Answers: answers})
		req, rec := newAuthRequest(http.MethodPost, base+"/"+qz.ID+"/submissions", token, body)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var res quiz.Result
		decodeBody(t, rec, &res)
		assert.Equal(t, 1, res.Score)
		assert.Equal(t, 2, res.Total)
		submissionID = res.SubmissionID
	})

	t.Run("second attempt is rejected", func(t *testing.T) {
		answers := answersFor(detail, func(q quiz.QuestionView) string { return q.Options[0].Text })
		body := marchallObj(t, quiz.SubmitQuiz{Answers: answers})
		req, rec := newAuthRequest(http.MethodPost, base+"/"+qz.ID+"/submissions", token, body)
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("result is stable", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, base+"/"+qz.ID+"/results/"+submissionID, token)
		env.app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res quiz.Result
		decodeBody(t, rec, &res)
		assert.Equal(t, 1, res.Score)
	})

	t.Run("another student cannot read the result", func(t *testing.T) {
		other := env.student(t, "bob@edutech.test")
		env.enroll(t, other.ID, crs.ID, 1)

		req, rec := newAuthRequest(http.MethodGet, base+"/"+qz.ID+"/results/"+submissionID, getToken(t, other))
		env.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("admin sees submissions and audit", func(t *testing.T) {
		adminToken := getToken(t, admin)

		req, rec := newAuthRequest(http.MethodGet, "/v1/admin/quizzes/"+qz.ID+"/submissions", adminToken)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var results []quiz.Result
		decodeBody(t, rec, &results)
		require.Len(t, results, 1)
		assert.Equal(t, student.ID, results[0].StudentID)

		req, rec = newAuthRequest(http.MethodGet, "/v1/admin/quizzes/"+qz.ID+"/audit", adminToken)
		env.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var entries []quiz.AuditEntry
		decodeBody(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, "quiz_submitted", entries[0].Action)
	})
}
