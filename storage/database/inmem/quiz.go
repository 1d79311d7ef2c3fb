package inmemdb

import (
	"sort"

	"github.com/edutech/backend/core/quiz"
)

type quizRepository struct {
	db *DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) *quizRepository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateQuiz(qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.quizzes[qz.ID] = &qz
	return qz, nil
}

func (repo *quizRepository) GetQuizByID(id string) (quiz.Quiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if qz, ok := repo.db.quizzes[id]; ok {
		return *qz, nil
	}
	return quiz.Quiz{}, quiz.ErrNotFound
}

func (repo *quizRepository) QueryQuizzesByCourse(courseID string) ([]quiz.Quiz, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	quizzes := make([]quiz.Quiz, 0)
	for _, qz := range repo.db.quizzes {
		if qz.CourseID == courseID {
			quizzes = append(quizzes, *qz)
		}
	}
	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].CreatedAt.Before(quizzes[j].CreatedAt) })
	return quizzes, nil
}

func (repo *quizRepository) UpdateQuiz(qz quiz.Quiz) (quiz.Quiz, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.quizzes[qz.ID]; !ok {
		return quiz.Quiz{}, quiz.ErrNotFound
	}
	repo.db.quizzes[qz.ID] = &qz
	return qz, nil
}

func (repo *quizRepository) DeleteQuiz(id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.quizzes[id]; !ok {
		return quiz.ErrNotFound
	}
	delete(repo.db.quizzes, id)
	for qid, q := range repo.db.questions {
		if q.QuizID == id {
			delete(repo.db.questions, qid)
		}
	}
	return nil
}

func (repo *quizRepository) CreateQuestion(q quiz.Question) (quiz.Question, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored := q
	stored.Options = append([]quiz.Option(nil), q.Options...)
	repo.db.questions[q.ID] = &stored
	return q, nil
}

func (repo *quizRepository) CreateOption(opt quiz.Option) (quiz.Option, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if q, ok := repo.db.questions[opt.QuestionID]; ok {
		q.Options = append(q.Options, opt)
	}
	return opt, nil
}

func (repo *quizRepository) QueryQuestions(quizID string) ([]quiz.Question, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	questions := make([]quiz.Question, 0)
	for _, q := range repo.db.questions {
		if q.QuizID != quizID {
			continue
		}
		cp := *q
		cp.Options = append([]quiz.Option(nil), q.Options...)
		questions = append(questions, cp)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	return questions, nil
}

func (repo *quizRepository) CreateSubmission(sub quiz.Submission) (quiz.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.quizSubmissions {
		if existing.QuizID == sub.QuizID && existing.StudentID == sub.StudentID {
			return quiz.Submission{}, quiz.ErrAlreadySubmitted
		}
	}
	repo.db.quizSubmissions[sub.ID] = &sub
	return sub, nil
}

func (repo *quizRepository) GetSubmissionByID(id string) (quiz.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.quizSubmissions[id]; ok {
		return *sub, nil
	}
	return quiz.Submission{}, quiz.ErrSubmissionNotFound
}

func (repo *quizRepository) GetSubmissionByStudent(quizID, studentID string) (quiz.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.quizSubmissions {
		if sub.QuizID == quizID && sub.StudentID == studentID {
			return *sub, nil
		}
	}
	return quiz.Submission{}, quiz.ErrSubmissionNotFound
}

func (repo *quizRepository) QuerySubmissionsByQuiz(quizID string) ([]quiz.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]quiz.Submission, 0)
	for _, sub := range repo.db.quizSubmissions {
		if sub.QuizID == quizID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *quizRepository) CreateAnswers(answers []quiz.Answer) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, ans := range answers {
		ans := ans
		if ans.SelectedOptionID != nil {
			sel := *ans.SelectedOptionID
			ans.SelectedOptionID = &sel
		}
		repo.db.quizAnswers[ans.ID] = &ans
	}
	return nil
}

func (repo *quizRepository) QueryAnswersBySubmission(submissionID string) ([]quiz.Answer, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	answers := make([]quiz.Answer, 0)
	for _, ans := range repo.db.quizAnswers {
		if ans.SubmissionID == submissionID {
			answers = append(answers, *ans)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers, nil
}

func (repo *quizRepository) CreateAuditEntry(entry quiz.AuditEntry) (quiz.AuditEntry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.quizAudit = append(repo.db.quizAudit, entry)
	return entry, nil
}

func (repo *quizRepository) QueryAuditByQuiz(quizID string) ([]quiz.AuditEntry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]quiz.AuditEntry, 0)
	for _, entry := range repo.db.quizAudit {
		if entry.QuizID == quizID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
