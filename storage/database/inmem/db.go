// Package inmemdb provides in-memory repository implementations used by
// tests and local development without Postgres. Behavior mirrors the
// sqlx repositories, unique constraints included.
package inmemdb

import (
	"sync"

	"github.com/edutech/backend/core/assignment"
	"github.com/edutech/backend/core/certificate"
	"github.com/edutech/backend/core/course"
	"github.com/edutech/backend/core/enroll"
	"github.com/edutech/backend/core/notification"
	"github.com/edutech/backend/core/quiz"
	"github.com/edutech/backend/core/user"
)

type DB struct {
	mu sync.RWMutex

	users          map[string]*user.User
	oauthAccounts  map[string]*user.OAuthAccount
	passwordResets map[string]*user.PasswordReset

	courses        map[string]*course.Course
	videos         map[string]*course.Video
	videoProgress  map[string]*course.VideoProgress  // userID+"/"+videoID
	courseProgress map[string]*course.CourseProgress // userID+"/"+courseID
	feedback       map[string]*course.Feedback

	enrollments  map[string]*enroll.Enrollment
	proofs       map[string]*enroll.PaymentProof
	bankAccounts map[string]*enroll.BankAccount

	quizzes         map[string]*quiz.Quiz
	questions       map[string]*quiz.Question
	quizSubmissions map[string]*quiz.Submission
	quizAnswers     map[string]*quiz.Answer
	quizAudit       []quiz.AuditEntry

	assignments           map[string]*assignment.Assignment
	assignmentSubmissions map[string]*assignment.Submission

	notifications []notification.Notification
	certificates  map[string]*certificate.Certificate // userID+"/"+courseID
}

func Open() *DB {
	return &DB{
		users:          make(map[string]*user.User),
		oauthAccounts:  make(map[string]*user.OAuthAccount),
		passwordResets: make(map[string]*user.PasswordReset),

		courses:        make(map[string]*course.Course),
		videos:         make(map[string]*course.Video),
		videoProgress:  make(map[string]*course.VideoProgress),
		courseProgress: make(map[string]*course.CourseProgress),
		feedback:       make(map[string]*course.Feedback),

		enrollments:  make(map[string]*enroll.Enrollment),
		proofs:       make(map[string]*enroll.PaymentProof),
		bankAccounts: make(map[string]*enroll.BankAccount),

		quizzes:         make(map[string]*quiz.Quiz),
		questions:       make(map[string]*quiz.Question),
		quizSubmissions: make(map[string]*quiz.Submission),
		quizAnswers:     make(map[string]*quiz.Answer),

		assignments:           make(map[string]*assignment.Assignment),
		assignmentSubmissions: make(map[string]*assignment.Submission),

		certificates: make(map[string]*certificate.Certificate),
	}
}

// AddBankAccount seeds a bank account. Test and bootstrap helper.
func (db *DB) AddBankAccount(acc enroll.BankAccount) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.bankAccounts[acc.ID] = &acc
}
