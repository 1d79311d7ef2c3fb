package inmemdb

import (
	"sort"

	"github.com/edutech/backend/core/assignment"
)

type assignmentRepository struct {
	db *DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) *assignmentRepository {
	return &assignmentRepository{db: db}
}

func (repo *assignmentRepository) CreateAssignment(asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) GetAssignmentByID(id string) (assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if asg, ok := repo.db.assignments[id]; ok {
		return *asg, nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) QueryAssignmentsByCourse(courseID string) ([]assignment.Assignment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	asgs := make([]assignment.Assignment, 0)
	for _, asg := range repo.db.assignments {
		if asg.CourseID == courseID {
			asgs = append(asgs, *asg)
		}
	}
	sort.Slice(asgs, func(i, j int) bool { return asgs[i].DueDate.Before(asgs[j].DueDate) })
	return asgs, nil
}

func (repo *assignmentRepository) UpdateAssignment(asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assignments[asg.ID]; !ok {
		return assignment.Assignment{}, assignment.ErrNotFound
	}
	repo.db.assignments[asg.ID] = &asg
	return asg, nil
}

func (repo *assignmentRepository) DeleteAssignment(id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return assignment.ErrNotFound
	}
	delete(repo.db.assignments, id)
	return nil
}

func (repo *assignmentRepository) CreateSubmission(sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.assignmentSubmissions {
		if existing.AssignmentID == sub.AssignmentID && existing.StudentID == sub.StudentID {
			return assignment.Submission{}, assignment.ErrAlreadySubmitted
		}
	}
	repo.db.assignmentSubmissions[sub.ID] = &sub
	return sub, nil
}

func (repo *assignmentRepository) GetSubmissionByID(id string) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if sub, ok := repo.db.assignmentSubmissions[id]; ok {
		return *sub, nil
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) GetSubmissionByStudent(assignmentID, studentID string) (assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, sub := range repo.db.assignmentSubmissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return *sub, nil
		}
	}
	return assignment.Submission{}, assignment.ErrSubmissionNotFound
}

func (repo *assignmentRepository) QuerySubmissionsByAssignment(assignmentID string) ([]assignment.Submission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subs := make([]assignment.Submission, 0)
	for _, sub := range repo.db.assignmentSubmissions {
		if sub.AssignmentID == assignmentID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].SubmittedAt.Before(subs[j].SubmittedAt) })
	return subs, nil
}

func (repo *assignmentRepository) UpdateSubmission(sub assignment.Submission) (assignment.Submission, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.assignmentSubmissions[sub.ID]; !ok {
		return assignment.Submission{}, assignment.ErrSubmissionNotFound
	}
	repo.db.assignmentSubmissions[sub.ID] = &sub
	return sub, nil
}
