package inmemdb

import (
	"sort"

	"github.com/edutech/backend/core/enroll"
)

type enrollRepository struct {
	db *DB
}

var _ enroll.Repository = (*enrollRepository)(nil) // interface compliance check

func NewEnrollRepository(db *DB) *enrollRepository {
	return &enrollRepository{db: db}
}

// cloneEnrollment copies the audit trail so callers cannot mutate the
// stored slice through the returned value.
func cloneEnrollment(enr enroll.Enrollment) enroll.Enrollment {
	if enr.AuditLog != nil {
		enr.AuditLog = append([]enroll.AuditEvent(nil), enr.AuditLog...)
	}
	return enr
}

func (repo *enrollRepository) GetEnrollment(userID, courseID string) (enroll.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.UserID == userID && enr.CourseID == courseID {
			return cloneEnrollment(*enr), nil
		}
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollRepository) GetEnrollmentByID(id string) (enroll.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return cloneEnrollment(*enr), nil
	}
	return enroll.Enrollment{}, enroll.ErrNotFound
}

func (repo *enrollRepository) CreateEnrollment(enr enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	stored := cloneEnrollment(enr)
	repo.db.enrollments[enr.ID] = &stored
	return enr, nil
}

func (repo *enrollRepository) UpdateEnrollment(enr enroll.Enrollment) (enroll.Enrollment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	stored := cloneEnrollment(enr)
	repo.db.enrollments[enr.ID] = &stored
	return enr, nil
}

func (repo *enrollRepository) QueryEnrollmentsByUser(userID string, status ...string) ([]enroll.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := make([]enroll.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.UserID != userID {
			continue
		}
		if len(status) > 0 {
			matched := false
			for _, st := range status {
				if enr.Status == st {
					matched = true
				}
			}
			if !matched {
				continue
			}
		}
		enrs = append(enrs, cloneEnrollment(*enr))
	}
	sortEnrollments(enrs)
	return enrs, nil
}

func (repo *enrollRepository) QueryEnrollmentsByCourse(courseID string) ([]enroll.Enrollment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	enrs := make([]enroll.Enrollment, 0)
	for _, enr := range repo.db.enrollments {
		if enr.CourseID == courseID {
			enrs = append(enrs, cloneEnrollment(*enr))
		}
	}
	sortEnrollments(enrs)
	return enrs, nil
}

func sortEnrollments(enrs []enroll.Enrollment) {
	sort.Slice(enrs, func(i, j int) bool {
		a, b := enrs[i].EnrollDate, enrs[j].EnrollDate
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
}

func (repo *enrollRepository) CountEnrollmentsByCourse(courseID string) (total, approved int, err error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, enr := range repo.db.enrollments {
		if enr.CourseID != courseID {
			continue
		}
		total++
		if enr.Status == enroll.StatusApproved {
			approved++
		}
	}
	return total, approved, nil
}

func (repo *enrollRepository) CountEnrollments() (total, accessible int, err error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, enr := range repo.db.enrollments {
		total++
		if enr.IsAccessible {
			accessible++
		}
	}
	return total, accessible, nil
}

func (repo *enrollRepository) ApprovedRevenue(courseID string) (float64, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var revenue float64
	for _, enr := range repo.db.enrollments {
		if enr.Status != enroll.StatusApproved {
			continue
		}
		if courseID != "" && enr.CourseID != courseID {
			continue
		}
		if crs, ok := repo.db.courses[enr.CourseID]; ok {
			revenue += crs.Price
		}
	}
	return revenue, nil
}

func (repo *enrollRepository) CreatePaymentProof(proof enroll.PaymentProof) (enroll.PaymentProof, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.proofs[proof.ID] = &proof
	return proof, nil
}

func (repo *enrollRepository) QueryPaymentProofs(enrollmentID string) ([]enroll.PaymentProof, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	proofs := make([]enroll.PaymentProof, 0)
	for _, proof := range repo.db.proofs {
		if proof.EnrollmentID == enrollmentID {
			proofs = append(proofs, *proof)
		}
	}
	sort.Slice(proofs, func(i, j int) bool { return proofs[i].SubmittedAt.Before(proofs[j].SubmittedAt) })
	return proofs, nil
}

func (repo *enrollRepository) QueryActiveBankAccounts() ([]enroll.BankAccount, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	accs := make([]enroll.BankAccount, 0)
	for _, acc := range repo.db.bankAccounts {
		if acc.IsActive {
			accs = append(accs, *acc)
		}
	}
	sort.Slice(accs, func(i, j int) bool { return accs[i].BankName < accs[j].BankName })
	return accs, nil
}
