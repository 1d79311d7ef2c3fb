package sqlxrepos

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/enroll"
)

type enrollRepository struct {
	db DB
}

var _ enroll.Repository = (*enrollRepository)(nil) // interface compliance check

func NewEnrollRepository(db DB) *enrollRepository {
	return &enrollRepository{db: db}
}

// auditLog maps the enrollment audit trail to a jsonb column.
type auditLog []enroll.AuditEvent

func (a auditLog) Value() (driver.Value, error) {
	if a == nil {
		a = auditLog{}
	}
	return json.Marshal(a)
}

func (a *auditLog) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	}
	return errors.Errorf("unsupported audit log type %T", src)
}

type enrollmentRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	CourseID       string    `db:"course_id"`
	Status         string    `db:"status"`
	EnrollDate     null.Time `db:"enroll_date"`
	ExpirationDate null.Time `db:"expiration_date"`
	IsAccessible   bool      `db:"is_accessible"`
	DaysRemaining  null.Int  `db:"days_remaining"`
	LastAccessDate null.Time `db:"last_access_date"`
	AuditLog       auditLog  `db:"audit_log"`
}

func (r enrollmentRow) toDomain() enroll.Enrollment {
	enr := enroll.Enrollment{
		ID:           r.ID,
		UserID:       r.UserID,
		CourseID:     r.CourseID,
		Status:       r.Status,
		IsAccessible: r.IsAccessible,
		AuditLog:     r.AuditLog,
	}
	if r.EnrollDate.Valid {
		t := r.EnrollDate.Time
		enr.EnrollDate = &t
	}
	if r.ExpirationDate.Valid {
		t := r.ExpirationDate.Time
		enr.ExpirationDate = &t
	}
	if r.DaysRemaining.Valid {
		d := r.DaysRemaining.Int
		enr.DaysRemaining = &d
	}
	if r.LastAccessDate.Valid {
		t := r.LastAccessDate.Time
		enr.LastAccessDate = &t
	}
	return enr
}

func toEnrollmentRow(enr enroll.Enrollment) enrollmentRow {
	row := enrollmentRow{
		ID:           enr.ID,
		UserID:       enr.UserID,
		CourseID:     enr.CourseID,
		Status:       enr.Status,
		IsAccessible: enr.IsAccessible,
		AuditLog:     enr.AuditLog,
	}
	if enr.EnrollDate != nil {
		row.EnrollDate = null.TimeFrom(enr.EnrollDate.UTC())
	}
	if enr.ExpirationDate != nil {
		row.ExpirationDate = null.TimeFrom(enr.ExpirationDate.UTC())
	}
	if enr.DaysRemaining != nil {
		row.DaysRemaining = null.IntFrom(*enr.DaysRemaining)
	}
	if enr.LastAccessDate != nil {
		row.LastAccessDate = null.TimeFrom(enr.LastAccessDate.UTC())
	}
	return row
}

const enrollmentColumns = `id, user_id, course_id, status, enroll_date, expiration_date, is_accessible, days_remaining, last_access_date, audit_log`

func (repo enrollRepository) GetEnrollment(userID, courseID string) (enroll.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.Get(&row, `
		SELECT `+enrollmentColumns+`
		FROM enrollment
		WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return enroll.Enrollment{}, trapNoRows(err, enroll.ErrNotFound, "getting enrollment")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) GetEnrollmentByID(id string) (enroll.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.Get(&row, `SELECT `+enrollmentColumns+` FROM enrollment WHERE id = $1`, id); err != nil {
		return enroll.Enrollment{}, trapNoRows(err, enroll.ErrNotFound, "getting enrollment by id")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) CreateEnrollment(enr enroll.Enrollment) (enroll.Enrollment, error) {
	row := toEnrollmentRow(enr)
	_, err := repo.db.NamedExec(`
		INSERT INTO enrollment (`+enrollmentColumns+`)
		VALUES (:id, :user_id, :course_id, :status, :enroll_date, :expiration_date, :is_accessible, :days_remaining, :last_access_date, :audit_log)`,
		row,
	)
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) UpdateEnrollment(enr enroll.Enrollment) (enroll.Enrollment, error) {
	row := toEnrollmentRow(enr)
	res, err := repo.db.NamedExec(`
		UPDATE enrollment
		SET status = :status, enroll_date = :enroll_date, expiration_date = :expiration_date,
		    is_accessible = :is_accessible, days_remaining = :days_remaining,
		    last_access_date = :last_access_date, audit_log = :audit_log
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return enroll.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enroll.Enrollment{}, enroll.ErrNotFound
	}
	return row.toDomain(), nil
}

func (repo enrollRepository) QueryEnrollmentsByUser(userID string, status ...string) ([]enroll.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE user_id = ?`
	args := []interface{}{userID}
	if len(status) > 0 {
		query += ` AND status IN (?)`
		q, qargs, err := sqlx.In(query, userID, status)
		if err != nil {
			return nil, errors.Wrap(err, "querying enrollments")
		}
		query, args = q, qargs
	}
	query = repo.db.Rebind(query)

	var rows []enrollmentRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return toEnrollments(rows), nil
}

func (repo enrollRepository) QueryEnrollmentsByCourse(courseID string) ([]enroll.Enrollment, error) {
	var rows []enrollmentRow
	err := repo.db.Select(&rows, `SELECT `+enrollmentColumns+` FROM enrollment WHERE course_id = $1`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments by course")
	}
	return toEnrollments(rows), nil
}

func toEnrollments(rows []enrollmentRow) []enroll.Enrollment {
	enrs := make([]enroll.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.toDomain())
	}
	return enrs
}

func (repo enrollRepository) CountEnrollmentsByCourse(courseID string) (total, approved int, err error) {
	err = repo.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'approved')
		FROM enrollment
		WHERE course_id = $1`,
		courseID,
	).Scan(&total, &approved)
	return total, approved, errors.Wrap(err, "counting enrollments by course")
}

func (repo enrollRepository) CountEnrollments() (total, accessible int, err error) {
	err = repo.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'approved' AND is_accessible)
		FROM enrollment`,
	).Scan(&total, &accessible)
	return total, accessible, errors.Wrap(err, "counting enrollments")
}

func (repo enrollRepository) ApprovedRevenue(courseID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(c.price), 0)
		FROM enrollment e
		JOIN course c ON c.id = e.course_id
		WHERE e.status = 'approved'`
	args := []interface{}{}
	if courseID != "" {
		query += ` AND e.course_id = $1`
		args = append(args, courseID)
	}

	var revenue float64
	if err := repo.db.Get(&revenue, query, args...); err != nil {
		return 0, errors.Wrap(err, "summing revenue")
	}
	return revenue, nil
}

type paymentProofRow struct {
	ID           string    `db:"id"`
	EnrollmentID string    `db:"enrollment_id"`
	ProofURL     string    `db:"proof_url"`
	SubmittedAt  null.Time `db:"submitted_at"`
}

func (repo enrollRepository) CreatePaymentProof(proof enroll.PaymentProof) (enroll.PaymentProof, error) {
	row := paymentProofRow{
		ID:           proof.ID,
		EnrollmentID: proof.EnrollmentID,
		ProofURL:     proof.ProofURL,
		SubmittedAt:  null.TimeFrom(proof.SubmittedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO payment_proof (id, enrollment_id, proof_url, submitted_at)
		VALUES (:id, :enrollment_id, :proof_url, :submitted_at)`,
		row,
	)
	if err != nil {
		return enroll.PaymentProof{}, errors.Wrap(err, "inserting payment proof")
	}
	return proof, nil
}

func (repo enrollRepository) QueryPaymentProofs(enrollmentID string) ([]enroll.PaymentProof, error) {
	var rows []paymentProofRow
	err := repo.db.Select(&rows, `
		SELECT id, enrollment_id, proof_url, submitted_at
		FROM payment_proof
		WHERE enrollment_id = $1
		ORDER BY submitted_at`,
		enrollmentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying payment proofs")
	}
	proofs := make([]enroll.PaymentProof, 0, len(rows))
	for _, r := range rows {
		proofs = append(proofs, enroll.PaymentProof{
			ID:           r.ID,
			EnrollmentID: r.EnrollmentID,
			ProofURL:     r.ProofURL,
			SubmittedAt:  r.SubmittedAt.Time,
		})
	}
	return proofs, nil
}

func (repo enrollRepository) QueryActiveBankAccounts() ([]enroll.BankAccount, error) {
	var accounts []enroll.BankAccount
	rows, err := repo.db.Query(`
		SELECT id, account_name, account_number, bank_name, is_active
		FROM bank_account
		WHERE is_active
		ORDER BY bank_name`,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying bank accounts")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var acc enroll.BankAccount
		if err = rows.Scan(&acc.ID, &acc.AccountName, &acc.AccountNumber, &acc.BankName, &acc.IsActive); err != nil {
			return nil, errors.Wrap(err, "querying bank accounts")
		}
		accounts = append(accounts, acc)
	}
	return accounts, errors.Wrap(rows.Err(), "querying bank accounts")
}
