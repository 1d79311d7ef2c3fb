package sqlxrepos

import (
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/edutech/backend/core/certificate"
)

type certificateRepository struct {
	db DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db DB) *certificateRepository {
	return &certificateRepository{db: db}
}

type certificateRow struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	CourseID          string    `db:"course_id"`
	CertificateNumber string    `db:"certificate_number"`
	FileURL           string    `db:"file_url"`
	IssuedAt          null.Time `db:"issued_at"`
}

func (r certificateRow) toDomain() certificate.Certificate {
	return certificate.Certificate{
		ID:                r.ID,
		UserID:            r.UserID,
		CourseID:          r.CourseID,
		CertificateNumber: r.CertificateNumber,
		FileURL:           r.FileURL,
		IssuedAt:          r.IssuedAt.Time,
	}
}

func (repo certificateRepository) GetCertificate(userID, courseID string) (certificate.Certificate, error) {
	var row certificateRow
	err := repo.db.Get(&row, `
		SELECT id, user_id, course_id, certificate_number, file_url, issued_at
		FROM certificate
		WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return certificate.Certificate{}, trapNoRows(err, certificate.ErrNotFound, "getting certificate")
	}
	return row.toDomain(), nil
}

func (repo certificateRepository) CreateCertificate(cert certificate.Certificate) (certificate.Certificate, error) {
	row := certificateRow{
		ID:                cert.ID,
		UserID:            cert.UserID,
		CourseID:          cert.CourseID,
		CertificateNumber: cert.CertificateNumber,
		FileURL:           cert.FileURL,
		IssuedAt:          null.TimeFrom(cert.IssuedAt.UTC()),
	}
	_, err := repo.db.NamedExec(`
		INSERT INTO certificate (id, user_id, course_id, certificate_number, file_url, issued_at)
		VALUES (:id, :user_id, :course_id, :certificate_number, :file_url, :issued_at)`,
		row,
	)
	if err != nil {
		return certificate.Certificate{}, errors.Wrap(err, "inserting certificate")
	}
	return row.toDomain(), nil
}

func (repo certificateRepository) QueryCertificatesByUser(userID string) ([]certificate.Certificate, error) {
	var rows []certificateRow
	err := repo.db.Select(&rows, `
		SELECT id, user_id, course_id, certificate_number, file_url, issued_at
		FROM certificate
		WHERE user_id = $1
		ORDER BY issued_at DESC`,
		userID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying certificates")
	}
	certs := make([]certificate.Certificate, 0, len(rows))
	for _, r := range rows {
		certs = append(certs, r.toDomain())
	}
	return certs, nil
}
