package inmemdb

import (
	"sort"

	"github.com/edutech/backend/core/certificate"
)

type certificateRepository struct {
	db *DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db *DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) GetCertificate(userID, courseID string) (certificate.Certificate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if cert, ok := repo.db.certificates[userID+"/"+courseID]; ok {
		return *cert, nil
	}
	return certificate.Certificate{}, certificate.ErrNotFound
}

func (repo *certificateRepository) CreateCertificate(cert certificate.Certificate) (certificate.Certificate, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.certificates[cert.UserID+"/"+cert.CourseID] = &cert
	return cert, nil
}

func (repo *certificateRepository) QueryCertificatesByUser(userID string) ([]certificate.Certificate, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	certs := make([]certificate.Certificate, 0)
	for _, cert := range repo.db.certificates {
		if cert.UserID == userID {
			certs = append(certs, *cert)
		}
	}
	sort.Slice(certs, func(i, j int) bool { return certs[i].IssuedAt.After(certs[j].IssuedAt) })
	return certs, nil
}
