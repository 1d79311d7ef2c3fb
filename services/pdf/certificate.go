package pdfsvc

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/edutech/backend/core"
)

// CertificateRenderer produces completion certificates as landscape A4 PDFs.
type CertificateRenderer struct {
	appName string
}

func NewCertificateRenderer(conf *core.Config) *CertificateRenderer {
	return &CertificateRenderer{appName: conf.AppName}
}

// Render draws the certificate for the given recipient and returns the PDF bytes.
func (r *CertificateRenderer) Render(studentName, courseTitle, certificateNumber string, issuedAt time.Time) (*bytes.Buffer, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("%s - Certificate %s", r.appName, certificateNumber), true)
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()

	// border
	pdf.SetLineWidth(1.2)
	pdf.SetDrawColor(184, 134, 11) // gold
	pdf.Rect(8, 8, pageW-16, pageH-16, "D")

	// header: institute name
	pdf.SetY(30)
	pdf.SetFont("Times", "B", 28)
	pdf.SetTextColor(184, 134, 11)
	pdf.CellFormat(0, 14, r.appName, "", 1, "C", false, 0, "")

	// certificate title
	pdf.Ln(10)
	pdf.SetFont("Times", "B", 24)
	pdf.SetTextColor(34, 34, 34)
	pdf.CellFormat(0, 12, "Certificate of Completion", "", 1, "C", false, 0, "")

	// award text
	pdf.Ln(6)
	pdf.SetFont("Times", "", 20)
	pdf.CellFormat(0, 10, "This certificate is awarded to", "", 1, "C", false, 0, "")

	// recipient name
	pdf.Ln(4)
	pdf.SetFont("Times", "I", 32)
	pdf.SetTextColor(0, 51, 153) // elegant blue
	pdf.CellFormat(0, 16, studentName, "", 1, "C", false, 0, "")

	// course title
	pdf.Ln(2)
	pdf.SetFont("Times", "B", 20)
	pdf.SetTextColor(34, 34, 34)
	pdf.CellFormat(0, 10, fmt.Sprintf("for completing the course \"%s\"", courseTitle), "", 1, "C", false, 0, "")

	// metadata, bottom left
	pdf.SetFont("Times", "B", 10)
	pdf.SetXY(20, pageH-34)
	pdf.CellFormat(0, 6, fmt.Sprintf("Certificate No: %s", certificateNumber), "", 1, "L", false, 0, "")
	pdf.SetX(20)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued On: %s", issuedAt.Format("January 2, 2006")), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "rendering certificate pdf")
	}
	return &buf, nil
}
