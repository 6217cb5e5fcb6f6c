package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// RosterRow is one enrolled student on a course roster export.
type RosterRow struct {
	Name          string
	Email         string
	Department    string
	AdmissionDate string
}

var rosterHeaders = []string{"Name", "Email", "Department", "Admission Date"}

// RosterCSV renders a course roster as CSV bytes.
func RosterCSV(rows []RosterRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(rosterHeaders); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write([]string{row.Name, row.Email, row.Department, row.AdmissionDate}); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RosterPDF renders a course roster as a tabular PDF document. The title and
// capacity line come from the course being exported.
func RosterPDF(title string, maxStudents int, rows []RosterRow) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 8, fmt.Sprintf("Enrolled: %s / %s", strconv.Itoa(len(rows)), strconv.Itoa(maxStudents)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	colWidth := 190.0 / float64(len(rosterHeaders))
	pdf.SetFont("Arial", "B", 10)
	for _, header := range rosterHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range rows {
		pdf.CellFormat(colWidth, 7, row.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, row.Email, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, row.Department, "1", 0, "", false, 0, "")
		pdf.CellFormat(colWidth, 7, row.AdmissionDate, "1", 0, "", false, 0, "")
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
