// export/export.go
// Package export writes lead lists as CSV or XLSX for the admin export
// endpoint.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dalemusser/leadcapture/lead"
)

var headers = []string{"ID", "Name", "Email", "Industry", "Country", "Submitted At"}

// CSV writes the leads as RFC 4180 CSV with a header row.
func CSV(w io.Writer, leads []lead.Lead) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("export: write csv header: %w", err)
	}
	for _, l := range leads {
		row := []string{
			l.ID,
			l.Name,
			l.Email,
			string(l.Industry),
			l.Country,
			l.SubmittedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Excel writes the leads as a single-sheet XLSX workbook with a bold header.
func Excel(w io.Writer, leads []lead.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Leads"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("export: new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("export: header style: %w", err)
	}

	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("export: write header: %w", err)
		}
		_ = f.SetCellStyle(sheet, cell, cell, bold)
	}

	for i, l := range leads {
		values := []any{
			l.ID,
			l.Name,
			l.Email,
			string(l.Industry),
			l.Country,
			l.SubmittedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("export: write row %d: %w", i, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}
