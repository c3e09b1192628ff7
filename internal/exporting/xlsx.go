// Package exporting renders complaint snapshots as spreadsheets for the
// grievance cell's offline triage workflow.
package exporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/railsewa/grievance-service/internal/core/domain"
)

const sheetName = "Complaints"

var columns = []string{
	"CRN",
	"Title",
	"Status",
	"Area",
	"Type",
	"Sub Type",
	"Priority",
	"Owner",
	"Source",
	"Assigned To",
	"Department",
	"Zone",
	"Created At",
	"Updated At",
	"Description",
	"Media Count",
	"AI Category",
	"AI Urgency",
	"AI Summary",
	"AI Keywords",
	"Analyzed At",
}

// XLSXExporter writes one row per complaint, enrichment columns left blank
// for records that have not been analyzed yet.
type XLSXExporter struct{}

func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) Export(complaints []domain.Complaint) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("exporting: create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("exporting: drop default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &columns); err != nil {
		return nil, fmt.Errorf("exporting: write header: %w", err)
	}

	for i, c := range complaints {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("exporting: row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheetName, cell, rowFor(c)); err != nil {
			return nil, fmt.Errorf("exporting: write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("exporting: serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func rowFor(c domain.Complaint) *[]interface{} {
	row := []interface{}{
		c.ID,
		c.Title,
		string(c.Status),
		string(c.Area),
		c.Type,
		c.SubType,
		string(c.Priority),
		c.OwnerEmail,
		string(c.Source),
		c.AssignedTo,
		c.Department,
		c.Zone,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
		c.Description,
		len(c.Media),
	}
	if c.Analysis != nil {
		row = append(row,
			c.Analysis.Category,
			c.Analysis.UrgencyScore,
			c.Analysis.Summary,
			strings.Join(c.Analysis.Keywords, ", "),
			formatTime(c.Analysis.AnalyzedAt),
		)
	} else {
		row = append(row, "", "", "", "", "")
	}
	return &row
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
