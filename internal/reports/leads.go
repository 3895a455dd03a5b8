// Package reports builds spreadsheet exports for the admin dashboard.
package reports

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"matching-platform/internal/store"
)

const leadsSheet = "Leads"

var leadHeaders = []string{
	"ID", "Type", "Name", "Email", "Phone", "Status", "City", "Schwerpunkte",
	"Session Preferences", "Campaign", "GCLID", "Created", "Verified",
}

var leadColumnWidths = []float64{38, 10, 24, 30, 18, 18, 14, 30, 20, 18, 24, 20, 20}

// LeadsWorkbook renders leads as an xlsx workbook with a frozen, styled header row.
func LeadsWorkbook(leads []store.Lead) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(leadsSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := make([]interface{}, len(leadHeaders))
	for i, h := range leadHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(leadsSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(leadHeaders))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(leadsSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, w := range leadColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(leadsSheet, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, lead := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := leadRow(lead)
		if err := f.SetSheetRow(leadsSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(leadsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func leadRow(l store.Lead) []interface{} {
	verified := ""
	if l.VerifiedAt != nil {
		verified = formatTime(*l.VerifiedAt)
	}
	return []interface{}{
		l.ID,
		l.Type,
		l.Name,
		l.Email,
		l.Phone,
		l.Status,
		l.Intake.City,
		strings.Join(l.Intake.Schwerpunkte, ", "),
		strings.Join(l.Intake.SessionPreferences, ", "),
		l.CampaignSource,
		l.Gclid,
		formatTime(l.CreatedAt),
		verified,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04")
}
