package ledger

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{
	"phone_number_id", "agent_id", "connected", "needs_migration",
	"phone_credential_id", "agent_credential_id",
}

// ExportDriftReport renders a drift report as an XLSX workbook for
// operator download.
func ExportDriftReport(report *DriftReport) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Drift Report"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	for i, col := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, entry := range report.Entries {
		values := []interface{}{
			entry.PhoneNumberID,
			entry.AgentID,
			entry.Connected,
			entry.NeedsMigration,
			entry.PhoneCredentialID,
			entry.AgentCredentialID,
		}
		for colIdx, val := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, val)
		}
	}

	for i := range exportColumns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, col, col, 22)
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("drift-report-%s.xlsx", report.GeneratedAt.Format("20060102-150405"))
	return buffer.Bytes(), filename, nil
}
