package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"leadcrm/internal/importer"
	"leadcrm/internal/service"

	"github.com/xuri/excelize/v2"
)

const leadExportSheet = "Leads"

// LeadExportHeader 导出表头；前六列与导入表头一致，导出文件可直接再导入
var LeadExportHeader = append(append([]string{}, importer.Columns...),
	"agent",
	"category",
	"date_added",
	"converted_date",
)

var leadExportWidths = []float64{18, 18, 8, 28, 18, 40, 16, 16, 20, 20}

// ExportLeads 导出组织线索为 XLSX
func (h *LeadsHandler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	rows, err := h.leads.ExportRows(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	data, err := GenerateLeadExport(rows)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	filename := fmt.Sprintf("leads_%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GenerateLeadExport 生成线索导出 Excel 文件
func GenerateLeadExport(rows []service.LeadExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(leadExportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range LeadExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(leadExportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(leadExportSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(leadExportSheet, name, name, leadExportWidths[col]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, row := range rows {
		l := row.Lead
		converted := ""
		if l.ConvertedDate.Valid {
			converted = l.ConvertedDate.Time.UTC().Format(time.RFC3339)
		}
		values := []any{
			l.FirstName,
			l.LastName,
			l.Age,
			l.Email,
			l.PhoneNumber,
			l.Description,
			row.AgentUsername,
			row.CategoryName,
			l.DateAdded.UTC().Format(time.RFC3339),
			converted,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(leadExportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	return buf.Bytes(), nil
}
