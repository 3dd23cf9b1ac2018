package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yourusername/dealership-api/internal/domain/entity"
)

var exportHeaders = []string{"Stock No", "Make", "Model", "Year", "Registration", "Mileage (km)", "Price (LKR)", "Status", "Sold At"}

// Export handles GET /api/vehicles/export?format=xlsx|csv with the same
// filters as List.
func (h *VehicleHandler) Export(c *gin.Context) {
	filter := filterFromQuery(c)
	vehicles, err := h.vehicles.ListForExport(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	filename := fmt.Sprintf("inventory_%s", time.Now().Format("2006-01-02"))
	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		h.exportCSV(c, vehicles, filename)
	default:
		h.exportXLSX(c, vehicles, filename)
	}
}

// exportRow is the single row layout for both formats; numbers stay typed so
// the XLSX cells are numeric.
func exportRow(v entity.Vehicle) []interface{} {
	soldAt := ""
	if v.SoldAt != nil {
		soldAt = v.SoldAt.Format("2006-01-02")
	}
	return []interface{}{
		sanitizeForExcel(v.StockNumber),
		sanitizeForExcel(v.Make),
		sanitizeForExcel(v.Model),
		v.Year,
		sanitizeForExcel(v.RegistrationNo),
		v.MileageKm,
		v.PriceLKR,
		v.Status,
		soldAt,
	}
}

func csvRecord(row []interface{}) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = fmt.Sprint(cell)
	}
	return out
}

func (h *VehicleHandler) exportCSV(c *gin.Context, vehicles []entity.Vehicle, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))
	c.Status(http.StatusOK)

	// UTF-8 BOM for Excel.
	_, _ = c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeaders)
	for _, v := range vehicles {
		_ = w.Write(csvRecord(exportRow(v)))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.logger.Warn("csv export write failed", zap.Error(err))
	}
}

func (h *VehicleHandler) exportXLSX(c *gin.Context, vehicles []entity.Vehicle, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Inventory"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		respondError(c, h.logger, fmt.Errorf("rename sheet: %w", err))
		return
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		respondError(c, h.logger, fmt.Errorf("create stream writer: %w", err))
		return
	}

	header := make([]interface{}, len(exportHeaders))
	for i, name := range exportHeaders {
		header[i] = name
	}
	if err := sw.SetRow("A1", header); err != nil {
		respondError(c, h.logger, fmt.Errorf("write header: %w", err))
		return
	}

	for i, v := range vehicles {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, exportRow(v)); err != nil {
			respondError(c, h.logger, fmt.Errorf("write row %d: %w", i+2, err))
			return
		}
	}
	if err := sw.Flush(); err != nil {
		respondError(c, h.logger, fmt.Errorf("flush sheet: %w", err))
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Warn("xlsx export write failed", zap.Error(err))
	}
}

// sanitizeForExcel neutralises values that spreadsheet apps would run as
// formulas.
func sanitizeForExcel(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
