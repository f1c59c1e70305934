package readingshttp

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"mobility-cloud/internal/observability/metrics"
	"mobility-cloud/internal/readings/application"
	readings "mobility-cloud/internal/readings/domain"
	"mobility-cloud/internal/tenancy"
)

// BuildDayReadingsXLSX renders one civil day of readings as a workbook.
func BuildDayReadingsXLSX(day string, views []application.ReadingView) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "leituras"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Dia")
	_ = f.SetCellValue(sheet, "B1", day)
	_ = f.SetCellValue(sheet, "A3", "Hora")
	_ = f.SetCellValue(sheet, "B3", "Distancia (cm)")
	_ = f.SetCellValue(sheet, "C3", "Temperatura")
	_ = f.SetCellValue(sheet, "D3", "Umidade")
	_ = f.SetCellValue(sheet, "E3", "Alerta")

	for i, view := range views {
		row := i + 4
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), view.Time)
		if view.DistanceCM != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), *view.DistanceCM)
		}
		if view.Temperature != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), *view.Temperature)
		}
		if view.Humidity != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), *view.Humidity)
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), view.Alert)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildAlertReportPDF renders the hourly alert histogram as a report.
func BuildAlertReportPDF(histogram application.AlertHistogram) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Relatorio de Alertas por Hora")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Dia: %s", histogram.Day))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Hora", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Alertas", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, bucket := range histogram.Buckets {
		pdf.CellFormat(40, 6, fmt.Sprintf("%02dh", bucket.Hour), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", bucket.Alerts), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportReadingsXLSXHandler serves GET /api/exports/leituras.xlsx.
type ExportReadingsXLSXHandler struct {
	service *application.AggregationService
	origins tenancy.KeyResolver
	clock   application.Clock
}

// NewExportReadingsXLSXHandler constructs the XLSX export handler.
func NewExportReadingsXLSXHandler(service *application.AggregationService, origins tenancy.KeyResolver) *ExportReadingsXLSXHandler {
	return &ExportReadingsXLSXHandler{service: service, origins: origins, clock: application.SystemClock{}}
}

// ServeHTTP exports one civil day of the viewer's readings.
func (h *ExportReadingsXLSXHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	day, err := parseDayParam(r)
	if err != nil {
		http.Error(w, "invalid data parameter", http.StatusBadRequest)
		return
	}
	resolved := readings.Today(h.clock.Now())
	if day != nil {
		resolved = *day
	}

	views, err := h.service.DayReadings(r.Context(), h.origins.Resolve(r), resolved)
	if err != nil {
		metrics.ExportResult("xlsx", err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}

	payload, err := BuildDayReadingsXLSX(resolved.Format(dayLayout), views)
	metrics.ExportResult("xlsx", err)
	if err != nil {
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=leituras-%s.xlsx", resolved.Format(dayLayout)))
	_, _ = w.Write(payload)
}

// ExportAlertsPDFHandler serves GET /api/exports/alertas.pdf.
type ExportAlertsPDFHandler struct {
	service *application.AggregationService
	origins tenancy.KeyResolver
}

// NewExportAlertsPDFHandler constructs the PDF export handler.
func NewExportAlertsPDFHandler(service *application.AggregationService, origins tenancy.KeyResolver) *ExportAlertsPDFHandler {
	return &ExportAlertsPDFHandler{service: service, origins: origins}
}

// ServeHTTP exports the viewer's hourly alert histogram for one day.
func (h *ExportAlertsPDFHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	day, err := parseDayParam(r)
	if err != nil {
		http.Error(w, "invalid data parameter", http.StatusBadRequest)
		return
	}

	histogram, err := h.service.AlertsByHour(r.Context(), h.origins.Resolve(r), day)
	if err != nil {
		metrics.ExportResult("pdf", err)
		http.Error(w, "query error", http.StatusInternalServerError)
		return
	}

	payload, err := BuildAlertReportPDF(histogram)
	metrics.ExportResult("pdf", err)
	if err != nil {
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=alertas-%s.pdf", histogram.Day))
	_, _ = w.Write(payload)
}
