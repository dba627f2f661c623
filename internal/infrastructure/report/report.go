package report

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

// ErrUnsupportedFormat is returned for export formats other than xlsx and pdf
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Format is a run export format
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat resolves a format name, defaulting to xlsx
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatXLSX:
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// FileName returns the download name of a run report
func (f Format) FileName(runID string) string {
	return fmt.Sprintf("simulation-%s.%s", runID, f)
}

// Build renders run in format
func Build(run *domain.SimulationRun, format Format) ([]byte, error) {
	switch format {
	case FormatXLSX:
		return BuildRunXLSX(run)
	case FormatPDF:
		return BuildRunPDF(run)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

var dayColumns = []string{
	"Date",
	"Route length",
	"Pick lists",
	"Pick list entries",
	"High to ground moves",
	"High to ground length",
	"In ground moves",
	"In ground length",
}

func dayRow(result domain.SimulationResult) []any {
	return []any{
		result.Date.Format(time.DateOnly),
		result.Length,
		result.PicklistCount,
		result.PicklistEntryCount,
		result.RearrangementCountHighzoneGroundzone,
		result.RearrangementLengthHighzoneGroundzone,
		result.RearrangementCountInGroundzone,
		result.RearrangementLengthInGroundzone,
	}
}

type summaryLine struct {
	label string
	value any
}

func summary(run *domain.SimulationRun) []summaryLine {
	lines := []summaryLine{
		{"Run", run.ID},
		{"Status", string(run.Status)},
		{"Strategy", string(run.Request.Strategy)},
		{"Start date", run.Request.StartDate.Format(time.DateOnly)},
		{"Days", run.Request.NumberOfDays},
		{"Better pick lists", run.Request.BetterPicklists},
		{"Classes", run.Request.NumberOfClasses},
		{"Optimized ground zone", run.Request.OptimizedGroundZone},
		{"Exact forecast", run.Request.ExactForecast},
		{"Seed", run.Request.Seed},
		{"Total route length", run.TotalLength()},
	}
	if run.Error != "" {
		lines = append(lines, summaryLine{"Error", run.Error})
	}
	return lines
}

// BuildRunXLSX renders a run as a workbook with a summary and a days sheet
func BuildRunXLSX(run *domain.SimulationRun) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summarySheet = "summary"
	const daysSheet = "days"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, fmt.Errorf("failed to create days sheet: %w", err)
	}

	for i, line := range summary(run) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &[]any{line.label, line.value}); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	header := make([]any, len(dayColumns))
	for i, column := range dayColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(daysSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, result := range run.Results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := dayRow(result)
		if err := f.SetSheetRow(daysSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write day %d: %w", i, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// BuildRunPDF renders a run as a one table landscape document
func BuildRunPDF(run *domain.SimulationRun) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Slotting simulation report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	for _, line := range summary(run) {
		pdf.Cell(0, 6, fmt.Sprintf("%s: %s", line.label, formatValue(line.value)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	widths := []float64{28, 32, 24, 32, 38, 40, 32, 36}
	pdf.SetFont("Arial", "B", 9)
	for i, column := range dayColumns {
		pdf.CellFormat(widths[i], 6, column, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, result := range run.Results {
		for i, value := range dayRow(result) {
			align := "R"
			if i == 0 {
				align = "C"
			}
			pdf.CellFormat(widths[i], 6, formatValue(value), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatValue(value any) string {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	}
	return fmt.Sprint(value)
}
