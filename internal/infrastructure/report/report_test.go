package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wms-platform/slotting-simulator/internal/domain"
)

func testRun() *domain.SimulationRun {
	start := time.Date(2022, 11, 7, 0, 0, 0, 0, time.UTC)
	run := domain.NewSimulationRun("run-1", domain.SimulationRequest{
		Strategy:        domain.StrategyClasses,
		StartDate:       start,
		NumberOfDays:    2,
		NumberOfClasses: 3,
		Seed:            42,
	})
	run.Results = append(run.Results,
		domain.SimulationResult{Date: start, Length: 120.5, PicklistCount: 3, PicklistEntryCount: 11},
		domain.SimulationResult{
			Date:                                 start.AddDate(0, 0, 1),
			Length:                               80,
			PicklistCount:                        2,
			PicklistEntryCount:                   7,
			RearrangementCountHighzoneGroundzone: 4,
		},
	)
	run.Complete()
	return run
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, format)

	format, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, format)
	assert.Equal(t, "application/pdf", format.ContentType())
	assert.Equal(t, "simulation-run-1.pdf", format.FileName("run-1"))

	_, err = ParseFormat("csv")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestBuildRunXLSX(t *testing.T) {
	data, err := Build(testRun(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	strategy, err := f.GetCellValue("summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "Classes", strategy)

	rows, err := f.GetRows("days")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, "2022-11-08", rows[2][0])
	assert.Equal(t, "4", rows[2][4])
}

func TestBuildRunPDF(t *testing.T) {
	data, err := Build(testRun(), FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestBuild_UnsupportedFormat(t *testing.T) {
	_, err := Build(testRun(), Format("csv"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
