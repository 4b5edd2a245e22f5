// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// Sheet names in the assessment workbook.
const (
	sheetAssessment = "Assessment"
	sheetTimelines  = "Timelines"
	sheetBatch      = "Batch"
)

// timelineHeader is the header row of the Timelines sheet.
var timelineHeader = []string{"Horizon", "Cardiovascular %", "Kidney Failure %", "Cardiovascular at Targets %"}

// batchHeader is the header row of the batch summary sheet.
var batchHeader = []string{
	"Reference", "Generated", "Age (years)", "Sex",
	"Cardiovascular 10y %", "Kidney Failure 5y %",
	"Combined Level", "Long-term %", "Suggested Follow-up",
}

// WriteXLSX renders an assessment as an XLSX workbook and streams it to w.
//
// The workbook carries two sheets: "Assessment" with the inputs and
// combined outputs as label/value rows, and "Timelines" with one row per
// horizon and one column per model (cells are left empty at horizons a
// model does not project). Headers are styled and frozen.
func WriteXLSX(w io.Writer, data Data) error {
	if err := data.validate(); err != nil {
		return err
	}

	f := excelize.NewFile()
	// WriteTo needs the file open; Close only on the way out.

	if err := buildAssessmentSheet(f, data); err != nil {
		f.Close()
		return err
	}
	if err := buildTimelinesSheet(f, data); err != nil {
		f.Close()
		return err
	}

	// The default sheet is replaced, not kept empty alongside ours.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return fmt.Errorf("delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheetAssessment)
	if err != nil {
		f.Close()
		return fmt.Errorf("locate assessment sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if _, err := f.WriteTo(w); err != nil {
		f.Close()
		return fmt.Errorf("write assessment workbook: %w", err)
	}
	return f.Close()
}

// WriteBatchXLSX renders a set of assessments as a single worksheet, one
// row per record, and streams the workbook to w. It is the panel overview
// behind "clarus batch --xlsx": sortable decision figures only, while the
// per-record workbook from WriteXLSX keeps the full input echo.
func WriteBatchXLSX(w io.Writer, rows []Data) error {
	for i := range rows {
		if err := rows[i].validate(); err != nil {
			return fmt.Errorf("batch row %d: %w", i+1, err)
		}
	}

	f := excelize.NewFile()

	if err := buildBatchSheet(f, rows); err != nil {
		f.Close()
		return err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return fmt.Errorf("delete default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheetBatch)
	if err != nil {
		f.Close()
		return fmt.Errorf("locate batch sheet: %w", err)
	}
	f.SetActiveSheet(index)

	if _, err := f.WriteTo(w); err != nil {
		f.Close()
		return fmt.Errorf("write batch workbook: %w", err)
	}
	return f.Close()
}

// buildBatchSheet writes the header and one summary row per assessment.
func buildBatchSheet(f *excelize.File, rows []Data) error {
	if _, err := f.NewSheet(sheetBatch); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetBatch, err)
	}

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}

	for col, header := range batchHeader {
		if err := setCell(f, sheetBatch, col+1, 1, header); err != nil {
			return err
		}
	}
	lastHeaderCell, err := excelize.CoordinatesToCellName(len(batchHeader), 1)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheetBatch, "A1", lastHeaderCell, headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	for i, data := range rows {
		rowNum := i + 2
		values := []any{
			data.ExternalID,
			data.generatedAt().Format("2006-01-02 15:04:05"),
			data.Record.Age,
			string(data.Record.Sex),
			data.Result.Cardio.TenYear,
			data.Result.Renal.FiveYear,
			levelLabel(data.Result.Level),
			data.Result.LongTerm,
			riskengine.Recommendations[data.Result.Level],
		}
		for col, value := range values {
			if err := setCell(f, sheetBatch, col+1, rowNum, value); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetBatch, "A", "I", 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	return freezeHeader(f, sheetBatch)
}

// buildAssessmentSheet writes the label/value input and output rows.
func buildAssessmentSheet(f *excelize.File, data Data) error {
	if _, err := f.NewSheet(sheetAssessment); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetAssessment, err)
	}

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}

	rows := [][2]any{
		{"Field", "Value"},
		{"Reference", data.ExternalID},
		{"Generated", data.generatedAt().Format("2006-01-02 15:04:05")},
		{"Age (years)", data.Record.Age},
		{"Sex", string(data.Record.Sex)},
		{"Height (cm)", data.Record.HeightCm},
		{"Weight (kg)", data.Record.WeightKg},
		{"Systolic BP (mmHg)", data.Record.SystolicBP},
		{"Diastolic BP (mmHg)", data.Record.DiastolicBP},
		{"Total cholesterol (mg/dL)", data.Record.TotalCholesterol},
		{"HDL cholesterol (mg/dL)", data.Record.HDLCholesterol},
		{"eGFR (mL/min/1.73m2)", data.Record.EGFR},
		{"Urine ACR (mg/g)", data.Record.ACR},
		{"Smoker", yesNoLabel(data.Record.Smoker)},
		{"Diabetes", yesNoLabel(data.Record.Diabetes)},
		{"BP medication", yesNoLabel(data.Record.OnHypertensionMeds)},
		{"Statin therapy", yesNoLabel(data.Record.OnStatins)},
		{"Combined risk level", levelLabel(data.Result.Level)},
		{"Long-term projection (%)", data.Result.LongTerm},
		{"Suggested follow-up", riskengine.Recommendations[data.Result.Level]},
		{"Disclaimer", Disclaimer},
	}

	for i, row := range rows {
		rowNum := i + 1
		if err := setCell(f, sheetAssessment, 1, rowNum, row[0]); err != nil {
			return err
		}
		if err := setCell(f, sheetAssessment, 2, rowNum, row[1]); err != nil {
			return err
		}
	}

	if err := f.SetCellStyle(sheetAssessment, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}
	if err := f.SetColWidth(sheetAssessment, "A", "A", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(sheetAssessment, "B", "B", 60); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	return freezeHeader(f, sheetAssessment)
}

// buildTimelinesSheet writes one row per horizon across both models.
func buildTimelinesSheet(f *excelize.File, data Data) error {
	if _, err := f.NewSheet(sheetTimelines); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetTimelines, err)
	}

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return err
	}

	for col, header := range timelineHeader {
		if err := setCell(f, sheetTimelines, col+1, 1, header); err != nil {
			return err
		}
	}
	lastHeaderCell, err := excelize.CoordinatesToCellName(len(timelineHeader), 1)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheetTimelines, "A1", lastHeaderCell, headerStyle); err != nil {
		return fmt.Errorf("style header row: %w", err)
	}

	// One row per horizon; nil means the model has no figure there.
	cardio, renal := data.Result.Cardio, data.Result.Renal
	var opt5, opt10, opt15 *float64
	if data.Optimal != nil {
		opt5, opt10, opt15 = &data.Optimal.FiveYear, &data.Optimal.TenYear, &data.Optimal.FifteenYear
	}
	rows := []struct {
		horizon string
		cardio  *float64
		renal   *float64
		optimal *float64
	}{
		{"2 years", nil, &renal.TwoYear, nil},
		{"5 years", &cardio.FiveYear, &renal.FiveYear, opt5},
		{"10 years", &cardio.TenYear, &renal.TenYear, opt10},
		{"15 years", &cardio.FifteenYear, nil, opt15},
	}

	for i, row := range rows {
		rowNum := i + 2
		if err := setCell(f, sheetTimelines, 1, rowNum, row.horizon); err != nil {
			return err
		}
		for col, value := range []*float64{row.cardio, row.renal, row.optimal} {
			if value == nil {
				continue
			}
			if err := setCell(f, sheetTimelines, col+2, rowNum, *value); err != nil {
				return err
			}
		}
	}

	if err := f.SetColWidth(sheetTimelines, "A", "D", 24); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	return freezeHeader(f, sheetTimelines)
}

// newHeaderStyle builds the bold, filled, bordered header cell style.
func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("create header style: %w", err)
	}
	return style, nil
}

// freezeHeader freezes the first row of a sheet.
func freezeHeader(f *excelize.File, sheet string) error {
	err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
	if err != nil {
		return fmt.Errorf("freeze header row: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("convert coordinates: %w", err)
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}
