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

	"github.com/jung-kurt/gofpdf"

	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// Page geometry in millimeters (A4 portrait, 15mm margins).
const (
	pdfMargin     = 15.0
	pdfPageWidth  = 210.0
	pdfBodyWidth  = pdfPageWidth - 2*pdfMargin
	pdfLineHeight = 6.0
)

// WritePDF renders an assessment as a PDF document and streams it to w.
//
// # Description
//
// One A4 page in the common case: header with reference and date, a
// patient summary grid, the two risk timelines with a colored level badge,
// the counterfactual comparison when present, and the narrative when
// present. The disclaimer and page number repeat in every page footer.
//
// # Inputs
//
//   - w: Destination stream. Nothing is buffered beyond gofpdf's internals.
//   - data: The assessment to render. ExternalID is validated when set.
//
// # Outputs
//
//   - error: Non-nil on invalid data or a rendering failure.
func WritePDF(w io.Writer, data Data) error {
	if err := data.validate(); err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Clarus Risk Assessment", true)
	pdf.SetAuthor("Clarus Health", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, 25)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-22)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(pdfBodyWidth, 3.2, Disclaimer, "", "C", false)
		pdf.CellFormat(pdfBodyWidth, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()),
			"", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})

	pdf.AddPage()

	writePDFHeader(pdf, data)
	writePDFPatientSummary(pdf, data.Record)
	writePDFTimelines(pdf, data.Result)
	if data.Optimal != nil {
		writePDFHeadroom(pdf, data.Result, *data.Optimal)
	}
	writePDFFollowUp(pdf, data.Result.Level)
	if data.Narrative != "" {
		writePDFNarrative(pdf, data.Narrative)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write assessment PDF: %w", err)
	}
	return nil
}

func writePDFHeader(pdf *gofpdf.Fpdf, data Data) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(pdfBodyWidth, 10, "Risk Assessment", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	if data.ExternalID != "" {
		pdf.CellFormat(pdfBodyWidth, 5, "Reference: "+data.ExternalID, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(pdfBodyWidth, 5, "Generated: "+data.generatedAt().Format("2006-01-02 15:04 MST"),
		"", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

// writePDFPatientSummary prints the inputs as a two-column label/value grid.
func writePDFPatientSummary(pdf *gofpdf.Fpdf, rec riskengine.PatientRecord) {
	sectionTitle(pdf, "Patient Summary")

	rows := [][2]string{
		{"Age", fmt.Sprintf("%.0f years", rec.Age)},
		{"Sex", string(rec.Sex)},
	}
	if bmi := rec.BMI(); bmi > 0 {
		rows = append(rows, [2]string{"BMI", fmt.Sprintf("%.1f kg/m2", bmi)})
	}
	rows = append(rows,
		[2]string{"Blood pressure", fmt.Sprintf("%.0f/%.0f mmHg", rec.SystolicBP, rec.DiastolicBP)},
		[2]string{"Total cholesterol", fmt.Sprintf("%.0f mg/dL", rec.TotalCholesterol)},
		[2]string{"HDL cholesterol", fmt.Sprintf("%.0f mg/dL", rec.HDLCholesterol)},
		[2]string{"eGFR", fmt.Sprintf("%.0f mL/min/1.73m2", rec.EGFR)},
		[2]string{"Urine ACR", fmt.Sprintf("%.1f mg/g", rec.ACR)},
		[2]string{"Smoker", yesNoLabel(rec.Smoker)},
		[2]string{"Diabetes", yesNoLabel(rec.Diabetes)},
		[2]string{"BP medication", yesNoLabel(rec.OnHypertensionMeds)},
		[2]string{"Statin therapy", yesNoLabel(rec.OnStatins)},
	)

	// Two key/value pairs per printed line.
	const halfWidth = pdfBodyWidth / 2
	pdf.SetFont("Helvetica", "", 9)
	for i := 0; i < len(rows); i += 2 {
		kvCell(pdf, halfWidth, rows[i][0], rows[i][1])
		if i+1 < len(rows) {
			kvCell(pdf, halfWidth, rows[i+1][0], rows[i+1][1])
		}
		pdf.Ln(pdfLineHeight)
	}
	pdf.Ln(3)
}

// writePDFTimelines prints both model timelines and the level badge.
func writePDFTimelines(pdf *gofpdf.Fpdf, result riskengine.RiskResult) {
	sectionTitle(pdf, "Estimated Risk")

	// Combined level badge.
	r, g, b := levelColor(result.Level)
	pdf.SetFillColor(r, g, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(42, 8, " "+levelLabel(result.Level)+" ", "", 0, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(pdfBodyWidth-42, 8, "  combined risk level", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	timelineTable(pdf, "Cardiovascular event risk", [][2]string{
		{"5 years", fmt.Sprintf("%.1f%%", result.Cardio.FiveYear)},
		{"10 years", fmt.Sprintf("%.1f%%", result.Cardio.TenYear)},
		{"15 years", fmt.Sprintf("%.1f%%", result.Cardio.FifteenYear)},
	})
	timelineTable(pdf, "Kidney failure risk", [][2]string{
		{"2 years", fmt.Sprintf("%.1f%%", result.Renal.TwoYear)},
		{"5 years", fmt.Sprintf("%.1f%%", result.Renal.FiveYear)},
		{"10 years", fmt.Sprintf("%.1f%%", result.Renal.TenYear)},
	})

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(pdfBodyWidth, pdfLineHeight,
		fmt.Sprintf("Long-term cardiovascular projection: %.1f%% (display extrapolation)", result.LongTerm),
		"", 1, "L", false, 0, "")
	pdf.Ln(3)
}

// writePDFHeadroom prints the current-versus-target comparison.
func writePDFHeadroom(pdf *gofpdf.Fpdf, result riskengine.RiskResult, optimal riskengine.CardioTimeline) {
	sectionTitle(pdf, "Risk Factor Headroom")

	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(pdfBodyWidth, 4.5,
		"Cardiovascular estimates if blood pressure, cholesterol, and smoking reached target values "+
			"(115/75 mmHg, total cholesterol 160, HDL 55, non-smoking). Age, sex, diabetes, and renal "+
			"findings are unchanged.", "", "L", false)
	pdf.Ln(1)

	headerRow(pdf, []string{"Horizon", "Current", "At targets", "Difference"})
	horizons := []struct {
		label            string
		current, optimal float64
	}{
		{"5 years", result.Cardio.FiveYear, optimal.FiveYear},
		{"10 years", result.Cardio.TenYear, optimal.TenYear},
		{"15 years", result.Cardio.FifteenYear, optimal.FifteenYear},
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, h := range horizons {
		pdf.CellFormat(45, pdfLineHeight, h.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, pdfLineHeight, fmt.Sprintf("%.1f%%", h.current), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, pdfLineHeight, fmt.Sprintf("%.1f%%", h.optimal), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, pdfLineHeight, fmt.Sprintf("%+.1f%%", h.optimal-h.current), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
}

func writePDFFollowUp(pdf *gofpdf.Fpdf, level riskengine.RiskLevel) {
	sectionTitle(pdf, "Suggested Follow-up")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(pdfBodyWidth, 4.5, riskengine.Recommendations[level], "", "L", false)
	pdf.Ln(3)
}

func writePDFNarrative(pdf *gofpdf.Fpdf, narrative string) {
	sectionTitle(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 9)
	pdf.MultiCell(pdfBodyWidth, 4.5, narrative, "", "L", false)
	pdf.Ln(3)
}

// headerRow prints a filled table header of equal-width cells.
func headerRow(pdf *gofpdf.Fpdf, labels []string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(235, 240, 245)
	cellWidth := pdfBodyWidth / float64(len(labels))
	for _, label := range labels {
		pdf.CellFormat(cellWidth, pdfLineHeight, label, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(pdfLineHeight)
}

// sectionTitle prints a section heading with an underline rule.
func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(pdfBodyWidth, 8, title, "", 1, "L", false, 0, "")
	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(x, y, x+pdfBodyWidth, y)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Ln(2)
}

// kvCell prints one label/value pair within a fixed width.
func kvCell(pdf *gofpdf.Fpdf, width float64, label, value string) {
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(width*0.45, pdfLineHeight, label, "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(width*0.55, pdfLineHeight, value, "", 0, "L", false, 0, "")
}

// timelineTable prints a one-line horizon table for one model.
func timelineTable(pdf *gofpdf.Fpdf, title string, rows [][2]string) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(pdfBodyWidth, pdfLineHeight, title, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	cellWidth := pdfBodyWidth / float64(len(rows))
	for _, row := range rows {
		pdf.CellFormat(cellWidth, pdfLineHeight, row[0], "1", 0, "C", false, 0, "")
	}
	pdf.Ln(pdfLineHeight)
	pdf.SetFont("Helvetica", "B", 10)
	for _, row := range rows {
		pdf.CellFormat(cellWidth, pdfLineHeight+1, row[1], "1", 0, "C", false, 0, "")
	}
	pdf.Ln(pdfLineHeight + 3)
}

func yesNoLabel(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
