// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding clinical-use disclaimers.

package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ClarusHealth/ClarusRisk/pkg/ux"
	"github.com/ClarusHealth/ClarusRisk/pkg/validation"
	"github.com/ClarusHealth/ClarusRisk/services/report"
	"github.com/ClarusHealth/ClarusRisk/services/riskengine"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	batchWorkers int
	batchJSONOut bool
	batchQuiet   bool
	batchXLSX    string
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Assess a panel of patient records from a CSV or JSON file",
	Long: `Assess every record in a file and print a per-record status line
plus a summary.

CSV files need a header row using the record field names (age, sex,
systolic_bp, total_cholesterol, hdl_cholesterol, egfr, acr, ...); an
optional external_id column labels rows in the output. JSON files carry an
array of record objects with the same keys. A record that fails validation
is rejected and reported; the rest of the panel still runs.

Examples:
  clarus batch panel.csv                  # Assess a CSV panel
  clarus batch panel.json --workers 8     # JSON array, wider pool
  clarus batch panel.csv --xlsx out.xlsx  # Also write a summary workbook
  clarus batch panel.csv --json           # JSON output for automation

Exit Codes:
  0 = All records assessed
  1 = One or more records rejected
  2 = Error (unreadable input, malformed file)`,
	Args: cobra.ExactArgs(1),
	Run:  runBatchCommand,
}

func init() {
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 4,
		"Concurrent assessment workers")
	batchCmd.Flags().BoolVar(&batchJSONOut, "json", false,
		"Output as JSON")
	batchCmd.Flags().BoolVar(&batchQuiet, "quiet", false,
		"Only exit code and summary, no per-record lines")
	batchCmd.Flags().StringVar(&batchXLSX, "xlsx", "",
		"Also write the assessed panel to an XLSX workbook at this path")

	// Add to root
	rootCmd.AddCommand(batchCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// batchEntry is one parsed input row. Err records a per-row parse failure
// so one bad row rejects that row instead of aborting the panel.
type batchEntry struct {
	Label      string // external id when present, else the source position
	ExternalID string
	Record     riskengine.PatientRecord
	Err        error
}

// batchOutcome pairs an entry with its assessment.
type batchOutcome struct {
	Entry   batchEntry
	Result  riskengine.RiskResult
	Optimal riskengine.CardioTimeline
	Err     error
}

func runBatchCommand(cmd *cobra.Command, args []string) {
	entries, err := loadBatchFile(args[0])
	if err != nil {
		outputBatchError("Failed to load panel", err)
		os.Exit(riskengine.ExitError)
	}

	outcomes := assessBatch(entries, batchWorkers)

	assessed, rejected := 0, 0
	for _, out := range outcomes {
		if out.Err != nil {
			rejected++
		} else {
			assessed++
		}
	}

	if batchJSONOut {
		outputBatchJSON(outcomes, assessed, rejected)
	} else {
		outputBatchText(outcomes, assessed, rejected)
	}

	if batchXLSX != "" {
		if err := writeBatchWorkbook(batchXLSX, outcomes); err != nil {
			outputBatchError("Failed to write workbook", err)
			os.Exit(riskengine.ExitError)
		}
		if !batchJSONOut {
			ux.Success(fmt.Sprintf("Wrote %s", batchXLSX))
		}
	}

	if rejected > 0 {
		os.Exit(riskengine.ExitAboveThreshold)
	}
	os.Exit(riskengine.ExitSuccess)
}

// assessBatch runs the panel through a bounded worker pool. Each worker
// writes only its own index, so the slice needs no lock.
func assessBatch(entries []batchEntry, workers int) []batchOutcome {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]batchOutcome, len(entries))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			outcomes[i] = assessBatchEntry(entry)
			return nil
		})
	}
	// Rejections live on the outcomes, not the group.
	_ = g.Wait()

	return outcomes
}

// assessBatchEntry validates and assesses one entry.
func assessBatchEntry(entry batchEntry) batchOutcome {
	out := batchOutcome{Entry: entry}

	if entry.Err != nil {
		out.Err = entry.Err
		return out
	}
	if entry.ExternalID != "" {
		if err := validation.ValidateExternalID(entry.ExternalID); err != nil {
			out.Err = err
			return out
		}
	}
	if err := riskengine.Validate(entry.Record); err != nil {
		out.Err = err
		return out
	}

	out.Result = riskengine.Assess(entry.Record)
	out.Optimal = riskengine.ComputeOptimalRisk(entry.Record)
	return out
}

// =============================================================================
// INPUT PARSING
// =============================================================================

// loadBatchFile parses a panel file by extension.
func loadBatchFile(path string) ([]batchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read panel file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return parseBatchCSV(data)
	case ".json":
		return parseBatchJSON(data)
	default:
		return nil, fmt.Errorf("unsupported panel format %q (want .csv or .json)", filepath.Ext(path))
	}
}

// batchJSONRecord embeds the record so the array objects carry the field
// names directly, with an optional reference alongside.
type batchJSONRecord struct {
	ExternalID string `json:"external_id"`
	riskengine.PatientRecord
}

func parseBatchJSON(data []byte) ([]batchEntry, error) {
	var rows []batchJSONRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse panel file: %w", err)
	}

	entries := make([]batchEntry, len(rows))
	for i, row := range rows {
		label := row.ExternalID
		if label == "" {
			label = fmt.Sprintf("record %d", i+1)
		}
		entries[i] = batchEntry{
			Label:      label,
			ExternalID: row.ExternalID,
			Record:     row.PatientRecord,
		}
	}
	return entries, nil
}

// csvColumns maps the permitted header names to record field setters. A
// header outside this set fails the whole file so a typoed column surfaces
// as an error instead of a silently zero field.
var csvColumns = map[string]func(*batchEntry, string) error{
	"external_id":          func(e *batchEntry, v string) error { e.ExternalID = v; return nil },
	"age":                  floatColumn(func(r *riskengine.PatientRecord, v float64) { r.Age = v }),
	"sex":                  sexColumn(),
	"height_cm":            floatColumn(func(r *riskengine.PatientRecord, v float64) { r.HeightCm = v }),
	"weight_kg":            floatColumn(func(r *riskengine.PatientRecord, v float64) { r.WeightKg = v }),
	"systolic_bp":          floatColumn(func(r *riskengine.PatientRecord, v float64) { r.SystolicBP = v }),
	"diastolic_bp":         floatColumn(func(r *riskengine.PatientRecord, v float64) { r.DiastolicBP = v }),
	"total_cholesterol":    floatColumn(func(r *riskengine.PatientRecord, v float64) { r.TotalCholesterol = v }),
	"hdl_cholesterol":      floatColumn(func(r *riskengine.PatientRecord, v float64) { r.HDLCholesterol = v }),
	"egfr":                 floatColumn(func(r *riskengine.PatientRecord, v float64) { r.EGFR = v }),
	"acr":                  floatColumn(func(r *riskengine.PatientRecord, v float64) { r.ACR = v }),
	"diabetes":             boolColumn(func(r *riskengine.PatientRecord, v bool) { r.Diabetes = v }),
	"smoker":               boolColumn(func(r *riskengine.PatientRecord, v bool) { r.Smoker = v }),
	"on_hypertension_meds": boolColumn(func(r *riskengine.PatientRecord, v bool) { r.OnHypertensionMeds = v }),
	"on_statins":           boolColumn(func(r *riskengine.PatientRecord, v bool) { r.OnStatins = v }),
}

func floatColumn(set func(*riskengine.PatientRecord, float64)) func(*batchEntry, string) error {
	return func(e *batchEntry, v string) error {
		if v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", v)
		}
		set(&e.Record, f)
		return nil
	}
}

func boolColumn(set func(*riskengine.PatientRecord, bool)) func(*batchEntry, string) error {
	return func(e *batchEntry, v string) error {
		if v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", v)
		}
		set(&e.Record, b)
		return nil
	}
}

func sexColumn() func(*batchEntry, string) error {
	return func(e *batchEntry, v string) error {
		if v == "" {
			return nil
		}
		sex, err := riskengine.ParseSex(v)
		if err != nil {
			return err
		}
		e.Record.Sex = sex
		return nil
	}
}

func parseBatchCSV(data []byte) ([]batchEntry, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse panel file: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("panel file needs a header row and at least one record")
	}

	header := rows[0]
	setters := make([]func(*batchEntry, string) error, len(header))
	for col, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		setter, ok := csvColumns[key]
		if !ok {
			return nil, fmt.Errorf("unknown column %q in header", name)
		}
		setters[col] = setter
	}

	entries := make([]batchEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		// Header is line 1, so the first record is line 2.
		entry := batchEntry{Label: fmt.Sprintf("row %d", i+2)}
		for col, value := range row {
			if col >= len(setters) {
				break
			}
			if err := setters[col](&entry, strings.TrimSpace(value)); err != nil {
				entry.Err = fmt.Errorf("column %q: %w", header[col], err)
				break
			}
		}
		if entry.ExternalID != "" {
			entry.Label = entry.ExternalID
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// =============================================================================
// OUTPUT FUNCTIONS
// =============================================================================

func outputBatchError(msg string, err error) {
	if batchJSONOut {
		result := map[string]interface{}{
			"success": false,
			"error":   fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// batchOutputRecord is one record in the automation JSON.
type batchOutputRecord struct {
	Reference string                     `json:"reference"`
	Error     string                     `json:"error,omitempty"`
	Result    *riskengine.RiskResult     `json:"result,omitempty"`
	Optimal   *riskengine.CardioTimeline `json:"optimal,omitempty"`
}

func outputBatchJSON(outcomes []batchOutcome, assessed, rejected int) {
	records := make([]batchOutputRecord, len(outcomes))
	for i, out := range outcomes {
		rec := batchOutputRecord{Reference: out.Entry.Label}
		if out.Err != nil {
			rec.Error = out.Err.Error()
		} else {
			result, optimal := out.Result, out.Optimal
			rec.Result = &result
			rec.Optimal = &optimal
		}
		records[i] = rec
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(map[string]interface{}{
		"engine_version": riskengine.EngineVersion,
		"assessed":       assessed,
		"rejected":       rejected,
		"total":          len(outcomes),
		"records":        records,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(riskengine.ExitError)
	}
}

func outputBatchText(outcomes []batchOutcome, assessed, rejected int) {
	if !batchQuiet {
		for _, out := range outcomes {
			if out.Err != nil {
				ux.RecordStatus(out.Entry.Label, ux.IconError, out.Err.Error())
				continue
			}
			ux.RecordStatus(out.Entry.Label, ux.IconSuccess,
				fmt.Sprintf("%s  10y CV %.1f%%  5y renal %.1f%%",
					ux.RiskBadge(string(out.Result.Level)),
					out.Result.Cardio.TenYear, out.Result.Renal.FiveYear))
		}
	}
	ux.Summary(assessed, rejected, len(outcomes))
}

// writeBatchWorkbook renders the assessed records to an XLSX file.
// Rejected rows are absent: the workbook is the clinical artifact and
// carries figures only.
func writeBatchWorkbook(path string, outcomes []batchOutcome) error {
	generatedAt := time.Now().UTC()

	rows := make([]report.Data, 0, len(outcomes))
	for _, out := range outcomes {
		if out.Err != nil {
			continue
		}
		optimal := out.Optimal
		rows = append(rows, report.Data{
			ExternalID:  out.Entry.ExternalID,
			GeneratedAt: generatedAt,
			Record:      out.Entry.Record,
			Result:      out.Result,
			Optimal:     &optimal,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create workbook file: %w", err)
	}
	if err := report.WriteBatchXLSX(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
