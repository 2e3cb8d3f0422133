// Package exporter renders an analysed recording as tabular sheets and
// writes them as an xlsx workbook or as one CSV file per sheet.
//
// A Report holds the recording, its detected gait events and parameters.
// Report.Sheets builds the three sheets in workbook order:
//
//	Pressure     one row per sample: peak and mean kPa per foot and region,
//	             plus force and center of pressure when a force export was merged
//	Gait Events  one row per initial contact or toe off
//	Summary      temporal parameters per foot with asymmetry, then cadence,
//	             event counts, thresholds and recording details
//
// Example usage:
//
//	report := exporter.Report{Recording: rec, Thresholds: th, Events: events, Parameters: params}
//	err := exporter.WriteWorkbook(w, report)
//
//	csvWriter := exporter.NewCSVWriter("data/exports", logger)
//	path, err := csvWriter.WriteSheetFile("walk_events.csv", report.Sheet(exporter.SheetEvents))
package exporter
