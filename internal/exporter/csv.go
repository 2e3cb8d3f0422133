package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// utf8BOM helps Excel recognise UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct {
	exportDir string
	logger    *slog.Logger
}

// NewCSVWriter creates a writer resolving relative paths against exportDir
func NewCSVWriter(exportDir string, logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{
		exportDir: exportDir,
		logger:    logger.With(slog.String("component", "csv_writer")),
	}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool
}

// WriteCSV writes headers and records to w
func WriteCSV(w io.Writer, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSheet writes one sheet as CSV with a UTF-8 BOM
func WriteSheet(w io.Writer, sheet Sheet) error {
	records := make([][]string, len(sheet.Rows))
	for i, row := range sheet.Rows {
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = formatValue(v)
		}
		records[i] = record
	}
	return WriteCSV(w, WriteOptions{
		Headers:   sheet.Headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// WriteSheetFile writes sheet to filePath and returns the resolved path
func (w *CSVWriter) WriteSheetFile(filePath string, sheet Sheet) (string, error) {
	fullPath := w.resolvePath(filePath)

	w.logger.Info("Writing CSV file",
		slog.String("sheet", sheet.Name),
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(sheet.Rows)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteSheet(file, sheet); err != nil {
		file.Close()
		return "", err
	}
	return fullPath, file.Close()
}

// WriteReport writes every sheet of the report as <base>_<sheet>.csv
func (w *CSVWriter) WriteReport(base string, report Report) ([]string, error) {
	paths := make([]string, 0, len(SheetKinds))
	for _, kind := range SheetKinds {
		path, err := w.WriteSheetFile(fmt.Sprintf("%s_%s.csv", base, kind), report.Sheet(kind))
		if err != nil {
			return paths, fmt.Errorf("sheet %s: %w", kind, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// resolvePath resolves a relative path against the export directory
func (w *CSVWriter) resolvePath(filePath string) string {
	if filepath.IsAbs(filePath) || w.exportDir == "" {
		return filePath
	}
	return filepath.Join(w.exportDir, filePath)
}
