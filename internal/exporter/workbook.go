package exporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// defaultSheet is the sheet every new excelize file starts with
const defaultSheet = "Sheet1"

// WriteWorkbook writes every sheet of the report into one xlsx workbook
func WriteWorkbook(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range report.Sheets() {
		index, err := f.NewSheet(sheet.Name)
		if err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet.Name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return fmt.Errorf("sheet %s: %w", sheet.Name, err)
		}
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("failed to delete default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WorkbookBytes renders the workbook in memory
func WorkbookBytes(report Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteWorkbook(&buf, report); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWorkbookFile writes the workbook to path, creating its directory
func WriteWorkbookFile(path string, report Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteWorkbook(file, report); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// writeSheet streams the rows; the pressure sheet of a long walk has
// tens of thousands of rows
func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(sheet.Name)
	if err != nil {
		return fmt.Errorf("failed to open stream writer: %w", err)
	}
	if len(sheet.Headers) > 0 {
		if err := sw.SetColWidth(1, len(sheet.Headers), 16); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze panes: %w", err)
	}

	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	return sw.Flush()
}
