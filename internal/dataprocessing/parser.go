package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	// DefaultMetadataRows is the number of metadata rows above the header row
	DefaultMetadataRows = 9
	// DetectHeader makes the parser use the first row with a time column as header
	DetectHeader = -1
)

var (
	ErrMissingTimeColumn = errors.New("no time column found in header")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoHeaderRow       = errors.New("file has no header row")
)

// Table is the raw content of one export sheet: metadata block, header and
// sample rows, still as text cells.
type Table struct {
	SheetName  string
	Metadata   map[string]string
	Header     []string
	Rows       [][]string
	TimeColumn int
}

// ParticipantID returns the participant identifier found in the metadata block
func (t *Table) ParticipantID() string {
	for _, key := range slices.Sorted(maps.Keys(t.Metadata)) {
		k := strings.ToLower(key)
		if strings.Contains(k, "participant") || strings.Contains(k, "subject") || strings.Contains(k, "patient") {
			return t.Metadata[key]
		}
	}
	return ""
}

// Parser reads xlsx and csv pressure exports into Tables
type Parser struct {
	metadataRows int
	logger       *slog.Logger
}

// NewParser creates a parser. metadataRows is the count of rows above the
// header, or DetectHeader.
func NewParser(metadataRows int, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if metadataRows < 0 {
		metadataRows = DetectHeader
	}
	return &Parser{metadataRows: metadataRows, logger: logger.With(slog.String("component", "parser"))}
}

// ParseFile opens path and parses it according to its extension
func (p *Parser) ParseFile(ctx context.Context, path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return p.Parse(ctx, filepath.Base(path), f)
}

// Parse reads an export from r. name is only used to pick the format.
func (p *Parser) Parse(ctx context.Context, name string, r io.Reader) (*Table, error) {
	var (
		rows      [][]string
		sheetName string
		err       error
	)

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		rows, sheetName, err = p.readWorkbook(r)
	case ".csv", ".txt":
		rows, err = readDelimited(r)
		sheetName = strings.TrimSuffix(name, filepath.Ext(name))
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}

	table, err := p.split(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	table.SheetName = sheetName

	p.logger.InfoContext(ctx, "parsed export",
		slog.String("file", name),
		slog.String("sheet", sheetName),
		slog.Int("metadata_entries", len(table.Metadata)),
		slog.Int("columns", len(table.Header)),
		slog.Int("rows", len(table.Rows)))

	return table, nil
}

// readWorkbook picks the pressure sheet: a sheet with a well-known name, else
// the first sheet whose header row has a time column.
func (p *Parser) readWorkbook(r io.Reader) ([][]string, string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, name := range []string{"Pressure", "pressure", "Data", "data"} {
		for _, sheet := range sheets {
			if sheet != name {
				continue
			}
			if rows, err := f.GetRows(sheet); err == nil {
				return rows, sheet, nil
			}
		}
	}

	var fallback [][]string
	var fallbackName string
	for _, sheet := range sheets {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if fallback == nil {
			fallback, fallbackName = rows, sheet
		}
		if p.headerRow(rows) >= 0 {
			return rows, sheet, nil
		}
	}
	if fallback == nil {
		return nil, "", ErrNoHeaderRow
	}
	return fallback, fallbackName, nil
}

func readDelimited(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	// strip a UTF-8 BOM written by spreadsheet tools
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// headerRow returns the index of the header row when it has a time column, else -1
func (p *Parser) headerRow(rows [][]string) int {
	if p.metadataRows == DetectHeader {
		for i, row := range rows {
			if findTimeColumn(row) >= 0 {
				return i
			}
		}
		return -1
	}
	if len(rows) > p.metadataRows && findTimeColumn(rows[p.metadataRows]) >= 0 {
		return p.metadataRows
	}
	return -1
}

func (p *Parser) split(rows [][]string) (*Table, error) {
	if p.metadataRows != DetectHeader && len(rows) <= p.metadataRows {
		return nil, ErrNoHeaderRow
	}
	if len(rows) == 0 {
		return nil, ErrNoHeaderRow
	}
	idx := p.headerRow(rows)
	if idx < 0 {
		return nil, ErrMissingTimeColumn
	}
	header := rows[idx]
	return &Table{
		Metadata:   parseMetadata(rows[:idx]),
		Header:     header,
		Rows:       rows[idx+1:],
		TimeColumn: findTimeColumn(header),
	}, nil
}

func findTimeColumn(header []string) int {
	for i, cell := range header {
		if strings.Contains(strings.ToLower(strings.TrimSpace(cell)), "time") {
			return i
		}
	}
	return -1
}

// parseMetadata reads "key, value" or "key: value" pairs from the metadata block
func parseMetadata(rows [][]string) map[string]string {
	meta := make(map[string]string)
	for _, row := range rows {
		var cells []string
		for _, c := range row {
			if c = strings.TrimSpace(c); c != "" {
				cells = append(cells, c)
			}
		}
		switch {
		case len(cells) == 0:
			continue
		case len(cells) == 1:
			if key, value, ok := strings.Cut(cells[0], ":"); ok {
				meta[strings.TrimSpace(key)] = strings.TrimSpace(value)
			}
		default:
			key := strings.TrimSpace(strings.TrimSuffix(cells[0], ":"))
			meta[key] = strings.Join(cells[1:], " ")
		}
	}
	return meta
}
