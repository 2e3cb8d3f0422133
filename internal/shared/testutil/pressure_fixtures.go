package testutil

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/xuri/excelize/v2"

	"plantarcli/internal/regions"
	"plantarcli/pkg/contracts/domain"
)

// ParticipantID is written into the metadata block of every fixture export
const ParticipantID = "P-017"

// FixtureSample describes one instant of a synthetic walk in kPa. Heel drives
// the heel sensors; Toe drives the forefoot, toes and hallux sensors.
type FixtureSample struct {
	Time      float64
	LeftHeel  float64
	LeftToe   float64
	RightHeel float64
	RightToe  float64
}

var metadataBlock = [][]string{
	{"Export", "Insole pressure"},
	{"Participant ID:", ParticipantID},
	{"Date", "2025-03-14"},
	{"Sample rate", "100 Hz"},
	{"Sensors", "98"},
	{"Units", "Pa"},
	{"Trial", "1"},
	{"Condition", "level walking"},
	{"Operator", "lab"},
}

// PressureHeader returns the header row of the default layout
func PressureHeader() []string {
	header := []string{"Time (s)"}
	for _, side := range []string{"L", "R"} {
		for i := 1; i <= regions.DefaultSensorsPerFoot; i++ {
			header = append(header, side+strconv.Itoa(i))
		}
	}
	return header
}

// PressureRow renders one sample in source units in the default layout
func PressureRow(s FixtureSample) []string {
	row := make([]string, 1+2*regions.DefaultSensorsPerFoot)
	row[0] = strconv.FormatFloat(s.Time, 'f', -1, 64)
	set := regions.Default()
	for _, foot := range domain.Feet {
		heel, toe := s.LeftHeel, s.LeftToe
		if foot == domain.FootRight {
			heel, toe = s.RightHeel, s.RightToe
		}
		for sensor := 1; sensor <= regions.DefaultSensorsPerFoot; sensor++ {
			r, _ := set.RegionOf(sensor)
			value := 0.0
			switch r {
			case domain.RegionHeel:
				value = heel
			case domain.RegionForefoot, domain.RegionToes, domain.RegionHallux:
				value = toe
			}
			row[regions.DefaultLayout().Column(foot, sensor)] = strconv.FormatFloat(value*regions.UnitScale, 'f', -1, 64)
		}
	}
	return row
}

// PressureRows returns the full export: metadata block, header and samples
func PressureRows(samples []FixtureSample) [][]string {
	rows := make([][]string, 0, len(metadataBlock)+1+len(samples))
	rows = append(rows, metadataBlock...)
	rows = append(rows, PressureHeader())
	for _, s := range samples {
		rows = append(rows, PressureRow(s))
	}
	return rows
}

// PressureCSV renders the export as csv bytes
func PressureCSV(t *testing.T, samples []FixtureSample) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(PressureRows(samples)); err != nil {
		t.Fatalf("write csv fixture: %v", err)
	}
	return buf.Bytes()
}

// WritePressureWorkbook saves the export as an xlsx file in dir and returns its path
func WritePressureWorkbook(t *testing.T, dir, name string, samples []FixtureSample) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Pressure"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	for i, row := range PressureRows(samples) {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

// WorkbookBytes renders the export as xlsx bytes
func WorkbookBytes(t *testing.T, samples []FixtureSample) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range PressureRows(samples) {
		cells := make([]interface{}, len(row))
		for j, c := range row {
			cells[j] = c
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			t.Fatalf("write row %d: %v", i, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("render workbook: %v", err)
	}
	return buf.Bytes()
}

// Walk builds a symmetric walk of n cycles sampled every dt seconds. A cycle
// lasts cycleSamples samples; each foot is loaded for 60% of it and the right
// foot trails the left by half a cycle. Toe loading trails heel loading by a
// tenth of a cycle.
func Walk(n, cycleSamples int, dt float64) []FixtureSample {
	samples := make([]FixtureSample, 0, n*cycleSamples+1)
	half, tenth := cycleSamples/2, cycleSamples/10
	for i := 0; i <= n*cycleSamples; i++ {
		samples = append(samples, FixtureSample{
			Time:      roundTime(float64(i) * dt),
			LeftHeel:  contactPressure(i, cycleSamples, 0),
			LeftToe:   contactPressure(i, cycleSamples, tenth),
			RightHeel: contactPressure(i, cycleSamples, half),
			RightToe:  contactPressure(i, cycleSamples, half+tenth),
		})
	}
	return samples
}

// contactPressure is 40 kPa for the first 60% of every cycle after offset
func contactPressure(i, cycleSamples, offset int) float64 {
	if i < offset {
		return 0
	}
	if phase := (i - offset) % cycleSamples; 5*phase < 3*cycleSamples {
		return 40
	}
	return 0
}

func roundTime(t float64) float64 {
	v, _ := strconv.ParseFloat(fmt.Sprintf("%.6f", t), 64)
	return v
}

// Recording builds a processed recording directly from fixture samples
func Recording(id string, samples []FixtureSample) *domain.ProcessedRecording {
	rec := &domain.ProcessedRecording{ID: id, FileName: id + ".xlsx"}
	for _, s := range samples {
		ps := domain.PressureSample{Time: s.Time}
		ps.Left = footPressure(s.LeftHeel, s.LeftToe)
		ps.Right = footPressure(s.RightHeel, s.RightToe)
		rec.Samples = append(rec.Samples, ps)
	}
	return rec
}

func footPressure(heel, toe float64) domain.FootPressure {
	var fp domain.FootPressure
	fp.Heel = regions.Summarize([]float64{heel})
	fp.Forefoot = regions.Summarize([]float64{toe})
	fp.Toes = regions.Summarize([]float64{toe})
	fp.Hallux = regions.Summarize([]float64{toe})
	fp.MedialMidfoot = regions.Summarize(nil)
	fp.LateralMidfoot = regions.Summarize(nil)
	return fp
}

// TimedRecording builds a recording whose heel peaks follow values at the given times
func TimedRecording(id string, times, heel []float64) *domain.ProcessedRecording {
	samples := make([]FixtureSample, len(times))
	for i := range times {
		samples[i] = FixtureSample{Time: times[i], LeftHeel: heel[i]}
	}
	return Recording(id, samples)
}
