package exporter

import (
	"fmt"
	"strings"

	"plantarcli/pkg/contracts/domain"
)

// SheetKind identifies one of the exported sheets
type SheetKind string

const (
	SheetPressure SheetKind = "pressure"
	SheetEvents   SheetKind = "events"
	SheetSummary  SheetKind = "summary"
)

// SheetKinds lists the sheets in workbook order
var SheetKinds = []SheetKind{SheetPressure, SheetEvents, SheetSummary}

// Title returns the worksheet name
func (k SheetKind) Title() string {
	switch k {
	case SheetEvents:
		return "Gait Events"
	case SheetSummary:
		return "Summary"
	default:
		return "Pressure"
	}
}

// ParseSheetKind accepts the short sheet names used by the API and CLI
func ParseSheetKind(s string) (SheetKind, error) {
	for _, k := range SheetKinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sheet %q", s)
}

// Sheet is one rendered table. Row cells are string, float64 or int;
// a nil cell stays empty.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Report is everything exported for one recording
type Report struct {
	Recording  *domain.ProcessedRecording
	Thresholds domain.GaitEventThresholds
	Events     []domain.GaitEvent
	Parameters domain.GaitParameters
}

// Sheets renders every sheet in workbook order
func (r Report) Sheets() []Sheet {
	sheets := make([]Sheet, 0, len(SheetKinds))
	for _, k := range SheetKinds {
		sheets = append(sheets, r.Sheet(k))
	}
	return sheets
}

// Sheet renders a single sheet
func (r Report) Sheet(kind SheetKind) Sheet {
	switch kind {
	case SheetEvents:
		return r.eventsSheet()
	case SheetSummary:
		return r.summarySheet()
	default:
		return r.pressureSheet()
	}
}

var regionTitles = map[domain.Region]string{
	domain.RegionHeel:           "Heel",
	domain.RegionMedialMidfoot:  "Medial Midfoot",
	domain.RegionLateralMidfoot: "Lateral Midfoot",
	domain.RegionForefoot:       "Forefoot",
	domain.RegionToes:           "Toes",
	domain.RegionHallux:         "Hallux",
}

func footTitle(f domain.Foot) string {
	if f == domain.FootRight {
		return "Right"
	}
	return "Left"
}

var forceHeaders = []string{
	"Left Force (N)", "Right Force (N)",
	"Left COP X", "Left COP Y",
	"Right COP X", "Right COP Y",
}

func (r Report) pressureSheet() Sheet {
	headers := []string{"Time (s)"}
	for _, f := range domain.Feet {
		for _, reg := range domain.Regions {
			prefix := footTitle(f) + " " + regionTitles[reg]
			headers = append(headers, prefix+" Peak (kPa)", prefix+" Mean (kPa)")
		}
	}

	sheet := Sheet{Name: SheetPressure.Title()}
	if r.Recording == nil {
		sheet.Headers = headers
		return sheet
	}

	withForce := hasForce(r.Recording)
	if withForce {
		headers = append(headers, forceHeaders...)
	}
	sheet.Headers = headers
	sheet.Rows = make([][]interface{}, 0, r.Recording.Len())

	for i := range r.Recording.Samples {
		s := &r.Recording.Samples[i]
		row := make([]interface{}, 0, len(headers))
		row = append(row, s.Time)
		for _, f := range domain.Feet {
			fp := s.Foot(f)
			for _, reg := range domain.Regions {
				rp := fp.Region(reg)
				row = append(row, rp.Peak, rp.Mean)
			}
		}
		if withForce {
			if s.Force != nil {
				row = append(row, s.Force.LeftForce, s.Force.RightForce,
					s.Force.LeftCOPX, s.Force.LeftCOPY,
					s.Force.RightCOPX, s.Force.RightCOPY)
			} else {
				row = append(row, nil, nil, nil, nil, nil, nil)
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

func hasForce(rec *domain.ProcessedRecording) bool {
	for i := range rec.Samples {
		if rec.Samples[i].Force != nil {
			return true
		}
	}
	return false
}

func (r Report) eventsSheet() Sheet {
	sheet := Sheet{
		Name:    SheetEvents.Title(),
		Headers: []string{"Time (s)", "Event", "Foot", "Sample Index"},
		Rows:    make([][]interface{}, 0, len(r.Events)),
	}
	for _, e := range r.Events {
		sheet.Rows = append(sheet.Rows, []interface{}{e.Time, eventTitle(e.Type), footTitle(e.Foot), e.SampleIndex})
	}
	return sheet
}

func eventTitle(t domain.GaitEventType) string {
	if t == domain.GaitEventToeOff {
		return "Toe Off"
	}
	return "Initial Contact"
}

func (r Report) summarySheet() Sheet {
	p := r.Parameters
	sheet := Sheet{
		Name: SheetSummary.Title(),
		Headers: []string{
			"Parameter",
			"Left Avg (s)", "Left Std (s)",
			"Right Avg (s)", "Right Std (s)",
			"Asymmetry (%)", "Asymmetry Class",
		},
	}

	params := []struct {
		name  string
		value domain.GaitParameter
	}{
		{"Step Time", p.StepTime},
		{"Stride Time", p.StrideTime},
		{"Stance Time", p.StanceTime},
	}
	for _, gp := range params {
		sheet.Rows = append(sheet.Rows, []interface{}{
			gp.name,
			gp.value.Left.Avg, gp.value.Left.Std,
			gp.value.Right.Avg, gp.value.Right.Std,
			gp.value.AsymmetryPercent, string(gp.value.AsymmetryClass),
		})
	}

	sheet.Rows = append(sheet.Rows,
		[]interface{}{},
		[]interface{}{"Cadence (steps/min)", p.Cadence},
		[]interface{}{"Initial Contacts", p.InitialContactCount},
		[]interface{}{"Toe Offs", p.ToeOffCount},
		[]interface{}{"Duration (s)", p.Duration},
		[]interface{}{"Initial Contact Threshold (kPa)", r.Thresholds.InitialContact},
		[]interface{}{"Toe Off Threshold (kPa)", r.Thresholds.ToeOff},
	)

	if rec := r.Recording; rec != nil {
		sheet.Rows = append(sheet.Rows,
			[]interface{}{"Recording", rec.ID},
			[]interface{}{"File", rec.FileName},
			[]interface{}{"Participant", rec.ParticipantID},
			[]interface{}{"Revision", rec.Revision},
			[]interface{}{"Skipped Rows", rec.SkippedRows},
		)
	}
	return sheet
}
