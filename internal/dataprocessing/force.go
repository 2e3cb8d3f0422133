package dataprocessing

import (
	"sort"
	"strconv"
	"strings"

	"plantarcli/pkg/contracts/domain"
)

type forceColumns struct {
	time, leftForce, rightForce, leftX, leftY, rightX, rightY int
}

// ParseForce reads a force / center-of-pressure table. Columns are located by
// header keywords; rows without a numeric time are skipped.
func ParseForce(table *Table) ([]domain.ForceSample, error) {
	cols := forceColumns{time: table.TimeColumn, leftForce: -1, rightForce: -1, leftX: -1, leftY: -1, rightX: -1, rightY: -1}
	if cols.time < 0 {
		return nil, ErrMissingTimeColumn
	}

	for i, cell := range table.Header {
		h, _, _ := strings.Cut(strings.ToLower(cell), "(")
		h = strings.TrimSpace(h)
		left := strings.Contains(h, "left") || strings.HasPrefix(h, "l ")
		right := strings.Contains(h, "right") || strings.HasPrefix(h, "r ")
		cop := strings.Contains(h, "cop") || strings.Contains(h, "center of pressure")
		switch {
		case cop && left && strings.HasSuffix(h, "x"):
			cols.leftX = i
		case cop && left && strings.HasSuffix(h, "y"):
			cols.leftY = i
		case cop && right && strings.HasSuffix(h, "x"):
			cols.rightX = i
		case cop && right && strings.HasSuffix(h, "y"):
			cols.rightY = i
		case strings.Contains(h, "force") && left:
			cols.leftForce = i
		case strings.Contains(h, "force") && right:
			cols.rightForce = i
		}
	}

	samples := make([]domain.ForceSample, 0, len(table.Rows))
	for _, row := range table.Rows {
		t, ok := parseTime(row, cols.time)
		if !ok {
			continue
		}
		samples = append(samples, domain.ForceSample{
			Time:       t,
			LeftForce:  cellFloat(row, cols.leftForce),
			RightForce: cellFloat(row, cols.rightForce),
			LeftCOPX:   cellFloat(row, cols.leftX),
			LeftCOPY:   cellFloat(row, cols.leftY),
			RightCOPX:  cellFloat(row, cols.rightX),
			RightCOPY:  cellFloat(row, cols.rightY),
		})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
	return samples, nil
}

func cellFloat(row []string, col int) float64 {
	if col < 0 || col >= len(row) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0
	}
	return v
}

// AttachForce merges force samples into a recording: by index when the counts
// match, otherwise each pressure sample takes the force sample nearest in time.
func AttachForce(force []domain.ForceSample) Filter {
	return func(rec *domain.ProcessedRecording) error {
		if len(force) == 0 {
			return nil
		}
		byIndex := len(force) == len(rec.Samples)
		for i := range rec.Samples {
			var fs domain.ForceSample
			if byIndex {
				fs = force[i]
			} else {
				fs = force[nearestForce(force, rec.Samples[i].Time)]
			}
			rec.Samples[i].Force = &fs
		}
		return nil
	}
}

// nearestForce returns the index of the force sample closest to t; ties go to the earlier sample
func nearestForce(force []domain.ForceSample, t float64) int {
	i := sort.Search(len(force), func(i int) bool { return force[i].Time >= t })
	switch {
	case i == 0:
		return 0
	case i == len(force):
		return len(force) - 1
	case t-force[i-1].Time <= force[i].Time-t:
		return i - 1
	}
	return i
}
