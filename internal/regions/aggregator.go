package regions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"plantarcli/pkg/contracts/domain"
)

// UnitScale converts raw sensor units into kPa
const UnitScale = 1000.0

// Layout describes where the sensors of each foot sit inside a source row.
// Offsets are 0-based column indexes.
type Layout struct {
	SensorsPerFoot int `yaml:"sensors_per_foot" envconfig:"SENSORS_PER_FOOT" validate:"min=1"`
	// LeftOffset is the column of left sensor 1
	LeftOffset int `yaml:"left_offset" envconfig:"LEFT_OFFSET" validate:"min=0"`
	// RightStride is the distance from a left sensor column to the matching right sensor column
	RightStride int `yaml:"right_stride" envconfig:"RIGHT_STRIDE" validate:"min=1"`
}

// DefaultLayout is the time column followed by 98 left and 98 right sensors
func DefaultLayout() Layout {
	return Layout{
		SensorsPerFoot: DefaultSensorsPerFoot,
		LeftOffset:     1,
		RightStride:    DefaultSensorsPerFoot,
	}
}

// Column returns the row column of a 1-based sensor number on foot f
func (l Layout) Column(f domain.Foot, sensor int) int {
	col := l.LeftOffset + sensor - 1
	if f == domain.FootRight {
		col += l.RightStride
	}
	return col
}

// Aggregator turns rows of sensor readings into per-region pressure. It holds
// no mutable state and is safe for concurrent use.
type Aggregator struct {
	set    RegionSet
	layout Layout
}

// NewAggregator binds a resolved region set to a row layout
func NewAggregator(set RegionSet, layout Layout) (*Aggregator, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if set.SensorsPerFoot() != layout.SensorsPerFoot {
		return nil, fmt.Errorf("region set covers %d sensors, layout has %d: %w",
			set.SensorsPerFoot(), layout.SensorsPerFoot, ErrIncomplete)
	}
	if layout.RightStride < layout.SensorsPerFoot {
		return nil, fmt.Errorf("right stride %d overlaps %d left sensors", layout.RightStride, layout.SensorsPerFoot)
	}
	return &Aggregator{set: set, layout: layout}, nil
}

// Layout returns the row layout
func (a *Aggregator) Layout() Layout {
	return a.layout
}

// RegionSet returns the resolved partition
func (a *Aggregator) RegionSet() RegionSet {
	return a.set
}

// AggregateFoot aggregates one foot. readings[i] is sensor i+1 in source
// units; NaN marks a missing value.
func (a *Aggregator) AggregateFoot(readings []float64) domain.FootPressure {
	var fp domain.FootPressure
	for _, r := range domain.Regions {
		fp.SetRegion(r, aggregateRegion(readings, a.set.sensors[r]))
	}
	return fp
}

// AggregateRow aggregates both feet of a row of numeric cells. Columns past
// the end of the row count as missing.
func (a *Aggregator) AggregateRow(row []float64) (left, right domain.FootPressure) {
	return a.AggregateFoot(a.footReadings(row, domain.FootLeft)),
		a.AggregateFoot(a.footReadings(row, domain.FootRight))
}

// AggregateCells parses a row of text cells and aggregates both feet
func (a *Aggregator) AggregateCells(cells []string) (left, right domain.FootPressure) {
	row := make([]float64, len(cells))
	for i, c := range cells {
		row[i] = ParseReading(c)
	}
	return a.AggregateRow(row)
}

func (a *Aggregator) footReadings(row []float64, f domain.Foot) []float64 {
	readings := make([]float64, a.layout.SensorsPerFoot)
	for i := range readings {
		col := a.layout.Column(f, i+1)
		if col < len(row) {
			readings[i] = row[col]
		} else {
			readings[i] = math.NaN()
		}
	}
	return readings
}

func aggregateRegion(readings []float64, sensors []int) domain.RegionPressure {
	raw := make([]float64, 0, len(sensors))
	for _, id := range sensors {
		if id < 1 || id > len(readings) {
			continue
		}
		v := readings[id-1]
		if !validReading(v) {
			continue
		}
		raw = append(raw, v/UnitScale)
	}
	return Summarize(raw)
}

// Summarize computes peak and mean of kPa values that are already valid
func Summarize(raw []float64) domain.RegionPressure {
	if len(raw) == 0 {
		return domain.RegionPressure{Raw: []float64{}}
	}
	peak, sum := raw[0], 0.0
	for _, v := range raw {
		peak = max(peak, v)
		sum += v
	}
	// rounding in the sum must not push the mean above the peak
	mean := min(sum/float64(len(raw)), peak)
	return domain.RegionPressure{Peak: peak, Mean: mean, Raw: raw}
}

// validReading admits finite, non-negative readings. A negative value is a
// sensor fault and is dropped like a missing cell, so region kPa never goes
// below zero and a region whose readings are all dropped reports zero.
func validReading(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// ParseReading converts a cell into a source-unit reading, NaN when the cell
// is empty or not a number
func ParseReading(cell string) float64 {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
