package domain

import (
	"maps"
	"slices"
)

// Foot identifies the insole a reading belongs to
type Foot string

const (
	FootLeft  Foot = "left"
	FootRight Foot = "right"
)

// Feet lists both feet in processing order
var Feet = []Foot{FootLeft, FootRight}

// Opposite returns the other foot
func (f Foot) Opposite() Foot {
	if f == FootLeft {
		return FootRight
	}
	return FootLeft
}

// Region is an anatomical zone of the foot sole
type Region string

const (
	RegionHeel           Region = "heel"
	RegionMedialMidfoot  Region = "medialMidfoot"
	RegionLateralMidfoot Region = "lateralMidfoot"
	RegionForefoot       Region = "forefoot"
	RegionToes           Region = "toes"
	RegionHallux         Region = "hallux"
)

// Regions lists every region in display order (heel to hallux)
var Regions = []Region{
	RegionHeel,
	RegionMedialMidfoot,
	RegionLateralMidfoot,
	RegionForefoot,
	RegionToes,
	RegionHallux,
}

// IsValid reports whether r names one of the six known regions
func (r Region) IsValid() bool {
	return slices.Contains(Regions, r)
}

// RegionPressure holds the aggregated pressure of one region at one instant.
// Raw only contains valid readings, so Peak == max(Raw) and Mean == avg(Raw).
type RegionPressure struct {
	Peak float64   `json:"peak"`
	Mean float64   `json:"mean"`
	Raw  []float64 `json:"raw"`
}

// Clone returns a copy that shares no memory with rp
func (rp RegionPressure) Clone() RegionPressure {
	return RegionPressure{Peak: rp.Peak, Mean: rp.Mean, Raw: slices.Clone(rp.Raw)}
}

// Equal reports value equality including every raw reading
func (rp RegionPressure) Equal(other RegionPressure) bool {
	return rp.Peak == other.Peak && rp.Mean == other.Mean && slices.Equal(rp.Raw, other.Raw)
}

// FootPressure holds the six regions of one foot
type FootPressure struct {
	Heel           RegionPressure `json:"heel"`
	MedialMidfoot  RegionPressure `json:"medialMidfoot"`
	LateralMidfoot RegionPressure `json:"lateralMidfoot"`
	Forefoot       RegionPressure `json:"forefoot"`
	Toes           RegionPressure `json:"toes"`
	Hallux         RegionPressure `json:"hallux"`
}

// Region returns the pressure of region r, or the zero value for unknown regions
func (fp *FootPressure) Region(r Region) RegionPressure {
	if p := fp.slot(r); p != nil {
		return *p
	}
	return RegionPressure{}
}

// SetRegion stores the pressure for region r; unknown regions are ignored
func (fp *FootPressure) SetRegion(r Region, rp RegionPressure) {
	if p := fp.slot(r); p != nil {
		*p = rp
	}
}

func (fp *FootPressure) slot(r Region) *RegionPressure {
	switch r {
	case RegionHeel:
		return &fp.Heel
	case RegionMedialMidfoot:
		return &fp.MedialMidfoot
	case RegionLateralMidfoot:
		return &fp.LateralMidfoot
	case RegionForefoot:
		return &fp.Forefoot
	case RegionToes:
		return &fp.Toes
	case RegionHallux:
		return &fp.Hallux
	}
	return nil
}

// MaxPeak returns the highest region peak of the foot
func (fp *FootPressure) MaxPeak() float64 {
	maxPeak := 0.0
	for _, r := range Regions {
		maxPeak = max(maxPeak, fp.Region(r).Peak)
	}
	return maxPeak
}

// MaxMean returns the highest region mean of the foot
func (fp *FootPressure) MaxMean() float64 {
	maxMean := 0.0
	for _, r := range Regions {
		maxMean = max(maxMean, fp.Region(r).Mean)
	}
	return maxMean
}

// EmptyRegions lists the regions whose stats are zero only because no
// sensor produced a valid reading
func (fp *FootPressure) EmptyRegions() []Region {
	var empty []Region
	for _, r := range Regions {
		if len(fp.Region(r).Raw) == 0 {
			empty = append(empty, r)
		}
	}
	return empty
}

// ToePeak is the toe-off signal: the larger of the toes and hallux peaks
func (fp *FootPressure) ToePeak() float64 {
	return max(fp.Toes.Peak, fp.Hallux.Peak)
}

// Clone returns a deep copy
func (fp FootPressure) Clone() FootPressure {
	var out FootPressure
	for _, r := range Regions {
		out.SetRegion(r, fp.Region(r).Clone())
	}
	return out
}

// Equal compares every region
func (fp FootPressure) Equal(other FootPressure) bool {
	for _, r := range Regions {
		if !fp.Region(r).Equal(other.Region(r)) {
			return false
		}
	}
	return true
}

// ForceSample is one row of the optional force / center-of-pressure export
type ForceSample struct {
	Time       float64 `json:"time"`
	LeftForce  float64 `json:"left_force"`
	RightForce float64 `json:"right_force"`
	LeftCOPX   float64 `json:"left_cop_x"`
	LeftCOPY   float64 `json:"left_cop_y"`
	RightCOPX  float64 `json:"right_cop_x"`
	RightCOPY  float64 `json:"right_cop_y"`
}

// PressureSample is one time instant of the recording
type PressureSample struct {
	Time  float64      `json:"time"`
	Left  FootPressure `json:"left"`
	Right FootPressure `json:"right"`
	Force *ForceSample `json:"force,omitempty"`
}

// Foot returns the pressure of the requested foot
func (s *PressureSample) Foot(f Foot) *FootPressure {
	if f == FootRight {
		return &s.Right
	}
	return &s.Left
}

// MaxPeak is the largest region peak across both feet
func (s *PressureSample) MaxPeak() float64 {
	return max(s.Left.MaxPeak(), s.Right.MaxPeak())
}

// MaxMean is the largest region mean across both feet
func (s *PressureSample) MaxMean() float64 {
	return max(s.Left.MaxMean(), s.Right.MaxMean())
}

// Clone returns a deep copy
func (s PressureSample) Clone() PressureSample {
	out := PressureSample{
		Time:  s.Time,
		Left:  s.Left.Clone(),
		Right: s.Right.Clone(),
	}
	if s.Force != nil {
		force := *s.Force
		out.Force = &force
	}
	return out
}

// Equal compares time, both feet and the merged force sample
func (s PressureSample) Equal(other PressureSample) bool {
	if s.Time != other.Time || !s.Left.Equal(other.Left) || !s.Right.Equal(other.Right) {
		return false
	}
	if (s.Force == nil) != (other.Force == nil) {
		return false
	}
	return s.Force == nil || *s.Force == *other.Force
}

// ScaleBounds are the display maxima of a recording
type ScaleBounds struct {
	// MaxPeakPressure is the outlier-capped peak maximum
	MaxPeakPressure float64 `json:"max_peak_pressure"`
	// RawMaxPeakPressure is the uncapped global peak maximum
	RawMaxPeakPressure float64 `json:"raw_max_peak_pressure"`
	MaxMeanPressure    float64 `json:"max_mean_pressure"`
}

// ProcessedRecording is one loaded pressure export after region aggregation.
// A recording is never mutated once published; transformations work on a Clone.
type ProcessedRecording struct {
	ID            string            `json:"id"`
	Revision      int               `json:"revision"`
	FileName      string            `json:"file_name,omitempty"`
	ParticipantID string            `json:"participant_id,omitempty"`
	Checksum      string            `json:"checksum,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	SkippedRows   int               `json:"skipped_rows"`
	Samples       []PressureSample  `json:"samples"`
	ScaleBounds
}

// Len returns the number of samples
func (r *ProcessedRecording) Len() int {
	return len(r.Samples)
}

// StartTime is the time of the first sample, or 0 when empty
func (r *ProcessedRecording) StartTime() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[0].Time
}

// EndTime is the time of the last sample, or 0 when empty
func (r *ProcessedRecording) EndTime() float64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[len(r.Samples)-1].Time
}

// Duration is last sample time minus first sample time
func (r *ProcessedRecording) Duration() float64 {
	return r.EndTime() - r.StartTime()
}

// Clone returns a structural deep copy sharing no memory with r
func (r *ProcessedRecording) Clone() *ProcessedRecording {
	if r == nil {
		return nil
	}
	out := *r
	out.Metadata = maps.Clone(r.Metadata)
	out.Samples = make([]PressureSample, len(r.Samples))
	for i := range r.Samples {
		out.Samples[i] = r.Samples[i].Clone()
	}
	return &out
}

// Equal is the deep-equality contract used for copy-on-write checks: every
// scalar field, the metadata and every sample must match.
func (r *ProcessedRecording) Equal(other *ProcessedRecording) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.ID != other.ID ||
		r.Revision != other.Revision ||
		r.FileName != other.FileName ||
		r.ParticipantID != other.ParticipantID ||
		r.Checksum != other.Checksum ||
		r.SkippedRows != other.SkippedRows ||
		r.ScaleBounds != other.ScaleBounds {
		return false
	}
	if !maps.Equal(r.Metadata, other.Metadata) {
		return false
	}
	return slices.EqualFunc(r.Samples, other.Samples, func(a, b PressureSample) bool {
		return a.Equal(b)
	})
}
