package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecording() *ProcessedRecording {
	rec := &ProcessedRecording{
		ID:            "rec-1",
		FileName:      "trial.xlsx",
		ParticipantID: "P-1",
		Metadata:      map[string]string{"Sample rate": "100 Hz"},
		Samples: []PressureSample{
			{Time: 0},
			{Time: 0.5, Force: &ForceSample{Time: 0.5, LeftForce: 320}},
		},
		ScaleBounds: ScaleBounds{MaxPeakPressure: 40, RawMaxPeakPressure: 55, MaxMeanPressure: 20},
	}
	rec.Samples[0].Left.Heel = RegionPressure{Peak: 3, Mean: 2, Raw: []float64{1, 2, 3}}
	rec.Samples[1].Right.Hallux = RegionPressure{Peak: 5, Mean: 5, Raw: []float64{5}}
	return rec
}

func TestRecordingCloneSharesNoMemory(t *testing.T) {
	orig := sampleRecording()
	clone := orig.Clone()
	require.True(t, orig.Equal(clone))

	clone.Samples[0].Left.Heel.Raw[0] = 99
	clone.Samples[1].Force.LeftForce = 1
	clone.Metadata["Sample rate"] = "50 Hz"
	clone.Samples = append(clone.Samples, PressureSample{Time: 1})

	assert.Equal(t, 1.0, orig.Samples[0].Left.Heel.Raw[0])
	assert.Equal(t, 320.0, orig.Samples[1].Force.LeftForce)
	assert.Equal(t, "100 Hz", orig.Metadata["Sample rate"])
	assert.Len(t, orig.Samples, 2)
	assert.False(t, orig.Equal(clone))
}

func TestRecordingEqual(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ProcessedRecording)
	}{
		{"revision", func(r *ProcessedRecording) { r.Revision++ }},
		{"bounds", func(r *ProcessedRecording) { r.MaxPeakPressure = 1 }},
		{"metadata", func(r *ProcessedRecording) { r.Metadata["Extra"] = "x" }},
		{"raw value", func(r *ProcessedRecording) { r.Samples[0].Left.Heel.Raw[2] = 4 }},
		{"force dropped", func(r *ProcessedRecording) { r.Samples[1].Force = nil }},
		{"skipped rows", func(r *ProcessedRecording) { r.SkippedRows = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sampleRecording()
			b := a.Clone()
			tt.mutate(b)
			assert.False(t, a.Equal(b))
		})
	}

	var nilRec *ProcessedRecording
	assert.True(t, nilRec.Equal(nil))
	assert.False(t, nilRec.Equal(sampleRecording()))
	assert.Nil(t, nilRec.Clone())
}

func TestRecordingTimeBounds(t *testing.T) {
	rec := sampleRecording()
	assert.Equal(t, 0.0, rec.StartTime())
	assert.Equal(t, 0.5, rec.EndTime())
	assert.Equal(t, 0.5, rec.Duration())

	empty := &ProcessedRecording{}
	assert.Zero(t, empty.Duration())
	assert.Zero(t, empty.Len())
}

func TestFootPressureAccessors(t *testing.T) {
	var fp FootPressure
	fp.SetRegion(RegionToes, RegionPressure{Peak: 7, Mean: 4})
	fp.SetRegion(RegionHallux, RegionPressure{Peak: 9, Mean: 9})
	fp.SetRegion("ankle", RegionPressure{Peak: 100})

	assert.Equal(t, 7.0, fp.Region(RegionToes).Peak)
	assert.Equal(t, RegionPressure{}, fp.Region("ankle"))
	assert.Equal(t, 9.0, fp.ToePeak())
	assert.Equal(t, 9.0, fp.MaxPeak())
	assert.Equal(t, 9.0, fp.MaxMean())
	assert.False(t, Region("ankle").IsValid())
	assert.Equal(t, FootRight, FootLeft.Opposite())
}

func TestEmptyRegionsFlagsMissingData(t *testing.T) {
	rec := sampleRecording()
	left := rec.Samples[0].Left
	assert.NotContains(t, left.EmptyRegions(), RegionHeel)
	assert.Len(t, left.EmptyRegions(), len(Regions)-1)

	// a zero reading is data, not a gap
	var fp FootPressure
	for _, r := range Regions {
		fp.SetRegion(r, RegionPressure{Raw: []float64{0}})
	}
	assert.Empty(t, fp.EmptyRegions())
}

func TestThresholdPresets(t *testing.T) {
	std, err := ThresholdsForPreset("")
	require.NoError(t, err)
	assert.Equal(t, GaitEventThresholds{InitialContact: 15, ToeOff: 10}, std)

	legacy, err := ThresholdsForPreset(PresetLegacy)
	require.NoError(t, err)
	assert.Equal(t, GaitEventThresholds{InitialContact: 25, ToeOff: 20}, legacy)

	_, err = ThresholdsForPreset("aggressive")
	assert.ErrorIs(t, err, ErrUnknownPreset)

	assert.Equal(t, GaitEventThresholds{InitialContact: 18, ToeOff: 20}, legacy.WithOverrides(18, 0))
}
