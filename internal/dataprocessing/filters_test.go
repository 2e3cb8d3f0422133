package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantarcli/internal/regions"
	"plantarcli/internal/shared/testutil"
	"plantarcli/pkg/contracts/domain"
)

func TestTrimRange(t *testing.T) {
	rec := testutil.TimedRecording("r", []float64{0, 0.5, 1, 1.5, 2}, []float64{1, 2, 3, 4, 5})

	require.NoError(t, TrimRange(0.5, 1.5)(rec))
	require.Len(t, rec.Samples, 3)
	assert.Equal(t, 0.5, rec.StartTime())
	assert.Equal(t, 1.5, rec.EndTime())

	err := TrimRange(2, 1)(rec)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestNoiseFloor(t *testing.T) {
	rec := &domain.ProcessedRecording{Samples: []domain.PressureSample{{Time: 0}}}
	rec.Samples[0].Left.Heel = regions.Summarize([]float64{1, 5, 9})
	rec.Samples[0].Right.Toes = regions.Summarize([]float64{0.5, 0.2})

	require.NoError(t, NoiseFloor(2)(rec))

	heel := rec.Samples[0].Left.Heel
	assert.Equal(t, []float64{5, 9}, heel.Raw)
	assert.Equal(t, 9.0, heel.Peak)
	assert.Equal(t, 7.0, heel.Mean)

	toes := rec.Samples[0].Right.Toes
	assert.Empty(t, toes.Raw)
	assert.Zero(t, toes.Peak)
	assert.Zero(t, toes.Mean)

	assert.ErrorIs(t, NoiseFloor(-1)(rec), ErrInvalidFilter)
}

func TestChainStopsAtFirstError(t *testing.T) {
	rec := testutil.TimedRecording("r", []float64{0, 1, 2}, []float64{1, 2, 3})
	calls := 0
	counting := func(*domain.ProcessedRecording) error { calls++; return nil }

	err := Chain(counting, TrimRange(3, 1), counting)(rec)
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Equal(t, 1, calls)
}

func TestChecksum(t *testing.T) {
	a := Checksum([]byte("pressure"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, Checksum([]byte("pressure")))
	assert.NotEqual(t, a, Checksum([]byte("pressure!")))
}
