package regions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantarcli/pkg/contracts/domain"
)

func TestDefaultRegionSet(t *testing.T) {
	set := Default()
	require.NoError(t, set.Validate())

	expected := map[domain.Region]int{
		domain.RegionHeel:           25,
		domain.RegionMedialMidfoot:  16,
		domain.RegionLateralMidfoot: 12,
		domain.RegionForefoot:       28,
		domain.RegionToes:           12,
		domain.RegionHallux:         5,
	}
	assert.Equal(t, expected, set.Sizes())
	assert.Equal(t, DefaultSensorsPerFoot, set.SensorsPerFoot())

	tests := []struct {
		sensor int
		region domain.Region
	}{
		{1, domain.RegionHeel},
		{25, domain.RegionHeel},
		{26, domain.RegionMedialMidfoot},
		{42, domain.RegionLateralMidfoot},
		{54, domain.RegionForefoot},
		{82, domain.RegionToes},
		{94, domain.RegionHallux},
		{98, domain.RegionHallux},
	}
	for _, tt := range tests {
		r, ok := set.RegionOf(tt.sensor)
		require.True(t, ok, "sensor %d", tt.sensor)
		assert.Equal(t, tt.region, r, "sensor %d", tt.sensor)
	}

	_, ok := set.RegionOf(99)
	assert.False(t, ok)
}

func TestWithOverrides(t *testing.T) {
	base := Default()

	t.Run("reassigns sensors and stays disjoint", func(t *testing.T) {
		resolved, err := base.WithOverrides(map[int]domain.Region{
			26: domain.RegionHeel,
			94: domain.RegionToes,
		})
		require.NoError(t, err)

		sizes := resolved.Sizes()
		assert.Equal(t, 26, sizes[domain.RegionHeel])
		assert.Equal(t, 15, sizes[domain.RegionMedialMidfoot])
		assert.Equal(t, 13, sizes[domain.RegionToes])
		assert.Equal(t, 4, sizes[domain.RegionHallux])

		r, _ := resolved.RegionOf(26)
		assert.Equal(t, domain.RegionHeel, r)
	})

	t.Run("base set is untouched", func(t *testing.T) {
		_, err := base.WithOverrides(map[int]domain.Region{1: domain.RegionHallux})
		require.NoError(t, err)
		r, _ := base.RegionOf(1)
		assert.Equal(t, domain.RegionHeel, r)
	})

	t.Run("empty overrides keep the partition", func(t *testing.T) {
		resolved, err := base.WithOverrides(nil)
		require.NoError(t, err)
		assert.Equal(t, base.Sizes(), resolved.Sizes())
	})

	errCases := []struct {
		name      string
		overrides map[int]domain.Region
		expected  error
	}{
		{"sensor zero", map[int]domain.Region{0: domain.RegionHeel}, ErrSensorOutOfRange},
		{"sensor past end", map[int]domain.Region{99: domain.RegionHeel}, ErrSensorOutOfRange},
		{"unknown region", map[int]domain.Region{5: "ankle"}, ErrUnknownRegion},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := base.WithOverrides(tc.overrides)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestParseOverrides(t *testing.T) {
	doc := []byte("overrides:\n  26: heel\n  94: toes\n")
	overrides, err := ParseOverrides(doc)
	require.NoError(t, err)
	assert.Equal(t, map[int]domain.Region{26: domain.RegionHeel, 94: domain.RegionToes}, overrides)

	_, err = ParseOverrides([]byte("overrides:\n  3: knee\n"))
	assert.ErrorIs(t, err, ErrUnknownRegion)

	_, err = ParseOverrides([]byte("overrides: [1, 2"))
	assert.Error(t, err)
}

func TestLoadOverridesMissingFile(t *testing.T) {
	overrides, err := LoadOverrides(t.TempDir() + "/absent.yaml")
	require.NoError(t, err)
	assert.Empty(t, overrides)

	overrides, err = LoadOverrides("")
	require.NoError(t, err)
	assert.Empty(t, overrides)
}
