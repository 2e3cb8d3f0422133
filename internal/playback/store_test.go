package playback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"plantarcli/internal/dataprocessing"
	"plantarcli/internal/shared/testutil"
	"plantarcli/pkg/contracts/domain"
)

func TestLookup(t *testing.T) {
	rec := testutil.TimedRecording("r", []float64{0, 0.5, 1.0, 1.5}, []float64{1, 2, 3, 4})

	tests := []struct {
		at   float64
		want float64
	}{
		{0.7, 0.5},
		{-1, 0},
		{2.0, 1.5},
		{0, 0},
		{0.5, 0.5},
		{1.49, 1.0},
		{1.5, 1.5},
	}
	for _, tt := range tests {
		s := Lookup(rec.Samples, tt.at)
		require.NotNil(t, s)
		assert.Equal(t, tt.want, s.Time, "lookup(%v)", tt.at)
	}

	assert.Nil(t, Lookup(nil, 1))
	assert.Equal(t, -1, LookupIndex(nil, 1))
}

func TestLookupDuplicateTimesPicksLast(t *testing.T) {
	rec := testutil.TimedRecording("r", []float64{0, 1, 1, 2}, []float64{1, 2, 3, 4})
	assert.Equal(t, 2, LookupIndex(rec.Samples, 1))
}

type StoreSuite struct {
	suite.Suite
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	logger, _ := testutil.NewTestLogger(s.T())
	s.store = NewStore(logger)
}

func (s *StoreSuite) add(ids ...string) {
	for _, id := range ids {
		s.store.Add(testutil.TimedRecording(id, []float64{0, 0.5, 1, 1.5}, []float64{1, 20, 3, 40}))
	}
}

func (s *StoreSuite) activeID() string {
	rec, _, err := s.store.Active()
	s.Require().NoError(err)
	return rec.ID
}

func (s *StoreSuite) TestEmptyStoreHasNoData() {
	_, idx, err := s.store.Active()
	s.ErrorIs(err, ErrNoActiveDataset)
	s.Equal(-1, idx)

	_, err = s.store.Lookup(0)
	s.ErrorIs(err, ErrNoActiveDataset)
	_, err = s.store.Reset()
	s.ErrorIs(err, ErrNoActiveDataset)
	_, err = s.store.ApplyFilter(dataprocessing.TrimRange(0, 1))
	s.ErrorIs(err, ErrNoActiveDataset)
}

func (s *StoreSuite) TestAddMakesNewestActive() {
	s.add("a", "b")
	s.Equal(2, s.store.Len())
	s.Equal(1, s.store.ActiveIndex())
	s.Equal("b", s.activeID())

	s.Require().NoError(s.store.SetActive(0))
	s.Equal("a", s.activeID())
	s.ErrorIs(s.store.SetActive(5), ErrDatasetNotFound)
	s.Equal(1, s.store.IndexOf("b"))
	s.Equal(-1, s.store.IndexOf("zzz"))
}

func (s *StoreSuite) TestLookupOnActive() {
	s.add("a")
	sample, err := s.store.Lookup(0.7)
	s.Require().NoError(err)
	s.Equal(0.5, sample.Time)

	s.store.Add(&domain.ProcessedRecording{ID: "empty"})
	sample, err = s.store.Lookup(0.7)
	s.NoError(err)
	s.Nil(sample)
}

func (s *StoreSuite) TestApplyFilterIsCopyOnWrite() {
	s.add("a")
	before, _, _ := s.store.Active()
	snapshot := before.Clone()

	filtered, err := s.store.ApplyFilter(dataprocessing.TrimRange(0.4, 1.1))
	s.Require().NoError(err)

	s.Len(filtered.Samples, 2)
	s.Equal(1, filtered.Revision)
	s.InDelta(20.0, filtered.RawMaxPeakPressure, 1e-9)
	s.True(before.Equal(snapshot), "published recording must not change")

	again, err := s.store.ApplyFilter(dataprocessing.NoiseFloor(5))
	s.Require().NoError(err)
	s.Equal(2, again.Revision)
}

func (s *StoreSuite) TestApplyFilterErrorKeepsWorkingCopy() {
	s.add("a")
	before, _, _ := s.store.Active()
	_, err := s.store.ApplyFilter(func(*domain.ProcessedRecording) error { return errors.New("boom") })
	s.Error(err)
	after, _, _ := s.store.Active()
	s.Same(before, after)
}

func (s *StoreSuite) TestResetRestoresOriginal() {
	s.add("a")
	original, _, _ := s.store.Active()
	originalCopy := original.Clone()

	_, err := s.store.ApplyFilter(dataprocessing.TrimRange(0, 0.5))
	s.Require().NoError(err)
	_, err = s.store.ApplyFilter(dataprocessing.NoiseFloor(10))
	s.Require().NoError(err)

	reset, err := s.store.Reset()
	s.Require().NoError(err)
	s.True(reset.Equal(originalCopy))
	s.NotSame(original, reset)

	// a later filter never reuses a revision
	next, err := s.store.ApplyFilter(dataprocessing.TrimRange(0, 1))
	s.Require().NoError(err)
	s.Equal(3, next.Revision)
}

func (s *StoreSuite) TestAugmentSurvivesReset() {
	s.add("a")
	force := []domain.ForceSample{{Time: 0, LeftForce: 1}, {Time: 0.5}, {Time: 1}, {Time: 1.5}}
	_, err := s.store.Augment(0, dataprocessing.AttachForce(force))
	s.Require().NoError(err)

	reset, err := s.store.Reset()
	s.Require().NoError(err)
	s.Require().NotNil(reset.Samples[0].Force)
	s.Equal(1.0, reset.Samples[0].Force.LeftForce)
}

func (s *StoreSuite) TestRemove() {
	tests := []struct {
		name       string
		ids        []string
		active     int
		remove     int
		wantActive string
	}{
		{"active middle moves to previous", []string{"a", "b", "c"}, 1, 1, "a"},
		{"active first stays at zero", []string{"a", "b", "c"}, 0, 0, "b"},
		{"earlier removal keeps active recording", []string{"a", "b", "c"}, 2, 0, "c"},
		{"later removal keeps active recording", []string{"a", "b", "c"}, 0, 2, "a"},
		{"active last moves to previous", []string{"a", "b", "c"}, 2, 2, "b"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.add(tt.ids...)
			s.Require().NoError(s.store.SetActive(tt.active))

			removed, err := s.store.Remove(tt.remove)
			s.Require().NoError(err)
			s.Equal(tt.ids[tt.remove], removed.ID)
			s.Equal(tt.wantActive, s.activeID())
		})
	}
}

func (s *StoreSuite) TestRemoveLastReturnsToNoData() {
	s.add("a")
	_, err := s.store.Remove(0)
	s.Require().NoError(err)
	s.Equal(-1, s.store.ActiveIndex())
	_, _, err = s.store.Active()
	s.ErrorIs(err, ErrNoActiveDataset)

	_, err = s.store.Remove(0)
	s.ErrorIs(err, ErrDatasetNotFound)
}

func (s *StoreSuite) TestFindByChecksum() {
	rec := testutil.TimedRecording("a", []float64{0}, []float64{1})
	rec.Checksum = "abc"
	s.store.Add(rec)

	idx, ok := s.store.FindByChecksum("abc")
	s.True(ok)
	s.Equal(0, idx)
	_, ok = s.store.FindByChecksum("")
	s.False(ok)
}

func TestStoreListReturnsWorkingCopies(t *testing.T) {
	store := NewStore(nil)
	store.Add(testutil.TimedRecording("a", []float64{0, 1}, []float64{1, 2}))
	filtered, err := store.ApplyFilter(dataprocessing.TrimRange(0, 0))
	require.NoError(t, err)

	list := store.List()
	require.Len(t, list, 1)
	assert.Same(t, filtered, list[0])
}
