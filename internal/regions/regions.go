package regions

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v2"

	"plantarcli/pkg/contracts/domain"
)

// DefaultSensorsPerFoot is the sensor count of the supported insole
const DefaultSensorsPerFoot = 98

var (
	ErrSensorOutOfRange = errors.New("sensor index out of range")
	ErrUnknownRegion    = errors.New("unknown region")
	ErrOverlap          = errors.New("region sets overlap")
	ErrIncomplete       = errors.New("region sets do not cover every sensor")
)

// regionSpan is one contiguous block of the default partition
type regionSpan struct {
	region domain.Region
	size   int
}

var defaultSpans = []regionSpan{
	{domain.RegionHeel, 25},
	{domain.RegionMedialMidfoot, 16},
	{domain.RegionLateralMidfoot, 12},
	{domain.RegionForefoot, 28},
	{domain.RegionToes, 12},
	{domain.RegionHallux, 5},
}

// RegionSet maps each region to its 1-based sensor numbers
type RegionSet struct {
	sensors        map[domain.Region][]int
	sensorsPerFoot int
}

// Default returns the standard partition of the 98-sensor insole
func Default() RegionSet {
	set := RegionSet{
		sensors:        make(map[domain.Region][]int, len(defaultSpans)),
		sensorsPerFoot: DefaultSensorsPerFoot,
	}
	next := 1
	for _, span := range defaultSpans {
		ids := make([]int, span.size)
		for i := range ids {
			ids[i] = next + i
		}
		set.sensors[span.region] = ids
		next += span.size
	}
	return set
}

// SensorsPerFoot returns N, the number of sensors on each insole
func (s RegionSet) SensorsPerFoot() int {
	return s.sensorsPerFoot
}

// Sensors returns a copy of the sensor numbers of region r
func (s RegionSet) Sensors(r domain.Region) []int {
	return slices.Clone(s.sensors[r])
}

// RegionOf returns the region a sensor belongs to
func (s RegionSet) RegionOf(sensor int) (domain.Region, bool) {
	for _, r := range domain.Regions {
		if slices.Contains(s.sensors[r], sensor) {
			return r, true
		}
	}
	return "", false
}

// Sizes returns the sensor count per region
func (s RegionSet) Sizes() map[domain.Region]int {
	sizes := make(map[domain.Region]int, len(domain.Regions))
	for _, r := range domain.Regions {
		sizes[r] = len(s.sensors[r])
	}
	return sizes
}

// WithOverrides layers a sensor-to-region reassignment on top of s and returns
// the resolved partition. s itself is left untouched.
func (s RegionSet) WithOverrides(overrides map[int]domain.Region) (RegionSet, error) {
	assignment := make(map[int]domain.Region, s.sensorsPerFoot)
	for r, ids := range s.sensors {
		for _, id := range ids {
			assignment[id] = r
		}
	}

	for sensor, r := range overrides {
		if sensor < 1 || sensor > s.sensorsPerFoot {
			return RegionSet{}, fmt.Errorf("override sensor %d: %w", sensor, ErrSensorOutOfRange)
		}
		if !r.IsValid() {
			return RegionSet{}, fmt.Errorf("override sensor %d to %q: %w", sensor, r, ErrUnknownRegion)
		}
		assignment[sensor] = r
	}

	resolved := RegionSet{
		sensors:        make(map[domain.Region][]int, len(domain.Regions)),
		sensorsPerFoot: s.sensorsPerFoot,
	}
	for sensor, r := range assignment {
		resolved.sensors[r] = append(resolved.sensors[r], sensor)
	}
	for r := range resolved.sensors {
		sort.Ints(resolved.sensors[r])
	}
	return resolved, resolved.Validate()
}

// Validate checks that the sets are disjoint and cover 1..N exactly once
func (s RegionSet) Validate() error {
	seen := make(map[int]domain.Region, s.sensorsPerFoot)
	for _, r := range domain.Regions {
		for _, id := range s.sensors[r] {
			if id < 1 || id > s.sensorsPerFoot {
				return fmt.Errorf("region %s sensor %d: %w", r, id, ErrSensorOutOfRange)
			}
			if prev, dup := seen[id]; dup {
				return fmt.Errorf("sensor %d in %s and %s: %w", id, prev, r, ErrOverlap)
			}
			seen[id] = r
		}
	}
	for r := range s.sensors {
		if !r.IsValid() {
			return fmt.Errorf("region %q: %w", r, ErrUnknownRegion)
		}
	}
	if len(seen) != s.sensorsPerFoot {
		return fmt.Errorf("%d of %d sensors assigned: %w", len(seen), s.sensorsPerFoot, ErrIncomplete)
	}
	return nil
}

// overrideFile is the YAML document holding sensor reassignments
type overrideFile struct {
	Overrides map[int]string `yaml:"overrides"`
}

// LoadOverrides reads a sensor-to-region override file. A missing path returns
// an empty map so callers can always layer the result on the default set.
func LoadOverrides(path string) (map[int]domain.Region, error) {
	if path == "" {
		return map[int]domain.Region{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]domain.Region{}, nil
		}
		return nil, fmt.Errorf("read region overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes the YAML override document
func ParseOverrides(data []byte) (map[int]domain.Region, error) {
	var doc overrideFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse region overrides: %w", err)
	}
	overrides := make(map[int]domain.Region, len(doc.Overrides))
	for sensor, name := range doc.Overrides {
		r := domain.Region(name)
		if !r.IsValid() {
			return nil, fmt.Errorf("override sensor %d to %q: %w", sensor, name, ErrUnknownRegion)
		}
		overrides[sensor] = r
	}
	return overrides, nil
}
