// Package regions maps raw per-sensor insole readings onto the six anatomical
// zones of the foot sole and aggregates peak and mean pressure per zone.
//
// # Layout
//
// A source row carries one time column followed by the left-foot sensors and,
// at a fixed column stride, the right-foot sensors. Sensors are numbered 1..N
// per foot. The default partition assigns contiguous sensor ranges:
//
//	heel            1-25
//	medialMidfoot  26-41
//	lateralMidfoot 42-53
//	forefoot       54-81
//	toes           82-93
//	hallux         94-98
//
// # Overrides
//
// Individual sensors can be reassigned with an override map (sensor number to
// region), usually loaded from a YAML file:
//
//	overrides:
//	  26: heel
//	  94: toes
//
// Overrides are resolved once per recording load into a new RegionSet, which
// is always a disjoint partition of 1..N.
//
// # Aggregation
//
// Readings are divided by 1000 to convert source units into kPa. Missing,
// non-numeric and negative readings are excluded; a region without any valid
// reading reports Peak = Mean = 0.
package regions
