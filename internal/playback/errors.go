package playback

import "errors"

var (
	// ErrNoActiveDataset is the "no data" condition: nothing is loaded
	ErrNoActiveDataset = errors.New("no active dataset")
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrInvalidRange    = errors.New("invalid playback range")
	ErrInvalidSpeed    = errors.New("playback speed must be positive")
)
