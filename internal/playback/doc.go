// Package playback holds the in-memory dataset state: the loaded recordings,
// the active index and a time cursor that can be played back over a range of
// the active recording.
//
// Store guards its recordings with a mutex because HTTP handlers call it from
// many goroutines. Published recordings are read-only; filters run on a deep
// copy that then replaces the working entry, while the copy captured at load
// time stays available for Reset.
//
// Player is a small state machine:
//
//	Stopped --Play--> Playing --Pause/end of range--> Paused --Play--> Playing
//	   ^                                                  |
//	   +---------------------- Stop ----------------------+
//
// Seek never changes the state. SeekFromSlider pauses first when playing.
package playback
