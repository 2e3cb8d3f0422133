// Package gait detects gait events in processed pressure recordings and
// derives temporal gait parameters from them.
//
// Detect is a pure function of the sample series and the thresholds: it
// keeps no state between calls. Repeated analyses of the same recording are
// memoized by Cache, keyed on recording id, revision and thresholds, so a
// filtered recording (new revision) is never served stale events.
//
// Calculate works on any event stream. Step time is taken between
// consecutive initial contacts of opposite feet and bucketed by the later
// foot; stride time between consecutive contacts of the same foot; stance
// time from each contact to the next toe off of the same foot. Standard
// deviations are population deviations and every zero denominator yields 0.
package gait
