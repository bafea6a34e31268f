/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "math"

// Stats are the running totals for one player session.
//
// Round is the number of the round currently being played, so the number
// of completed rounds is always Round-1.
type Stats struct {
	Round   int  `json:"round"`
	Correct int  `json:"correct"`
	Streak  int  `json:"streak"`
	Metric  bool `json:"metric"`
}

// NewStats returns fresh counters that keep the given unit preference.
func NewStats(metric bool) Stats {
	return Stats{
		Round:  1,
		Metric: metric,
	}
}

// Record applies the result of one answered round.
func (s Stats) Record(correct bool) Stats {
	if correct {
		s.Correct++
		s.Streak++
	} else {
		s.Streak = 0
	}

	s.Round++

	return s
}

func (s Stats) Completed() int {
	return s.Round - 1
}

// Accuracy is the rounded percentage of completed rounds answered correctly.
func (s Stats) Accuracy() int {
	completed := s.Completed()
	if s.Correct == 0 || completed <= 0 {
		return 0
	}

	return jsRound(float64(s.Correct) / float64(completed) * 100)
}

// jsRound rounds to the nearest integer with halves going towards positive
// infinity, which is what browsers do and what players see elsewhere.
func jsRound(x float64) int {
	return int(math.Floor(x + 0.5))
}
