// Package srs implements the SM-2 spaced-repetition scheduler used for
// review questions. It is pure computation: the only time-dependent input
// is the current date, which callers pass in explicitly.
package srs

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// MinEaseFactor is the SM-2 floor. Ease factors below this make
	// intervals shrink on success, so the algorithm never goes under it.
	MinEaseFactor = 1.3

	// InitialEaseFactor and InitialIntervalDays seed a never-reviewed question.
	InitialEaseFactor   = 2.5
	InitialIntervalDays = 1

	minRating = 1
	maxRating = 5
)

var (
	ErrInvalidRating = errors.New("srs: rating must be between 1 and 5")
	ErrInvalidState  = errors.New("srs: review state is invalid")
)

// State is the scheduling state a question carries between reviews.
type State struct {
	IntervalDays int
	EaseFactor   float64
	Repetitions  int
}

// NextReview is the scheduler output: the state to persist for the next cycle.
type NextReview struct {
	NextReviewDate time.Time
	IntervalDays   int
	EaseFactor     float64
	Repetitions    int
}

// ComputeNextReview applies the SM-2 update for a self-rating of 1-5.
//
// rating < 3 is a lapse: the success streak and interval reset, the ease
// factor is left alone. rating >= 3 extends the interval: the first two
// successes are pinned to 1 and 6 days, after that the previous interval is
// multiplied by the updated ease factor and rounded with math.Round
// (half away from zero).
func ComputeNextReview(rating int, current State, today time.Time) (NextReview, error) {
	if rating < minRating || rating > maxRating {
		return NextReview{}, fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	sanitized, err := sanitizeState(current)
	if err != nil {
		return NextReview{}, err
	}

	var (
		newInterval    int
		newEaseFactor  float64
		newRepetitions int
	)

	if rating < 3 {
		newInterval = 1
		newRepetitions = 0
		newEaseFactor = sanitized.EaseFactor
	} else {
		newRepetitions = sanitized.Repetitions + 1

		q := float64(rating)
		newEaseFactor = sanitized.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
		if newEaseFactor < MinEaseFactor {
			newEaseFactor = MinEaseFactor
		}

		switch newRepetitions {
		case 1:
			newInterval = 1
		case 2:
			newInterval = 6
		default:
			newInterval = int(math.Round(float64(sanitized.IntervalDays) * newEaseFactor))
		}
	}

	return NextReview{
		NextReviewDate: DateOnly(today).AddDate(0, 0, newInterval),
		IntervalDays:   newInterval,
		EaseFactor:     newEaseFactor,
		Repetitions:    newRepetitions,
	}, nil
}

// InitialReviewState is the synthetic pre-first-review state for a new
// question: due tomorrow, ease 2.5, no streak.
func InitialReviewState(today time.Time) NextReview {
	return NextReview{
		NextReviewDate: DateOnly(today).AddDate(0, 0, InitialIntervalDays),
		IntervalDays:   InitialIntervalDays,
		EaseFactor:     InitialEaseFactor,
		Repetitions:    0,
	}
}

// IsDue reports whether a question whose latest state carries nextReviewDate
// is due on the calendar date of today. Due means on or before, inclusive.
func IsDue(nextReviewDate, today time.Time) bool {
	return !DateOnly(nextReviewDate).After(DateOnly(today))
}

// DateOnly truncates a timestamp to midnight, keeping its location.
// Scheduling works on calendar dates; time-of-day never matters.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sanitizeState rejects prior state that is outright corrupt and clamps the
// kind of drift that shows up in historical rows (ease below the floor,
// interval recorded as zero) so it never propagates.
func sanitizeState(s State) (State, error) {
	if math.IsNaN(s.EaseFactor) || math.IsInf(s.EaseFactor, 0) || s.EaseFactor < 0 {
		return State{}, fmt.Errorf("%w: ease factor %v", ErrInvalidState, s.EaseFactor)
	}
	if s.IntervalDays < 0 {
		return State{}, fmt.Errorf("%w: interval %d days", ErrInvalidState, s.IntervalDays)
	}
	if s.Repetitions < 0 {
		return State{}, fmt.Errorf("%w: repetitions %d", ErrInvalidState, s.Repetitions)
	}
	if s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}
	if s.IntervalDays == 0 {
		s.IntervalDays = 1
	}
	return s, nil
}
