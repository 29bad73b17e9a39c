package srs

import (
	"errors"
	"math"
	"testing"
	"time"
)

var testToday = time.Date(2025, time.March, 10, 14, 37, 52, 0, time.UTC)

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeNextReviewRejectsOutOfRangeRating(t *testing.T) {
	for _, rating := range []int{-1, 0, 6, 100} {
		_, err := ComputeNextReview(rating, State{IntervalDays: 1, EaseFactor: 2.5}, testToday)
		if !errors.Is(err, ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
	for rating := 1; rating <= 5; rating++ {
		if _, err := ComputeNextReview(rating, State{IntervalDays: 1, EaseFactor: 2.5}, testToday); err != nil {
			t.Errorf("rating %d: unexpected error %v", rating, err)
		}
	}
}

func TestLapseResetsStreakAndInterval(t *testing.T) {
	current := State{IntervalDays: 30, EaseFactor: 2.2, Repetitions: 5}
	for _, rating := range []int{1, 2} {
		next, err := ComputeNextReview(rating, current, testToday)
		if err != nil {
			t.Fatalf("rating %d: %v", rating, err)
		}
		if next.Repetitions != 0 {
			t.Errorf("rating %d: repetitions = %d, want 0", rating, next.Repetitions)
		}
		if next.IntervalDays != 1 {
			t.Errorf("rating %d: interval = %d, want 1", rating, next.IntervalDays)
		}
		if !approxEqual(next.EaseFactor, current.EaseFactor) {
			t.Errorf("rating %d: ease factor changed on lapse: %v", rating, next.EaseFactor)
		}
		want := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
		if !next.NextReviewDate.Equal(want) {
			t.Errorf("rating %d: next review date = %v, want %v", rating, next.NextReviewDate, want)
		}
	}
}

func TestFirstTwoSuccessesUseFixedIntervals(t *testing.T) {
	first, err := ComputeNextReview(4, State{IntervalDays: 1, EaseFactor: 2.5, Repetitions: 0}, testToday)
	if err != nil {
		t.Fatal(err)
	}
	if first.Repetitions != 1 || first.IntervalDays != 1 {
		t.Fatalf("first success: got reps=%d interval=%d, want 1/1", first.Repetitions, first.IntervalDays)
	}

	second, err := ComputeNextReview(4, State{
		IntervalDays: first.IntervalDays,
		EaseFactor:   first.EaseFactor,
		Repetitions:  first.Repetitions,
	}, testToday)
	if err != nil {
		t.Fatal(err)
	}
	if second.Repetitions != 2 || second.IntervalDays != 6 {
		t.Fatalf("second success: got reps=%d interval=%d, want 2/6", second.Repetitions, second.IntervalDays)
	}
}

func TestEaseFactorFormula(t *testing.T) {
	cases := []struct {
		name     string
		rating   int
		ease     float64
		wantEase float64
	}{
		{name: "perfect_recall_increases", rating: 5, ease: 2.5, wantEase: 2.6},
		{name: "rating_four_preserves", rating: 4, ease: 2.5, wantEase: 2.5},
		{name: "rating_three_decreases", rating: 3, ease: 2.5, wantEase: 2.36},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := ComputeNextReview(tc.rating, State{IntervalDays: 1, EaseFactor: tc.ease, Repetitions: 0}, testToday)
			if err != nil {
				t.Fatal(err)
			}
			if !approxEqual(next.EaseFactor, tc.wantEase) {
				t.Errorf("ease = %v, want %v", next.EaseFactor, tc.wantEase)
			}
		})
	}
}

func TestEaseFactorNeverDropsBelowFloor(t *testing.T) {
	state := State{IntervalDays: 1, EaseFactor: InitialEaseFactor, Repetitions: 0}
	for i := 0; i < 50; i++ {
		next, err := ComputeNextReview(3, state, testToday)
		if err != nil {
			t.Fatal(err)
		}
		if next.EaseFactor < MinEaseFactor {
			t.Fatalf("iteration %d: ease %v fell below %v", i, next.EaseFactor, MinEaseFactor)
		}
		state = State{IntervalDays: next.IntervalDays, EaseFactor: next.EaseFactor, Repetitions: next.Repetitions}
	}
	if !approxEqual(state.EaseFactor, MinEaseFactor) {
		t.Errorf("repeated rating=3 should settle at the floor, got %v", state.EaseFactor)
	}
}

func TestThirdRepetitionGrowsGeometrically(t *testing.T) {
	next, err := ComputeNextReview(5, State{IntervalDays: 6, EaseFactor: 2.6, Repetitions: 2}, testToday)
	if err != nil {
		t.Fatal(err)
	}
	if next.Repetitions != 3 {
		t.Errorf("repetitions = %d, want 3", next.Repetitions)
	}
	if !approxEqual(next.EaseFactor, 2.7) {
		t.Errorf("ease = %v, want 2.7", next.EaseFactor)
	}
	// round(6 * 2.7) = round(16.2) = 16, using the new ease factor.
	if next.IntervalDays != 16 {
		t.Errorf("interval = %d, want 16", next.IntervalDays)
	}
}

func TestIntervalRoundsHalfAwayFromZero(t *testing.T) {
	// rating=4 leaves the ease factor unchanged, so 10 * 1.35 = 13.5 exactly.
	next, err := ComputeNextReview(4, State{IntervalDays: 10, EaseFactor: 1.35, Repetitions: 2}, testToday)
	if err != nil {
		t.Fatal(err)
	}
	if next.IntervalDays != 14 {
		t.Errorf("interval = %d, want 14 (13.5 rounds up)", next.IntervalDays)
	}
}

func TestNextReviewDateIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2025, time.March, 10, 0, 0, 1, 0, time.UTC)
	night := time.Date(2025, time.March, 10, 23, 59, 59, 0, time.UTC)
	current := State{IntervalDays: 6, EaseFactor: 2.5, Repetitions: 2}

	a, err := ComputeNextReview(5, current, morning)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ComputeNextReview(5, current, night)
	if err != nil {
		t.Fatal(err)
	}
	if !a.NextReviewDate.Equal(b.NextReviewDate) {
		t.Errorf("same calendar day produced different dates: %v vs %v", a.NextReviewDate, b.NextReviewDate)
	}
	if h, m, s := a.NextReviewDate.Clock(); h != 0 || m != 0 || s != 0 {
		t.Errorf("next review date not midnight-normalized: %v", a.NextReviewDate)
	}
}

func TestInitialReviewState(t *testing.T) {
	initial := InitialReviewState(testToday)
	if initial.IntervalDays != 1 || initial.Repetitions != 0 {
		t.Errorf("got interval=%d reps=%d, want 1/0", initial.IntervalDays, initial.Repetitions)
	}
	if !approxEqual(initial.EaseFactor, 2.5) {
		t.Errorf("ease = %v, want 2.5", initial.EaseFactor)
	}
	want := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
	if !initial.NextReviewDate.Equal(want) {
		t.Errorf("next review date = %v, want %v", initial.NextReviewDate, want)
	}
}

func TestSanitizesDriftedState(t *testing.T) {
	// Ease below the floor is clamped on read, not propagated.
	next, err := ComputeNextReview(1, State{IntervalDays: 4, EaseFactor: 1.1, Repetitions: 2}, testToday)
	if err != nil {
		t.Fatal(err)
	}
	if !approxEqual(next.EaseFactor, MinEaseFactor) {
		t.Errorf("sub-floor ease not clamped: %v", next.EaseFactor)
	}

	// A zero interval (pre-first-review rows) behaves as one day.
	next, err = ComputeNextReview(4, State{IntervalDays: 0, EaseFactor: 2.5, Repetitions: 2}, testToday)
	if err != nil {
		t.Fatal(err)
	}
	if next.IntervalDays != 3 { // round(1 * 2.5)
		t.Errorf("interval = %d, want 3", next.IntervalDays)
	}
}

func TestRejectsCorruptState(t *testing.T) {
	cases := []struct {
		name  string
		state State
	}{
		{name: "nan_ease", state: State{IntervalDays: 1, EaseFactor: math.NaN()}},
		{name: "inf_ease", state: State{IntervalDays: 1, EaseFactor: math.Inf(1)}},
		{name: "negative_ease", state: State{IntervalDays: 1, EaseFactor: -2.5}},
		{name: "negative_interval", state: State{IntervalDays: -1, EaseFactor: 2.5}},
		{name: "negative_repetitions", state: State{IntervalDays: 1, EaseFactor: 2.5, Repetitions: -3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ComputeNextReview(4, tc.state, testToday); !errors.Is(err, ErrInvalidState) {
				t.Errorf("expected ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestIsDueBoundary(t *testing.T) {
	today := time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		date time.Time
		want bool
	}{
		{name: "yesterday", date: today.AddDate(0, 0, -1), want: true},
		{name: "today_exact", date: DateOnly(today), want: true},
		{name: "today_later_clock", date: today.Add(5 * time.Hour), want: true},
		{name: "tomorrow", date: today.AddDate(0, 0, 1), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsDue(tc.date, today); got != tc.want {
				t.Errorf("IsDue(%v, %v) = %v, want %v", tc.date, today, got, tc.want)
			}
		})
	}
}

func TestKnownIntervalProgression(t *testing.T) {
	// Straight rating=5 run from a fresh question: 1, 6, then geometric growth.
	state := State{IntervalDays: 1, EaseFactor: 2.5, Repetitions: 0}
	wantIntervals := []int{1, 6, 17, 49, 147}
	for i, want := range wantIntervals {
		next, err := ComputeNextReview(5, state, testToday)
		if err != nil {
			t.Fatal(err)
		}
		if next.IntervalDays != want {
			t.Fatalf("review %d: interval = %d, want %d", i+1, next.IntervalDays, want)
		}
		state = State{IntervalDays: next.IntervalDays, EaseFactor: next.EaseFactor, Repetitions: next.Repetitions}
	}
}
