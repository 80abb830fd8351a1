package core

import (
	"errors"
	"testing"
	"time"
)

func TestMonthPeriodRange(t *testing.T) {
	for _, m := range []int{1, 6, 12} {
		if _, err := MonthPeriod(2024, m); err != nil {
			t.Fatalf("month %d: unexpected error %v", m, err)
		}
	}
	for _, m := range []int{-1, 0, 13} {
		if _, err := MonthPeriod(2024, m); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("month %d: expected ErrInvalidArgument, got %v", m, err)
		}
	}
}

// January must be month 1, not 0: a zero-based mixup would put these dates
// in the wrong bucket.
func TestPeriodContainsIsOneBased(t *testing.T) {
	jan := time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC)
	dec := time.Date(2024, time.December, 15, 12, 0, 0, 0, time.UTC)

	p1, _ := MonthPeriod(2024, 1)
	p12, _ := MonthPeriod(2024, 12)
	if !p1.Contains(jan, time.UTC) || p1.Contains(dec, time.UTC) {
		t.Fatalf("month 1 should contain January only")
	}
	if !p12.Contains(dec, time.UTC) || p12.Contains(jan, time.UTC) {
		t.Fatalf("month 12 should contain December only")
	}
	if !YearPeriod(2024).Contains(jan, time.UTC) || YearPeriod(2023).Contains(jan, time.UTC) {
		t.Fatalf("year bucket mismatch")
	}
}

func TestPeriodBoundaryFallsInExactlyOneBucket(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	lastJan := time.Date(2024, time.January, 31, 23, 59, 59, 999999999, loc)
	firstFeb := time.Date(2024, time.February, 1, 0, 0, 0, 0, loc)

	jan, _ := MonthPeriod(2024, 1)
	feb, _ := MonthPeriod(2024, 2)

	for _, tc := range []struct {
		at   time.Time
		want Period
	}{{lastJan, jan}, {firstFeb, feb}} {
		hits := 0
		for m := 1; m <= 12; m++ {
			p, _ := MonthPeriod(2024, m)
			if p.Contains(tc.at, loc) {
				hits++
				if p != tc.want {
					t.Fatalf("%v landed in %v, want %v", tc.at, p, tc.want)
				}
			}
		}
		if hits != 1 {
			t.Fatalf("%v matched %d buckets", tc.at, hits)
		}
	}
}

func TestPeriodContainsConvertsZone(t *testing.T) {
	// 02:00 UTC on Feb 1st is still January 31st in UTC-3.
	at := time.Date(2024, time.February, 1, 2, 0, 0, 0, time.UTC)
	loc := time.FixedZone("UTC-3", -3*3600)
	jan, _ := MonthPeriod(2024, 1)
	if !jan.Contains(at, loc) {
		t.Fatalf("expected January in UTC-3")
	}
	if jan.Contains(at, time.UTC) {
		t.Fatalf("expected February in UTC")
	}
}

func TestPeriodBoundsAndNames(t *testing.T) {
	p, _ := MonthPeriod(2024, 3)
	start, end := p.Bounds(time.UTC)
	if !start.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected bounds %v - %v", start, end)
	}
	if p.SheetName() != "03-2024" {
		t.Fatalf("sheet name = %q", p.SheetName())
	}
	ys, ye := YearPeriod(2024).Bounds(time.UTC)
	if ye.Sub(ys) != 366*24*time.Hour {
		t.Fatalf("2024 should span 366 days, got %v", ye.Sub(ys))
	}
}

func TestCurrentPeriods(t *testing.T) {
	now := time.Date(2025, time.October, 19, 9, 0, 0, 0, time.UTC)
	m, y := CurrentPeriods(now, time.UTC)
	if m != (Period{Year: 2025, Month: 10}) || y != (Period{Year: 2025}) {
		t.Fatalf("unexpected current periods %v %v", m, y)
	}
}
