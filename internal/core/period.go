package core

import (
	"fmt"
	"time"
)

// Period is a bucket key. Month is 1-12, or 0 for the whole year.
type Period struct {
	Year  int
	Month int
}

// MonthPeriod builds a month bucket. Months are 1-based.
func MonthPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range 1..12", ErrInvalidArgument, month)
	}
	return Period{Year: year, Month: month}, nil
}

// YearPeriod builds the whole-year bucket.
func YearPeriod(year int) Period {
	return Period{Year: year}
}

// CurrentPeriods returns the month and year buckets containing now in loc.
func CurrentPeriods(now time.Time, loc *time.Location) (month, year Period) {
	now = now.In(zone(loc))
	return Period{Year: now.Year(), Month: int(now.Month())}, Period{Year: now.Year()}
}

// IsYear reports whether p covers a whole year.
func (p Period) IsYear() bool {
	return p.Month == 0
}

// Contains reports whether t falls in the bucket once converted to loc.
func (p Period) Contains(t time.Time, loc *time.Location) bool {
	t = t.In(zone(loc))
	if t.Year() != p.Year {
		return false
	}
	return p.IsYear() || int(t.Month()) == p.Month
}

// Bounds returns the half-open interval [start, end) covered by the bucket.
func (p Period) Bounds(loc *time.Location) (time.Time, time.Time) {
	loc = zone(loc)
	if p.IsYear() {
		start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// SheetName is the "MM-YYYY" label used for exported month sheets.
func (p Period) SheetName() string {
	if p.IsYear() {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%02d-%d", p.Month, p.Year)
}

func (p Period) String() string {
	if p.IsYear() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// zone falls back to the process wall-clock zone.
func zone(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
