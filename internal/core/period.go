package core

import "time"

const monthKeyLayout = "2006-01"

// DateRange is an optional inclusive window. Nil bounds are unbounded.
type DateRange struct {
	Start *Date
	End   *Date
}

// FirstOfMonth returns the first calendar day of d's month.
func FirstOfMonth(d Date) Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// MonthBounds returns the first and last calendar day of d's month.
func MonthBounds(d Date) (start, end Date) {
	start = FirstOfMonth(d)
	// Day 0 of the next month normalizes to the last day of this one.
	end = NewDate(d.Year(), d.Month()+1, 0)
	return start, end
}

// PreviousMonth returns the first day of the month before d's month.
func PreviousMonth(d Date) Date {
	return NewDate(d.Year(), d.Month()-1, 1)
}

// MonthKey formats d's month as YYYY-MM.
func MonthKey(d Date) string {
	return d.Format(monthKeyLayout)
}

// ParseMonthKey parses a YYYY-MM key into the first day of that month.
func ParseMonthKey(s string) (Date, error) {
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// MonthRange is the inclusive window covering d's month.
func MonthRange(d Date) DateRange {
	start, end := MonthBounds(d)
	return DateRange{Start: &start, End: &end}
}

func (r DateRange) Validate() error {
	if r.Start != nil && r.End != nil && r.Start.After(r.End.Time) {
		return ErrInvalidRange
	}
	return nil
}

// Contains reports whether d falls inside the window.
func (r DateRange) Contains(d Date) bool {
	if r.Start != nil && d.Before(r.Start.Time) {
		return false
	}
	if r.End != nil && d.After(r.End.Time) {
		return false
	}
	return true
}
