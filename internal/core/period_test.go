package core

import (
	"errors"
	"testing"
)

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name      string
		in        Date
		wantStart string
		wantEnd   string
	}{
		{"mid january", NewDate(2025, 1, 15), "2025-01-01", "2025-01-31"},
		{"april has 30", NewDate(2025, 4, 30), "2025-04-01", "2025-04-30"},
		{"leap february", NewDate(2024, 2, 10), "2024-02-01", "2024-02-29"},
		{"common february", NewDate(2025, 2, 28), "2025-02-01", "2025-02-28"},
		{"december", NewDate(2025, 12, 1), "2025-12-01", "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthBounds(tt.in)
			if start.String() != tt.wantStart || end.String() != tt.wantEnd {
				t.Errorf("MonthBounds(%s) = [%s, %s], want [%s, %s]", tt.in, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestPreviousMonth(t *testing.T) {
	cases := []struct {
		in   Date
		want string
	}{
		{NewDate(2025, 1, 15), "2024-12-01"},
		{NewDate(2024, 3, 31), "2024-02-01"},
		{NewDate(2025, 7, 1), "2025-06-01"},
	}
	for _, tc := range cases {
		if got := PreviousMonth(tc.in); got.String() != tc.want {
			t.Fatalf("PreviousMonth(%s) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestMonthKey(t *testing.T) {
	if got := MonthKey(NewDate(2025, 3, 17)); got != "2025-03" {
		t.Fatalf("got %q", got)
	}
	d, err := ParseMonthKey("2024-11")
	if err != nil || d.String() != "2024-11-01" {
		t.Fatalf("ParseMonthKey: %s err=%v", d, err)
	}
	if _, err := ParseMonthKey("2024-13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestDateRange(t *testing.T) {
	start, end := NewDate(2025, 3, 1), NewDate(2025, 2, 1)
	if err := (DateRange{Start: &start, End: &end}).Validate(); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if err := (DateRange{Start: &start}).Validate(); err != nil {
		t.Fatalf("open range should be valid: %v", err)
	}

	r := MonthRange(NewDate(2025, 2, 14))
	for _, tc := range []struct {
		d  Date
		in bool
	}{
		{NewDate(2025, 2, 1), true},
		{NewDate(2025, 2, 28), true},
		{NewDate(2025, 1, 31), false},
		{NewDate(2025, 3, 1), false},
	} {
		if got := r.Contains(tc.d); got != tc.in {
			t.Fatalf("Contains(%s) = %v, want %v", tc.d, got, tc.in)
		}
	}
	if !(DateRange{}).Contains(NewDate(1999, 1, 1)) {
		t.Fatalf("unbounded range should contain everything")
	}
}
