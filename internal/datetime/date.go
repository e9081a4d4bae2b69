// Package datetime implements calendar arithmetic on ISO dates (yyyy-mm-dd).
//
// All other packages in this module rely on it for date math; the valid
// range is 0001-01-01 .. 9999-12-31 and every operation works by explicit
// calendar stepping, so no time zone or epoch conversions are involved.
package datetime

import (
	"fmt"
	"regexp"
	"strconv"
)

// DateError reports malformed or logically inverted date input.
type DateError struct {
	msg string
}

func (e *DateError) Error() string { return e.msg }

func errorf(format string, args ...any) *DateError {
	return &DateError{msg: fmt.Sprintf(format, args...)}
}

// Date is an ISO calendar date. The zero value is not a valid date.
type Date struct {
	Year  int
	Month int
	Day   int
}

var isoPattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

// Parse converts an ISO formatted string into a Date.
func Parse(s string) (Date, error) {
	m := isoPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, errorf("invalid date (%s)", s)
	}
	y, _ := strconv.Atoi(m[1])
	mo, _ := strconv.Atoi(m[2])
	d, _ := strconv.Atoi(m[3])
	dt := Date{Year: y, Month: mo, Day: d}
	if !dt.Valid() {
		return Date{}, errorf("invalid date (%s)", s)
	}
	return dt, nil
}

// IsValid reports whether s is a well-formed ISO calendar date.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Valid reports whether the date denotes an existing calendar day.
func (d Date) Valid() bool {
	if d.Year < 1 || d.Year > 9999 || d.Month < 1 || d.Month > 12 {
		return false
	}
	return d.Day >= 1 && d.Day <= daysInMonth(d.Year, d.Month)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return DaysBetween(d, other) > 0
}

// Between reports start <= d <= end.
func (d Date) Between(start, end Date) bool {
	return DaysBetween(start, d) >= 0 && DaysBetween(d, end) >= 0
}

// DaysBetween returns the signed day count from start to end, computed by
// stepping whole calendar months so the full supported range is exact.
func DaysBetween(start, end Date) int {
	var delta int
	switch {
	case end.Year > start.Year:
		delta = 1
	case end.Year < start.Year:
		delta = -1
	case end.Month > start.Month:
		delta = 1
	case end.Month < start.Month:
		delta = -1
	default:
		return end.Day - start.Day
	}

	y, m := start.Year, start.Month
	var diff int
	if delta == 1 {
		diff = daysInMonth(y, m) - start.Day
	} else {
		diff = -start.Day
	}
	for {
		m += delta
		if m == 0 {
			y--
			m = 12
		} else if m == 13 {
			y++
			m = 1
		}
		if y == end.Year && m == end.Month {
			break
		}
		diff += delta * daysInMonth(y, m)
	}
	if delta == 1 {
		diff += end.Day
	} else {
		diff -= daysInMonth(y, m) - end.Day
	}
	return diff
}

// AddDays returns the date n days after d. n must be >= 0.
func AddDays(d Date, n int) (Date, error) {
	if n < 0 {
		return Date{}, errorf("invalid number of days to add (%d)", n)
	}
	y, m, dd := d.Year, d.Month, d.Day
	for n > 0 {
		switch {
		case dd < daysInMonth(y, m):
			dd++
		case m < 12:
			dd = 1
			m++
		case y < 9999:
			dd = 1
			m = 1
			y++
		default:
			return Date{}, errorf("date out of range adding %d days to %s", n, d)
		}
		n--
	}
	return Date{Year: y, Month: m, Day: dd}, nil
}

// Weekday returns the day of week, 0 (Sunday) .. 6 (Saturday).
//
// Closed-form congruence (Zeller-style), so no calendar library is needed.
func (d Date) Weekday() int {
	cc := d.Year / 100
	yy := d.Year % 100

	nd := d.Day % 7
	nmLUT := [13]int{0, 0, 3, 3, 6, 1, 4, 6, 2, 5, 0, 3, 5}
	nm := nmLUT[d.Month]
	nyy := (yy + yy/4) % 7
	ncc := (3 - cc%4) * 2

	nleap := 0
	if d.Month <= 2 && daysInMonth(d.Year, 2) == 29 {
		nleap = -1
	}

	return ((nd+nm+ncc+nyy+nleap)%7 + 7) % 7
}

// Overlaps reports whether the inclusive intervals [aStart,aEnd] and
// [bStart,bEnd] share at least one day.
func Overlaps(aStart, aEnd, bStart, bEnd Date) bool {
	return bStart.Between(aStart, aEnd) || aStart.Between(bStart, bEnd)
}

func daysInMonth(y, m int) int {
	lengths := [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	if m != 2 {
		return lengths[m]
	}
	switch {
	case y%400 == 0:
		return 29
	case y%100 == 0:
		return 28
	case y%4 == 0:
		return 29
	default:
		return 28
	}
}
