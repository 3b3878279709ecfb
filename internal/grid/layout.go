package grid

import (
	"github.com/saadx01/events-calender/internal/model"
)

const (
	// DaysPerWeek is the number of columns in every layout.
	DaysPerWeek = 7
	// MinRows floors the layout height for short months so the
	// printable page keeps a stable vertical rhythm.
	MinRows = 5
	// MaxRows is the tallest possible month (31 days starting Friday
	// or Saturday).
	MaxRows = 6
)

// LayoutCell describes one cell of the month grid. Day is 0 for
// padding cells outside the displayed month.
type LayoutCell struct {
	Index int
	Day   int
}

// Layout is the canonical positional geometry of one month: which cell
// holds which day, and how many rows the month needs.
type Layout struct {
	View         model.ViewMonth
	FirstWeekday int // 0=Sunday
	DaysInMonth  int
	Rows         int
	Cells        []LayoutCell
}

// ComputeLayout builds the grid geometry for a month. The view month is
// normalized first, so callers may pass overflowed months (month 13 of
// 2025 is January 2026).
func ComputeLayout(view model.ViewMonth) Layout {
	view = view.Normalized()

	first := view.FirstDay()
	firstWeekday := int(first.Weekday())
	days := view.Days()

	rows := (firstWeekday + days + DaysPerWeek - 1) / DaysPerWeek
	if rows < MinRows {
		rows = MinRows
	}

	cells := make([]LayoutCell, rows*DaysPerWeek)
	for i := range cells {
		cells[i].Index = i
		day := i - firstWeekday + 1
		if day >= 1 && day <= days {
			cells[i].Day = day
		}
	}

	return Layout{
		View:         view,
		FirstWeekday: firstWeekday,
		DaysInMonth:  days,
		Rows:         rows,
		Cells:        cells,
	}
}

// SlotFor returns the 0-based cell index holding the given day of
// month. The caller must pass a day in [1, DaysInMonth].
func (l Layout) SlotFor(day int) int {
	return l.FirstWeekday + day - 1
}
