package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saadx01/events-calender/internal/model"
)

func TestComputeLayoutJuly2025(t *testing.T) {
	// July 2025 starts on a Tuesday and has 31 days.
	l := ComputeLayout(model.ViewMonth{Year: 2025, Month: time.July})

	assert.Equal(t, 2, l.FirstWeekday)
	assert.Equal(t, 31, l.DaysInMonth)
	assert.Equal(t, 5, l.Rows)
	require.Len(t, l.Cells, 35)

	assert.Equal(t, 1, l.Cells[2].Day)
	assert.Equal(t, 31, l.Cells[32].Day)
	assert.Equal(t, 0, l.Cells[0].Day)
	assert.Equal(t, 0, l.Cells[1].Day)
	assert.Equal(t, 0, l.Cells[33].Day)
	assert.Equal(t, 0, l.Cells[34].Day)

	assert.Equal(t, 2, l.SlotFor(1))
	assert.Equal(t, 32, l.SlotFor(31))
}

func TestComputeLayoutRowCounts(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month time.Month
		rows  int
	}{
		// 31 days starting Saturday needs 6 rows.
		{"august 2026 saturday start", 2026, time.August, 6},
		// 28 days starting Sunday fits 4 rows but is floored at 5.
		{"february 2026 sunday start", 2026, time.February, 5},
		// 30 days starting Monday.
		{"june 2026", 2026, time.June, 5},
		// 31 days starting Friday needs 6 rows.
		{"may 2026 friday start", 2026, time.May, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ComputeLayout(model.ViewMonth{Year: tt.year, Month: tt.month})
			assert.Equal(t, tt.rows, l.Rows)
			assert.Len(t, l.Cells, tt.rows*DaysPerWeek)
		})
	}
}

// Day cells must be exactly daysInMonth consecutive integers starting
// at cell index firstWeekday, everything else padding.
func TestComputeLayoutDayCellInvariant(t *testing.T) {
	for year := 2020; year <= 2030; year++ {
		for m := time.January; m <= time.December; m++ {
			l := ComputeLayout(model.ViewMonth{Year: year, Month: m})

			require.GreaterOrEqual(t, l.Rows, MinRows)
			require.LessOrEqual(t, l.Rows, MaxRows)

			want := 1
			for _, c := range l.Cells {
				inRange := c.Index >= l.FirstWeekday && c.Index < l.FirstWeekday+l.DaysInMonth
				if inRange {
					require.Equal(t, want, c.Day, "%d-%d cell %d", year, m, c.Index)
					want++
				} else {
					require.Equal(t, 0, c.Day, "%d-%d cell %d", year, m, c.Index)
				}
			}
			require.Equal(t, l.DaysInMonth+1, want)
		}
	}
}

func TestComputeLayoutNormalizesOverflow(t *testing.T) {
	// Month 13 of 2025 is January 2026.
	l := ComputeLayout(model.ViewMonth{Year: 2025, Month: time.Month(13)})
	assert.Equal(t, 2026, l.View.Year)
	assert.Equal(t, time.January, l.View.Month)
	assert.Equal(t, 31, l.DaysInMonth)
}
