package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saadx01/events-calender/internal/model"
)

func TestExpandCustomNoRule(t *testing.T) {
	ev := CustomEvent{Title: "One-off", Date: "2025/07/10"}
	got := ExpandCustom(ev, model.ViewMonth{Year: 2025, Month: time.July})
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
}

func TestExpandCustomWeekly(t *testing.T) {
	// Every Tuesday starting 2025-07-01; July 2025 has five Tuesdays.
	ev := CustomEvent{
		Title:    "Craft Group",
		Date:     "2025/07/01",
		Category: "celebration",
		RRule:    "FREQ=WEEKLY;BYDAY=TU",
	}

	got := ExpandCustom(ev, model.ViewMonth{Year: 2025, Month: time.July})

	require.Len(t, got, 5)
	wantDates := []string{"2025/07/01", "2025/07/08", "2025/07/15", "2025/07/22", "2025/07/29"}
	for i, occ := range got {
		assert.Equal(t, wantDates[i], occ.Date)
		assert.Equal(t, "Craft Group", occ.Title)
		assert.Equal(t, "celebration", occ.Category)
		assert.Empty(t, occ.RRule)
	}
}

func TestExpandCustomOutsideMonth(t *testing.T) {
	// Monthly rule anchored in July; the August view picks up the
	// August occurrence only.
	ev := CustomEvent{
		Title: "Rent due",
		Date:  "2025/07/01",
		RRule: "FREQ=MONTHLY;BYMONTHDAY=1",
	}

	got := ExpandCustom(ev, model.ViewMonth{Year: 2025, Month: time.August})
	require.Len(t, got, 1)
	assert.Equal(t, "2025/08/01", got[0].Date)
}

func TestExpandCustomBadRuleFallsBack(t *testing.T) {
	ev := CustomEvent{Title: "X", Date: "2025/07/03", RRule: "FREQ=SOMETIMES"}
	got := ExpandCustom(ev, model.ViewMonth{Year: 2025, Month: time.July})
	require.Len(t, got, 1)
	assert.Equal(t, "2025/07/03", got[0].Date)
}

func TestExpandCustomBadDateFallsBack(t *testing.T) {
	ev := CustomEvent{Title: "X", Date: "nope", RRule: "FREQ=DAILY"}
	got := ExpandCustom(ev, model.ViewMonth{Year: 2025, Month: time.July})
	require.Len(t, got, 1)
	assert.Equal(t, ev, got[0])
}
