package grid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saadx01/events-calender/internal/model"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"slash form", "2025/07/10", "2025-07-10", false},
		{"compact form", "20250710", "2025-07-10", false},
		{"already padded slash", "2025/01/02", "2025-01-02", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"too short compact", "2025710", "", true},
		{"letters", "2025/ju/10", "", true},
		{"garbage", "next tuesday", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeActivityBucketsMonthly(t *testing.T) {
	view := model.ViewMonth{Year: 2025, Month: time.July}

	ev, ok := Normalize(Record{
		Kind:  model.KindActivity,
		Title: "Morning Walk",
		Date:  "2025/07/10",
		Color: "blue",
	}, view)

	require.True(t, ok)
	assert.Equal(t, "2025-07-10", ev.ISODate)
	assert.Equal(t, model.MonthlyBucket, ev.Category)
	assert.Equal(t, model.KindActivity, ev.Kind)
}

func TestNormalizeCustomCategoryDefault(t *testing.T) {
	view := model.ViewMonth{Year: 2025, Month: time.July}

	ev, ok := Normalize(Record{
		Kind:  model.KindCustom,
		Title: "Bingo Night",
		Date:  "20250712",
	}, view)
	require.True(t, ok)
	assert.Equal(t, model.DefaultCategory, ev.Category)

	ev, ok = Normalize(Record{
		Kind:     model.KindCustom,
		Title:    "Bingo Night",
		Date:     "20250712",
		Category: "reminders",
	}, view)
	require.True(t, ok)
	assert.Equal(t, "reminders", ev.Category)
}

func TestNormalizeNoteMonthScoping(t *testing.T) {
	view := model.ViewMonth{Year: 2025, Month: time.July}

	_, ok := Normalize(Record{
		Kind:  model.KindNote,
		Title: "call mum",
		Date:  "2025/08/01",
	}, view)
	assert.False(t, ok, "note outside the displayed month is excluded")

	ev, ok := Normalize(Record{
		Kind:  model.KindNote,
		Title: "call mum",
		Date:  "2025/07/31",
	}, view)
	require.True(t, ok)
	assert.Equal(t, "2025-07-31", ev.ISODate)
}

func TestNormalizeAllSkipsBadRecords(t *testing.T) {
	view := model.ViewMonth{Year: 2025, Month: time.July}

	events := NormalizeAll([]Record{
		{Kind: model.KindActivity, Title: "A", Date: "2025/07/01"},
		{Kind: model.KindActivity, Title: "broken", Date: ""},
		{Kind: model.KindCustom, Title: "B", Date: "nonsense"},
		{Kind: model.KindCustom, Title: "C", Date: "20250702"},
	}, view)

	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Label)
	assert.Equal(t, "C", events[1].Label)
}
