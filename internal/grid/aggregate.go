package grid

import (
	"github.com/saadx01/events-calender/internal/model"
)

// ByDate maps an ISO date to the ordered labels shown in that day's
// cell. Dates with no events have no entry.
type ByDate map[string][]string

// Filter removes events whose filter bucket the member has hidden.
// Activities live in the "monthly" bucket, custom events in their own
// category; notes are never filtered.
func Filter(events []model.Event, prefs model.Preferences) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Kind != model.KindNote && prefs.Hidden(ev.Category) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Aggregate groups normalized events by date. Within a date, activity
// and custom-event labels keep their arrival order and note labels are
// appended after all of them. Duplicate labels are kept. The fold is
// pure: identical input always produces identical output.
func Aggregate(events []model.Event) ByDate {
	byDate := make(ByDate)

	for _, ev := range events {
		if ev.Kind == model.KindNote {
			continue
		}
		byDate[ev.ISODate] = append(byDate[ev.ISODate], ev.Label)
	}

	for _, ev := range events {
		if ev.Kind != model.KindNote {
			continue
		}
		byDate[ev.ISODate] = append(byDate[ev.ISODate], ev.Label)
	}

	return byDate
}
