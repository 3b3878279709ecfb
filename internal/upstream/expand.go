package upstream

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/saadx01/events-calender/internal/grid"
	appLog "github.com/saadx01/events-calender/internal/log"
	"github.com/saadx01/events-calender/internal/model"
)

// maxOccurrencesPerEvent caps recurrence expansion. A month view can
// show at most 31 occurrences of anything; the cap only guards against
// pathological rules.
const maxOccurrencesPerEvent = 100

// ExpandCustom expands a custom event into its occurrences inside the
// view month. Events without a recurrence rule pass through unchanged,
// even when they fall outside the month (the aggregator simply never
// looks their date up). A rule that fails to parse degrades to the
// base event rather than losing it.
func ExpandCustom(ev CustomEvent, view model.ViewMonth) []CustomEvent {
	if ev.RRule == "" {
		return []CustomEvent{ev}
	}

	iso, err := grid.NormalizeDate(ev.Date)
	if err != nil {
		// The normalizer will drop it; no point expanding.
		return []CustomEvent{ev}
	}
	start, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return []CustomEvent{ev}
	}

	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		appLog.Error("custom event rrule parse failed", err, "title", ev.Title, "rrule", ev.RRule)
		return []CustomEvent{ev}
	}
	r.DTStart(start)

	view = view.Normalized()
	occTimes := r.Between(view.FirstDay(), view.LastDay().Add(24*time.Hour-time.Nanosecond), true)
	if len(occTimes) > maxOccurrencesPerEvent {
		appLog.Warn("custom event expansion truncated", "title", ev.Title, "cap", maxOccurrencesPerEvent)
		occTimes = occTimes[:maxOccurrencesPerEvent]
	}

	out := make([]CustomEvent, 0, len(occTimes))
	for _, t := range occTimes {
		occ := ev
		occ.Date = t.Format("2006/01/02")
		occ.RRule = ""
		out = append(out, occ)
	}
	return out
}
