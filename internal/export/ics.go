package export

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/saadx01/events-calender/internal/grid"
)

// RenderICS serializes the visible month as an iCalendar feed: one
// all-day VEVENT per label line, so calendar apps show exactly what
// the printed grid shows.
func RenderICS(p grid.Populated) string {
	cal := ics.NewCalendar()
	cal.SetProductId("-//Events Calender//Month Export//EN")
	cal.SetMethod(ics.MethodPublish)

	stamp := time.Now().UTC()
	for _, cell := range p.Cells {
		if cell.Day == 0 {
			continue
		}
		day := time.Date(p.View.Year, p.View.Month, cell.Day, 0, 0, 0, 0, time.UTC)
		for i, label := range cell.Labels {
			if label == "" {
				continue
			}
			uid := fmt.Sprintf("%s-%d@events-calender", day.Format("20060102"), i)
			e := cal.AddEvent(uid)
			e.SetSummary(label)
			e.SetAllDayStartAt(day)
			e.SetAllDayEndAt(day.AddDate(0, 0, 1))
			e.SetDtStampTime(stamp)
		}
	}

	return cal.Serialize()
}
