package grid

import (
	"errors"
	"strings"

	appLog "github.com/saadx01/events-calender/internal/log"
	"github.com/saadx01/events-calender/internal/model"
)

// Record is the tagged union of validated upstream records handed to
// the normalizer. The upstream client builds these from raw JSON; by
// the time a Record exists its shape is known, only its field values
// remain untrusted.
type Record struct {
	Kind     model.SourceKind
	Title    string
	Date     string // raw upstream encoding, see NormalizeDate
	Color    string
	Category string // custom events only
}

var errEmptyDate = errors.New("empty date string")

// NormalizeDate converts the two upstream date encodings into ISO
// YYYY-MM-DD:
//
//   - slash-delimited "2025/07/10" -> "2025-07-10"
//   - compact digits  "20250710"   -> "2025-07-10"
//
// Anything else is malformed and returns an error.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errEmptyDate
	}

	if strings.Contains(raw, "/") {
		iso := strings.ReplaceAll(raw, "/", "-")
		if !validISODate(iso) {
			return "", errors.New("malformed slash date " + raw)
		}
		return iso, nil
	}

	if len(raw) != 8 || !allDigits(raw) {
		return "", errors.New("malformed compact date " + raw)
	}
	iso := raw[:4] + "-" + raw[4:6] + "-" + raw[6:]
	if !validISODate(iso) {
		return "", errors.New("malformed compact date " + raw)
	}
	return iso, nil
}

// Normalize reduces a validated upstream record to a model.Event. The
// second return is false when the record must be dropped: malformed
// date, or a note belonging to a different month than the view.
func Normalize(rec Record, view model.ViewMonth) (model.Event, bool) {
	iso, err := NormalizeDate(rec.Date)
	if err != nil {
		appLog.Debug("dropping record with bad date", "kind", string(rec.Kind), "date", rec.Date)
		return model.Event{}, false
	}

	ev := model.Event{
		ISODate: iso,
		Label:   rec.Title,
		Kind:    rec.Kind,
		Color:   rec.Color,
	}

	switch rec.Kind {
	case model.KindActivity:
		ev.Category = model.MonthlyBucket
	case model.KindCustom:
		ev.Category = rec.Category
		if ev.Category == "" {
			ev.Category = model.DefaultCategory
		}
	case model.KindNote:
		// Notes only join the aggregation for their own month; other
		// months keep them stored for their own future view.
		if !view.Contains(iso) {
			return model.Event{}, false
		}
	default:
		appLog.Debug("dropping record with unknown kind", "kind", string(rec.Kind))
		return model.Event{}, false
	}

	return ev, true
}

// NormalizeAll normalizes a batch, silently skipping dropped records.
// A malformed record never aborts the rest of the batch.
func NormalizeAll(recs []Record, view model.ViewMonth) []model.Event {
	out := make([]model.Event, 0, len(recs))
	for _, rec := range recs {
		if ev, ok := Normalize(rec, view); ok {
			out = append(out, ev)
		}
	}
	return out
}

func validISODate(s string) bool {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return false
	}
	return allDigits(s[:4]) && allDigits(s[5:7]) && allDigits(s[8:])
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
