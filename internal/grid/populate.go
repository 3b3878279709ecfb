package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saadx01/events-calender/internal/model"
)

// WireCells is the number of day/event slots the renderer wire format
// always carries, regardless of the layout's row count.
const WireCells = MaxRows * DaysPerWeek

// Cell is one populated grid cell: its position, its day of month
// (0 for padding) and the labels shown in it.
type Cell struct {
	Index  int
	Day    int
	Labels []string
}

// Label returns the newline-joined label blob rendered in the cell.
func (c Cell) Label() string {
	return strings.Join(c.Labels, "\n")
}

// Populated is the fully positioned calendar data for one month. It is
// the single interop contract: both the on-page renderer and the export
// realizations consume exactly this shape. It is derived state,
// recomputed on every view, filter or note change, never persisted.
type Populated struct {
	View     model.ViewMonth
	Rows     int
	Cells    []Cell
	BgImage  string
	FontSize int
	AsOf     string // last day of month, ISO; versioning field for the export target
}

// PresentationOptions carries the member presentation state into the
// populated grid.
type PresentationOptions struct {
	BgImage  string
	FontSize int
}

// Populate merges a layout with aggregated per-date labels. Every cell
// index 0..Rows*7-1 has a defined entry; padding cells and days without
// events get empty label lists.
func Populate(layout Layout, byDate ByDate, opts PresentationOptions) Populated {
	cells := make([]Cell, len(layout.Cells))
	for i, lc := range layout.Cells {
		cell := Cell{Index: lc.Index, Day: lc.Day}
		if lc.Day > 0 {
			iso := layout.View.ISODate(lc.Day)
			if labels, ok := byDate[iso]; ok {
				cell.Labels = append([]string(nil), labels...)
			}
		}
		cells[i] = cell
	}

	return Populated{
		View:     layout.View,
		Rows:     layout.Rows,
		Cells:    cells,
		BgImage:  opts.BgImage,
		FontSize: opts.FontSize,
		AsOf:     layout.View.LastDay().Format("2006-01-02"),
	}
}

// MarshalJSON emits the renderer wire format the document-generation
// service has always consumed: day keys are 1-based ("day1".."day42",
// empty string for padding), event keys 0-based ("event0".."event41"),
// both referring to the same cell. All 42 slots are emitted even for
// 5-row months.
func (p Populated) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, WireCells*2+7)
	out["month"] = p.View.Month.String()
	out["year"] = p.View.Year
	out["rows"] = p.Rows
	out["bg_image"] = p.BgImage
	out["date"] = p.AsOf
	out["fontSize"] = fmt.Sprintf("%dpx", p.FontSize)

	for i := 0; i < WireCells; i++ {
		dayKey := "day" + strconv.Itoa(i+1)
		eventKey := "event" + strconv.Itoa(i)
		if i < len(p.Cells) && p.Cells[i].Day > 0 {
			out[dayKey] = p.Cells[i].Day
		} else {
			out[dayKey] = ""
		}
		if i < len(p.Cells) {
			out[eventKey] = p.Cells[i].Label()
		} else {
			out[eventKey] = ""
		}
	}

	return json.Marshal(out)
}

// ParseRenderPayload reads the wire format back into a Populated grid.
// The round trip is structural: day positions and label groupings are
// recovered exactly; presentation fields ride along.
func ParseRenderPayload(data []byte) (Populated, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Populated{}, fmt.Errorf("parse render payload: %w", err)
	}

	monthName, _ := raw["month"].(string)
	month, err := parseMonthName(monthName)
	if err != nil {
		return Populated{}, err
	}
	year, err := wireInt(raw["year"])
	if err != nil {
		return Populated{}, fmt.Errorf("parse render payload: year: %w", err)
	}
	rows, err := wireInt(raw["rows"])
	if err != nil || rows < MinRows || rows > MaxRows {
		return Populated{}, errors.New("parse render payload: bad row count")
	}

	p := Populated{
		View: model.ViewMonth{Year: year, Month: month},
		Rows: rows,
	}
	if s, ok := raw["bg_image"].(string); ok {
		p.BgImage = s
	}
	if s, ok := raw["date"].(string); ok {
		p.AsOf = s
	}
	if s, ok := raw["fontSize"].(string); ok {
		n, convErr := strconv.Atoi(strings.TrimSuffix(s, "px"))
		if convErr == nil {
			p.FontSize = n
		}
	}

	p.Cells = make([]Cell, rows*DaysPerWeek)
	for i := range p.Cells {
		cell := Cell{Index: i}
		if v, ok := raw["day"+strconv.Itoa(i+1)]; ok {
			if day, dayErr := wireInt(v); dayErr == nil && day > 0 {
				cell.Day = day
			}
		}
		if s, ok := raw["event"+strconv.Itoa(i)].(string); ok && s != "" {
			cell.Labels = strings.Split(s, "\n")
		}
		p.Cells[i] = cell
	}

	return p, nil
}

func parseMonthName(name string) (time.Month, error) {
	for m := time.January; m <= time.December; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("parse render payload: unknown month %q", name)
}

// wireInt accepts the numeric encodings json.Unmarshal may hand back
// for a wire integer. Empty strings are not integers.
func wireInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("not an integer: %v", v)
}
