package model

import (
	"fmt"
	"time"
)

// SourceKind identifies which upstream stream a normalized event came
// from. It decides filter bucketing and merge order within a day.
type SourceKind string

const (
	KindActivity SourceKind = "activity"
	KindCustom   SourceKind = "custom"
	KindNote     SourceKind = "note"
)

// MonthlyBucket is the filter bucket holding site-wide activities.
// Custom events bucket under their own category instead.
const MonthlyBucket = "monthly"

// DefaultCategory is assigned to custom events whose upstream record
// carries no category field.
const DefaultCategory = "custom"

// ViewMonth is the month currently displayed or exported. Month is
// 1-based (time.Month); out-of-range values are normalized by date
// arithmetic before use.
type ViewMonth struct {
	Year  int
	Month time.Month
}

// Normalized returns the view with month overflow folded into the year
// (month 13 becomes January of the next year, month 0 December of the
// previous one).
func (v ViewMonth) Normalized() ViewMonth {
	t := time.Date(v.Year, v.Month, 1, 0, 0, 0, 0, time.UTC)
	return ViewMonth{Year: t.Year(), Month: t.Month()}
}

// FirstDay returns midnight UTC on the 1st of the month.
func (v ViewMonth) FirstDay() time.Time {
	return time.Date(v.Year, v.Month, 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns midnight UTC on the final day of the month.
func (v ViewMonth) LastDay() time.Time {
	return v.FirstDay().AddDate(0, 1, -1)
}

// Days returns the number of days in the month.
func (v ViewMonth) Days() int {
	return v.LastDay().Day()
}

// Contains reports whether the ISO date string falls inside this month.
func (v ViewMonth) Contains(isoDate string) bool {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return false
	}
	return t.Year() == v.Year && t.Month() == v.Month
}

// ISODate returns the YYYY-MM-DD string for the given day of this month.
func (v ViewMonth) ISODate(day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", v.Year, int(v.Month), day)
}

func (v ViewMonth) String() string {
	return fmt.Sprintf("%s %d", v.Month.String(), v.Year)
}

// Event is the normalized form that every upstream record is reduced to
// before aggregation. Immutable after normalization.
type Event struct {
	ISODate  string
	Label    string
	Kind     SourceKind
	Category string // filter bucket; MonthlyBucket for activities
	Color    string
}

// NoteRecord tracks one member-private note for a date. RemoteID is
// empty until the remote store has confirmed a create.
type NoteRecord struct {
	ISODate  string
	Text     string
	RemoteID string
}

// Preferences holds a member's presentation choices.
type Preferences struct {
	Member     string   `json:"member"`
	BgImage    string   `json:"bg_image"`
	FontSize   int      `json:"font_size"`
	HiddenCats []string `json:"hidden_categories"`
}

// Hidden reports whether the given category is filtered out.
func (p Preferences) Hidden(category string) bool {
	for _, c := range p.HiddenCats {
		if c == category {
			return true
		}
	}
	return false
}
