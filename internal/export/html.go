// Package export turns a populated calendar grid into printable
// documents. Both realizations (local headless-Chromium PDF and the
// remote document-generation service) consume the exact same populated
// grid; the grid is the interop contract, not the rendering method.
package export

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/saadx01/events-calender/internal/grid"
)

// PageOptions fixes the printable page geometry and chrome.
type PageOptions struct {
	Width   int // logical units, e.g. 1080
	Height  int // logical units, e.g. 794
	LogoURL string
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type cellView struct {
	Day     int
	Lines   []string
	Outside bool
}

type pageView struct {
	Title     string
	Year      int
	Month     string
	Weekdays  []string
	Rows      [][]cellView
	BgImage   template.URL
	LogoURL   template.URL
	FontSize  int
	Width     int
	Height    int
	RowHeight template.CSS // height per body row
}

var pageTmpl = template.Must(template.New("calendar").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Calendar - {{.Month}} {{.Year}}</title>
<style>
html, body { margin: 0; padding: 0; }
@page { size: A4 landscape; margin: 0; }
#calendar {
  width: {{.Width}}px; height: {{.Height}}px;
  margin: auto;
  background-image: url('{{.BgImage}}');
  background-size: cover;
  background-position: center;
  font-family: 'Roboto', sans-serif;
}
#calendar-table {
  width: 100%; height: 100%;
  border-spacing: 5px;
  table-layout: fixed;
}
#calendar th {
  text-align: center; padding: 10px;
  border-radius: 5px;
  background-color: #7e57c2; color: white;
}
#calendar-table td {
  text-align: left;
  padding: 10px;
  border-radius: 5px;
  vertical-align: top;
  height: {{.RowHeight}};
}
#calendar-table td:not(.outside) {
  background: linear-gradient(to bottom right, #fff, #f2f2f2);
  color: #000;
}
#calendar-table td.outside {
  background-color: #f9f9f9;
  color: #aaa;
  opacity: 0.6;
}
.date-number {
  position: absolute;
  top: 2px; right: 2px;
  font-weight: bold;
  font-size: 14px;
}
.event {
  padding: 2px 4px;
  font-size: {{.FontSize}}px;
  margin-top: 6px;
}
.cell-content {
  position: relative;
  box-sizing: border-box;
  padding-top: 10px;
}
#page-header {
  text-align: center;
  padding: 10px;
}
#month-year { background: white; border-radius: 50px; }
#month-year h2 { margin: 10px; color: #1C0D5A; }
.highlight { color: #f76a0c; }
</style>
</head>
<body>
<div id="calendar">
<table id="page-header" style="width: 100%;">
<tr>
<td style="width: 25%"></td>
<td id="month-year" colspan="5"><h2>{{.Month}} <span class="highlight">{{.Year}}</span> Calendar</h2></td>
<td style="text-align: right; padding-right: 30px;">{{if .LogoURL}}<img src="{{.LogoURL}}" width="150" />{{end}}</td>
</tr>
</table>
<table id="calendar-table">
<thead>
<tr>{{range .Weekdays}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td{{if .Outside}} class="outside"{{end}}><div class="cell-content">{{if .Day}}<div class="date-number">{{.Day}}</div>{{end}}{{range .Lines}}<div class="event">{{.}}</div>{{end}}</div></td>{{end}}</tr>
{{end}}</tbody>
</table>
</div>
</body>
</html>
`))

// RenderHTML builds the printable document for a populated grid. The
// body is partitioned into the grid's actual row count, so a 5-row
// month gets taller cells than a 6-row one.
func RenderHTML(p grid.Populated, opts PageOptions) (string, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return "", fmt.Errorf("render html: bad page geometry %dx%d", opts.Width, opts.Height)
	}
	if p.Rows <= 0 || len(p.Cells) != p.Rows*grid.DaysPerWeek {
		return "", fmt.Errorf("render html: grid has %d cells for %d rows", len(p.Cells), p.Rows)
	}

	rows := make([][]cellView, p.Rows)
	for r := 0; r < p.Rows; r++ {
		row := make([]cellView, grid.DaysPerWeek)
		for c := 0; c < grid.DaysPerWeek; c++ {
			cell := p.Cells[r*grid.DaysPerWeek+c]
			row[c] = cellView{
				Day:     cell.Day,
				Lines:   cell.Labels,
				Outside: cell.Day == 0,
			}
		}
		rows[r] = row
	}

	view := pageView{
		Year:      p.View.Year,
		Month:     p.View.Month.String(),
		Weekdays:  weekdayNames,
		Rows:      rows,
		BgImage:   template.URL(p.BgImage),
		LogoURL:   template.URL(opts.LogoURL),
		FontSize:  p.FontSize,
		Width:     opts.Width,
		Height:    opts.Height,
		RowHeight: template.CSS(fmt.Sprintf("calc(100%% / %d)", p.Rows)),
	}

	var b strings.Builder
	if err := pageTmpl.Execute(&b, view); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return b.String(), nil
}
