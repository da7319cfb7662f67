package timetable

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

const DefaultReportUrl = "http://time-table.sicsr.ac.in/report.php"

// Query describes one report.php request. Use NewQuery to get the defaults
// the report endpoint expects for a CSV export of every entry.
type Query struct {
	Start time.Time
	End   time.Time

	AreaMatch    string
	RoomMatch    string
	TypeMatch    []string
	NameMatch    string
	DescrMatch   string
	CreatorMatch string

	// 0 = tentative, 1 = confirmed, 2 = both
	MatchConfirmed int

	Output       int
	OutputFormat int
	SortBy       string
	SumBy        string
	Phase        int
	DataTable    int
}

func NewQuery(start, end time.Time) Query {
	return Query{
		Start:          start,
		End:            end,
		MatchConfirmed: 2,
		Output:         0,
		OutputFormat:   1, // csv
		SortBy:         "s",
		SumBy:          "d",
		Phase:          2,
		DataTable:      1,
	}
}

func (q Query) Values() url.Values {
	values := url.Values{}
	values.Set("from_day", zpad(q.Start.Day()))
	values.Set("from_month", zpad(int(q.Start.Month())))
	values.Set("from_year", strconv.Itoa(q.Start.Year()))
	values.Set("to_day", zpad(q.End.Day()))
	values.Set("to_month", zpad(int(q.End.Month())))
	values.Set("to_year", strconv.Itoa(q.End.Year()))
	values.Set("areamatch", q.AreaMatch)
	values.Set("roommatch", q.RoomMatch)
	for _, t := range q.TypeMatch {
		values.Add("typematch[]", t)
	}
	values.Set("namematch", q.NameMatch)
	values.Set("descrmatch", q.DescrMatch)
	values.Set("creatormatch", q.CreatorMatch)
	values.Set("match_confirmed", strconv.Itoa(q.MatchConfirmed))
	values.Set("output", strconv.Itoa(q.Output))
	values.Set("output_format", strconv.Itoa(q.OutputFormat))
	values.Set("sortby", q.SortBy)
	values.Set("sumby", q.SumBy)
	values.Set("phase", strconv.Itoa(q.Phase))
	values.Set("datatable", strconv.Itoa(q.DataTable))
	return values
}

// URL returns base with the query's parameters replacing any existing ones.
func (q Query) URL(base *url.URL) *url.URL {
	u := *base
	u.RawQuery = q.Values().Encode()
	u.Fragment = ""
	return &u
}

func zpad(v int) string {
	return fmt.Sprintf("%02d", v)
}
