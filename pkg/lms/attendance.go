package lms

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Report is one course's attendance summary, as printed on the attendance
// activity's summary view.
type Report struct {
	Name                        string `json:"name" csv:"name"`
	TakenSessions               string `json:"taken_sessions" csv:"taken_sessions"`
	PointsOverTakenSessions     string `json:"points_over_taken_sessions" csv:"points_over_taken_sessions"`
	PercentageOverTakenSessions string `json:"percentage_over_taken_sessions" csv:"percentage_over_taken_sessions"`
	TotalNumberOfSessions       string `json:"total_number_of_sessions" csv:"total_number_of_sessions"`
	PointsOverAllSessions       string `json:"points_over_all_sessions" csv:"points_over_all_sessions"`
	PercentageOverAllSessions   string `json:"percentage_over_all_sessions" csv:"percentage_over_all_sessions"`
	MaximumPossiblePoints       string `json:"maximum_possible_points" csv:"maximum_possible_points"`
	MaximumPossiblePercentage   string `json:"maximum_possible_percentage" csv:"maximum_possible_percentage"`
}

var reportFields = []string{
	"Name",
	"Taken Sessions",
	"Points Over Taken Sessions",
	"Percentage Over Taken Sessions",
	"Total Number Of Sessions",
	"Points Over All Sessions",
	"Percentage Over All Sessions",
	"Maximum Possible Points",
	"Maximum Possible Percentage",
}

// Fields returns the human readable column headers, in Values order.
func (r Report) Fields() []string {
	return append([]string(nil), reportFields...)
}

func (r Report) Values() []string {
	return []string{
		r.Name,
		r.TakenSessions,
		r.PointsOverTakenSessions,
		r.PercentageOverTakenSessions,
		r.TotalNumberOfSessions,
		r.PointsOverAllSessions,
		r.PercentageOverAllSessions,
		r.MaximumPossiblePoints,
		r.MaximumPossiblePercentage,
	}
}

func (r Report) String() string {
	var sb strings.Builder
	values := r.Values()
	for i, field := range reportFields {
		if i > 0 {
			sb.WriteByte('\n')
		}
		value := values[i]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&sb, "%s: %s", field, value)
	}
	return sb.String()
}

// statCells is how many cells the summary table body must have: eight
// label/value pairs.
const statCells = 16

type attendanceTable struct {
	report *Report
}

// UnmarshalDoc reads every second cell of the first summary table body.
func (t attendanceTable) UnmarshalDoc(doc *goquery.Document) error {
	body := doc.Find(".attlist tbody").First()
	if body.Length() == 0 {
		return ErrMalformedTable
	}
	cells := body.Find("td")
	if cells.Length() < statCells {
		return fmt.Errorf("%w: %d cells, want %d", ErrMalformedTable, cells.Length(), statCells)
	}
	cell := func(i int) string {
		return strings.TrimSpace(cells.Eq(i).Text())
	}

	r := t.report
	r.TakenSessions = cell(1)
	r.PointsOverTakenSessions = cell(3)
	r.PercentageOverTakenSessions = cell(5)
	r.TotalNumberOfSessions = cell(7)
	r.PointsOverAllSessions = cell(9)
	r.PercentageOverAllSessions = cell(11)
	r.MaximumPossiblePoints = cell(13)
	r.MaximumPossiblePercentage = cell(15)
	return nil
}

// FetchReport scrapes the summary view of the attendance activity moduleID.
// A page without the summary table fails with a *ParseError wrapping
// ErrMalformedTable.
func (s *Session) FetchReport(ctx context.Context, moduleID, name string) (*Report, error) {
	reportUrl := s.client.endpoint("mod/attendance/view.php", url.Values{
		"id":   {moduleID},
		"view": {"5"},
	})
	report := &Report{Name: name}
	if err := s.client.scrape(ctx, s.col, reportUrl, attendanceTable{report}); err != nil {
		return nil, err
	}
	return report, nil
}
