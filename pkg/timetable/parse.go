package timetable

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// reportLayout is the timestamp format of the "Start time", "End time" and
// "Last updated" columns, e.g. "09:30:00 - Tuesday 05 March 2024".
const reportLayout = "15:04:05 - Monday 02 January 2006"

var ErrMissingColumn = errors.New("missing column")

// reportRow mirrors one line of the CSV export. The tags are the report's
// human readable column labels.
type reportRow struct {
	BriefDesc   string         `csv:"Brief description"`
	Area        string         `csv:"Area"`
	Room        string         `csv:"Room"`
	Start       reportTime     `csv:"Start time"`
	End         reportTime     `csv:"End time"`
	Duration    reportDuration `csv:"Duration"`
	FullDesc    string         `csv:"Full Description"`
	Type        string         `csv:"Type"`
	Creator     string         `csv:"Created by"`
	Status      string         `csv:"Confirmation status"`
	LastUpdated reportTime     `csv:"Last updated"`
}

var requiredColumns = []string{
	"Area", "Room", "Start time", "End time", "Duration", "Brief description",
	"Full Description", "Type", "Created by", "Confirmation status", "Last updated",
}

// reportTime holds the wall clock reading of a report timestamp; the location
// is applied when the row becomes an Entry.
type reportTime time.Time

func (t *reportTime) UnmarshalCSV(s string) error {
	parsed, err := time.Parse(reportLayout, strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("bad timestamp %q", s)
	}
	*t = reportTime(parsed)
	return nil
}

func (t reportTime) MarshalCSV() (string, error) {
	return time.Time(t).Format(reportLayout), nil
}

func (t reportTime) in(loc *time.Location) time.Time {
	w := time.Time(t)
	return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), 0, loc)
}

type reportDuration struct {
	time.Duration
}

func (d *reportDuration) UnmarshalCSV(s string) error {
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d reportDuration) MarshalCSV() (string, error) {
	return d.Duration.String(), nil
}

var durationUnits = map[string]time.Duration{
	"week":   7 * 24 * time.Hour,
	"day":    24 * time.Hour,
	"hour":   time.Hour,
	"minute": time.Minute,
	"second": time.Second,
}

// ParseDuration reads the report's "<number> <unit>" durations such as
// "1 hours", "30 minutes" or "1.5 hours".
func ParseDuration(raw string) (time.Duration, error) {
	fields := strings.Fields(raw)
	if len(fields) != 2 {
		return 0, fmt.Errorf("bad duration %q", raw)
	}
	val, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q", raw)
	}
	unit, ok := durationUnits[strings.TrimSuffix(strings.ToLower(fields[1]), "s")]
	if !ok {
		return 0, fmt.Errorf("bad duration unit %q", fields[1])
	}
	return time.Duration(val * float64(unit)), nil
}

// ParseReport decodes a CSV report into entries in the order they appear.
// Timestamps are read as wall clock time in loc. Decoding stops at the first
// bad row and returns a *ParseError naming the line and column.
func ParseReport(r io.Reader, loc *time.Location) ([]Entry, error) {
	if loc == nil {
		loc = time.Local
	}
	reader := gocsv.LazyCSVReader(skipBOM(r))
	rows, err := reader.ReadAll()
	if err != nil {
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			return nil, &ParseError{Line: csvErr.Line, Err: csvErr.Err}
		}
		return nil, &ParseError{Err: err}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if err := checkColumns(header); err != nil {
		return nil, err
	}
	if len(rows) == 1 {
		return nil, nil
	}

	var decoded []reportRow
	if err := gocsv.UnmarshalCSV(&rowsReader{rows: rows}, &decoded); err != nil {
		var csvErr *csv.ParseError
		if errors.As(err, &csvErr) {
			column := ""
			if csvErr.Column > 0 && csvErr.Column <= len(header) {
				column = header[csvErr.Column-1]
			}
			return nil, &ParseError{Line: csvErr.Line, Column: column, Err: csvErr.Err}
		}
		return nil, &ParseError{Err: err}
	}

	entries := make([]Entry, 0, len(decoded))
	for i, row := range decoded {
		entry := row.toEntry(loc)
		if entry.End.Before(entry.Start) {
			return nil, &ParseError{Line: i + 2, Column: "End time", Err: errors.New("ends before it starts")}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// skipBOM drops a leading UTF-8 byte order mark so a quoted first header
// field still parses as quoted.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(3)
	}
	return br
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func checkColumns(header []string) error {
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, col := range requiredColumns {
		if !seen[col] {
			return &ParseError{Line: 1, Column: col, Err: ErrMissingColumn}
		}
	}
	return nil
}

func (row reportRow) toEntry(loc *time.Location) Entry {
	return Entry{
		Area:        strings.TrimSpace(row.Area),
		Room:        strings.TrimSpace(row.Room),
		Start:       row.Start.in(loc),
		End:         row.End.in(loc),
		Duration:    row.Duration.Duration,
		BriefDesc:   strings.TrimSpace(row.BriefDesc),
		FullDesc:    strings.TrimSpace(row.FullDesc),
		Type:        strings.TrimSpace(row.Type),
		Creator:     strings.TrimSpace(row.Creator),
		Status:      strings.TrimSpace(row.Status),
		LastUpdated: row.LastUpdated.in(loc),
	}
}

// rowsReader replays rows that were already read so the header can be
// checked before gocsv maps it onto reportRow.
type rowsReader struct {
	rows [][]string
	pos  int
}

func (r *rowsReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.pos]
	r.pos++
	return row, nil
}

func (r *rowsReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.pos:]
	r.pos = len(r.rows)
	return rest, nil
}
