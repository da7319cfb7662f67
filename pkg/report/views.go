package report

import (
	"io"

	"github.com/openswoop/chronicler/pkg/lms"
	"github.com/openswoop/chronicler/pkg/schedule"
	"github.com/openswoop/chronicler/pkg/timetable"
)

type entryView struct {
	Date string `csv:"date"`
	timetable.EntryView
	Type   string `csv:"type"`
	Status string `csv:"status"`
}

type freeView struct {
	Room  string `csv:"room"`
	Start string `csv:"start"`
	End   string `csv:"end"`
}

// timetableRows flattens day buckets into one row per entry, in day order.
func timetableRows(days []schedule.Day) []entryView {
	var rows []entryView
	for _, d := range days {
		for _, e := range d.Entries {
			rows = append(rows, entryView{
				Date:      d.Key(),
				EntryView: e.View(),
				Type:      e.Type,
				Status:    e.Status,
			})
		}
	}
	return rows
}

func WriteTimetable(w io.Writer, days []schedule.Day) error {
	return MarshalCsv(timetableRows(days), w)
}

// freeRows emits one row per free interval.
func freeRows(rooms []schedule.RoomFree) []freeView {
	var rows []freeView
	for _, r := range rooms {
		for _, i := range r.Free {
			rows = append(rows, freeView{Room: r.Room, Start: i.Start.String(), End: i.End.String()})
		}
	}
	return rows
}

func WriteFree(w io.Writer, rooms []schedule.RoomFree) error {
	return MarshalCsv(freeRows(rooms), w)
}

func WriteAttendance(w io.Writer, reports []lms.Report) error {
	return MarshalCsv(reports, w)
}
