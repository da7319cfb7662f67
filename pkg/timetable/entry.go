package timetable

import (
	"fmt"
	"time"
)

// Entry is one booking from the timetable report.
type Entry struct {
	Area        string        `json:"area" csv:"area"`
	Room        string        `json:"room" csv:"room"`
	Start       time.Time     `json:"start" csv:"start"`
	End         time.Time     `json:"end" csv:"end"`
	Duration    time.Duration `json:"duration" csv:"-"`
	BriefDesc   string        `json:"brief_desc" csv:"brief_desc"`
	FullDesc    string        `json:"full_desc" csv:"full_desc"`
	Type        string        `json:"type" csv:"type"`
	Creator     string        `json:"creator" csv:"creator"`
	Status      string        `json:"status" csv:"status"`
	LastUpdated time.Time     `json:"last_updated" csv:"last_updated"`
}

// EntryView is the compact shape used when listing a day's classes.
type EntryView struct {
	Start    string `json:"start" csv:"start"`
	End      string `json:"end" csv:"end"`
	Class    string `json:"class" csv:"class"`
	Room     string `json:"room" csv:"room"`
	Duration int    `json:"duration" csv:"duration"` // minutes
}

func (e Entry) View() EntryView {
	return EntryView{
		Start:    e.Start.Format("15:04"),
		End:      e.End.Format("15:04"),
		Class:    e.FullDesc,
		Room:     e.Room,
		Duration: int(e.Duration / time.Minute),
	}
}

// Date is the calendar day the entry starts on, at midnight in the entry's location.
func (e Entry) Date() time.Time {
	y, m, d := e.Start.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Start.Location())
}

func (e Entry) String() string {
	return fmt.Sprintf("%s - %s: %s (%s) - %s",
		e.Start.Format("15:04 02/01"), e.End.Format("15:04 02/01"), e.FullDesc, e.Duration, e.Status)
}
