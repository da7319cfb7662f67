package report

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/openswoop/chronicler/pkg/schedule"
	"github.com/openswoop/chronicler/pkg/timetable"
)

const productId = "-//openswoop//chronicler//EN"

// eventId is stable across exports so calendar clients update rather than
// duplicate events.
func eventId(e timetable.Entry) string {
	key := fmt.Sprintf("%s|%s|%d|%s", e.Area, e.Room, e.Start.Unix(), e.FullDesc)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String() + "@chronicler"
}

// Calendar builds an iCalendar with one event per entry in days.
func Calendar(name string, days []schedule.Day, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productId)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	for _, d := range days {
		for _, e := range d.Entries {
			event := cal.AddEvent(eventId(e))
			event.SetDtStampTime(now)
			event.SetStartAt(e.Start)
			event.SetEndAt(e.End)
			event.SetSummary(e.FullDesc)
			event.SetLocation(e.Room)
			event.SetDescription(fmt.Sprintf("%s (%s) - %s", e.Type, e.BriefDesc, e.Status))
			if !e.LastUpdated.IsZero() {
				event.SetModifiedAt(e.LastUpdated)
			}
		}
	}
	return cal
}

func WriteCalendar(w io.Writer, name string, days []schedule.Day, now time.Time) error {
	_, err := io.WriteString(w, Calendar(name, days, now).Serialize())
	return err
}
