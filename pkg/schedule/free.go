package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openswoop/chronicler/pkg/timetable"
)

// Clock is a time of day in seconds since midnight.
type Clock int

const (
	DayStart Clock = 7*3600 + 30*60
	DayEnd   Clock = 20*3600 + 30*60
	midnight Clock = 24 * 3600

	// Hour boundaries deciding whether the edges of the day are free.
	openHour  = 7
	closeHour = 20
)

func NewClock(hour, minute int) Clock {
	return Clock(hour*3600 + minute*60)
}

// ClockOf reads the wall clock time of t in its own location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// ParseClock accepts "15:04" or "15:04:05".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return 0, fmt.Errorf("bad time of day %q", s)
}

func (c Clock) Hour() int {
	return int(c) / 3600
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/3600, int(c)%3600/60)
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(b []byte) error {
	parsed, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

type Interval struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Contains reports whether at falls in [Start, End).
func (i Interval) Contains(at Clock) bool {
	return i.Start <= at && at < i.End
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

type RoomFree struct {
	Room string     `json:"room"`
	Free []Interval `json:"free"`
}

type FreeOptions struct {
	// Room limits the result to one room; "" or "All" keeps every room.
	Room string
	// At keeps only the intervals containing this time of day.
	At *Clock
}

func (o FreeOptions) allRooms() bool {
	return o.Room == "" || strings.EqualFold(o.Room, "all")
}

// FreeIntervals computes the free windows of every booked room inside the
// 07:30-20:30 working day. entries are expected to cover a single day. Rooms
// with no bookings are left out rather than reported as free all day.
func FreeIntervals(entries []timetable.Entry, opts FreeOptions) []RoomFree {
	byRoom := make(map[string][]timetable.Entry)
	for _, e := range entries {
		if !opts.allRooms() && e.Room != opts.Room {
			continue
		}
		byRoom[e.Room] = append(byRoom[e.Room], e)
	}

	rooms := make([]string, 0, len(byRoom))
	for room := range byRoom {
		rooms = append(rooms, room)
	}
	timetable.SortRooms(rooms)

	var out []RoomFree
	for _, room := range rooms {
		free := roomGaps(byRoom[room])
		if opts.At != nil {
			free = containing(free, *opts.At)
		}
		if len(free) == 0 {
			continue
		}
		out = append(out, RoomFree{Room: room, Free: free})
	}
	return out
}

// roomGaps lists the free windows around a room's bookings. A leading window
// opens only when the first booking starts after the 07:00 hour, and a
// trailing one only when the room is released before the 20:00 hour. Gaps
// between bookings are measured from the latest end seen so far, so a booking
// nested inside a longer one never opens a gap.
func roomGaps(bookings []timetable.Entry) []Interval {
	if len(bookings) == 0 {
		return nil
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].Start.Before(bookings[j].Start)
	})

	var free []Interval
	start, cursor := span(bookings[0])
	if start.Hour() > openHour {
		free = appendClipped(free, DayStart, start)
	}
	for _, b := range bookings[1:] {
		start, end := span(b)
		if start > cursor {
			free = appendClipped(free, cursor, start)
		}
		if end > cursor {
			cursor = end
		}
	}
	if cursor.Hour() < closeHour {
		free = appendClipped(free, cursor, DayEnd)
	}
	return free
}

// span is the booking's clock range; a booking running past midnight ends at
// midnight.
func span(e timetable.Entry) (Clock, Clock) {
	start, end := ClockOf(e.Start), ClockOf(e.End)
	if e.End.After(e.Start) && !sameDay(e.Start, e.End) {
		end = midnight
	}
	return start, end
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func appendClipped(free []Interval, start, end Clock) []Interval {
	if start < DayStart {
		start = DayStart
	}
	if end > DayEnd {
		end = DayEnd
	}
	if start >= end {
		return free
	}
	return append(free, Interval{Start: start, End: end})
}

func containing(free []Interval, at Clock) []Interval {
	var out []Interval
	for _, i := range free {
		if i.Contains(at) {
			out = append(out, i)
		}
	}
	return out
}
