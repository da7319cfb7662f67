package schedule

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/openswoop/chronicler/pkg/timetable"
)

func booking(room string, startH, startM, endH, endM int) timetable.Entry {
	return timetable.Entry{
		Room:  room,
		Start: time.Date(2024, time.March, 5, startH, startM, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 5, endH, endM, 0, 0, time.UTC),
	}
}

func TestFreeIntervals_SingleBooking(t *testing.T) {
	got := FreeIntervals([]timetable.Entry{booking("601", 9, 0, 10, 0)}, FreeOptions{})
	want := []RoomFree{{Room: "601", Free: []Interval{
		{Start: NewClock(7, 30), End: NewClock(9, 0)},
		{Start: NewClock(10, 0), End: NewClock(20, 30)},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FreeIntervals mismatch (-want +got):\n%s", diff)
	}
}

func TestFreeIntervals_UnbookedRoomsAreOmitted(t *testing.T) {
	got := FreeIntervals([]timetable.Entry{booking("601", 9, 0, 10, 0)}, FreeOptions{Room: "602"})
	if len(got) != 0 {
		t.Fatalf("FreeIntervals = %v, want nothing for an unbooked room", got)
	}
	if got := FreeIntervals(nil, FreeOptions{}); len(got) != 0 {
		t.Fatalf("FreeIntervals(nil) = %v, want empty", got)
	}
}

func TestFreeIntervals_OverlapsAndEdges(t *testing.T) {
	entries := []timetable.Entry{
		booking("601", 12, 0, 13, 0),
		booking("601", 7, 0, 9, 0),
		booking("601", 8, 30, 11, 0),
		booking("601", 10, 0, 10, 30),
		booking("601", 19, 0, 21, 0),
	}
	got := FreeIntervals(entries, FreeOptions{Room: "All"})
	want := []RoomFree{{Room: "601", Free: []Interval{
		{Start: NewClock(11, 0), End: NewClock(12, 0)},
		{Start: NewClock(13, 0), End: NewClock(19, 0)},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FreeIntervals mismatch (-want +got):\n%s", diff)
	}
}

func TestFreeIntervals_HourBoundaryEdges(t *testing.T) {
	entries := []timetable.Entry{
		booking("601", 7, 45, 9, 0),
		booking("601", 18, 0, 20, 15),
		booking("602", 8, 0, 9, 0),
		booking("602", 18, 0, 19, 45),
	}
	got := FreeIntervals(entries, FreeOptions{})
	want := []RoomFree{
		{Room: "601", Free: []Interval{
			{Start: NewClock(9, 0), End: NewClock(18, 0)},
		}},
		{Room: "602", Free: []Interval{
			{Start: NewClock(7, 30), End: NewClock(8, 0)},
			{Start: NewClock(9, 0), End: NewClock(18, 0)},
			{Start: NewClock(19, 45), End: NewClock(20, 30)},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FreeIntervals mismatch (-want +got):\n%s", diff)
	}
}

func TestFreeIntervals_NestedBookingOpensNoGap(t *testing.T) {
	entries := []timetable.Entry{
		booking("601", 9, 0, 12, 0),
		booking("601", 10, 0, 11, 0),
		booking("601", 11, 30, 13, 0),
	}
	got := FreeIntervals(entries, FreeOptions{})
	want := []RoomFree{{Room: "601", Free: []Interval{
		{Start: NewClock(7, 30), End: NewClock(9, 0)},
		{Start: NewClock(13, 0), End: NewClock(20, 30)},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FreeIntervals mismatch (-want +got):\n%s", diff)
	}
}

func TestFreeIntervals_FullyBookedRoomIsOmitted(t *testing.T) {
	got := FreeIntervals([]timetable.Entry{booking("601", 7, 30, 20, 30)}, FreeOptions{})
	if len(got) != 0 {
		t.Fatalf("FreeIntervals = %v, want empty", got)
	}
}

func TestFreeIntervals_RoomOrderAndFilters(t *testing.T) {
	entries := []timetable.Entry{
		booking("Lab 2", 9, 0, 10, 0),
		booking("1003", 9, 0, 10, 0),
		booking("601", 8, 0, 12, 0),
	}

	var rooms []string
	for _, r := range FreeIntervals(entries, FreeOptions{}) {
		rooms = append(rooms, r.Room)
	}
	if diff := cmp.Diff([]string{"601", "1003", "Lab 2"}, rooms); diff != "" {
		t.Fatalf("room order mismatch (-want +got):\n%s", diff)
	}

	only := FreeIntervals(entries, FreeOptions{Room: "1003"})
	if len(only) != 1 || only[0].Room != "1003" {
		t.Fatalf("Room filter = %v, want only 1003", only)
	}

	nine := NewClock(9, 0)
	atNine := FreeIntervals(entries, FreeOptions{At: &nine})
	if len(atNine) != 0 {
		t.Fatalf("At 09:00 = %v, want empty since every room is booked", atNine)
	}

	ten := NewClock(10, 0)
	atTen := FreeIntervals(entries, FreeOptions{At: &ten})
	want := []RoomFree{
		{Room: "1003", Free: []Interval{{Start: NewClock(10, 0), End: NewClock(20, 30)}}},
		{Room: "Lab 2", Free: []Interval{{Start: NewClock(10, 0), End: NewClock(20, 30)}}},
	}
	if diff := cmp.Diff(want, atTen); diff != "" {
		t.Fatalf("At 10:00 mismatch (-want +got):\n%s", diff)
	}
}

func TestClock(t *testing.T) {
	c, err := ParseClock("09:05")
	if err != nil {
		t.Fatalf("ParseClock returned error: %v", err)
	}
	if c != NewClock(9, 5) || c.String() != "09:05" {
		t.Fatalf("ParseClock = %v (%d), want 09:05", c, int(c))
	}
	if _, err := ParseClock("9 o'clock"); err == nil {
		t.Fatal("ParseClock accepted garbage")
	}

	b, err := json.Marshal(Interval{Start: DayStart, End: DayEnd})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"start":"07:30","end":"20:30"}` {
		t.Fatalf("json = %s", b)
	}
}
