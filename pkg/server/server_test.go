package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openswoop/chronicler/pkg/lms"
	"github.com/openswoop/chronicler/pkg/schedule"
	"github.com/openswoop/chronicler/pkg/timetable"
)

type fakeBackend struct {
	gotStart, gotEnd time.Time
	gotSpec          schedule.FilterSpec
	gotFree          schedule.FreeOptions
	days             []schedule.Day
	rooms            []schedule.RoomFree
	reports          []lms.Report
	err              error
}

func (f *fakeBackend) Location() *time.Location { return time.UTC }

func (f *fakeBackend) KnownTypes(context.Context) ([]string, error) {
	return []string{"Lab", "Lecture"}, f.err
}

func (f *fakeBackend) KnownRooms(context.Context) ([]string, error) {
	return []string{"601", "1003"}, f.err
}

func (f *fakeBackend) FilteredTimetable(_ context.Context, start, end time.Time, spec schedule.FilterSpec) ([]schedule.Day, error) {
	f.gotStart, f.gotEnd, f.gotSpec = start, end, spec
	if _, err := schedule.CompileFilter(spec); err != nil {
		return nil, err
	}
	return f.days, f.err
}

func (f *fakeBackend) FreeOn(_ context.Context, day time.Time, opts schedule.FreeOptions) ([]schedule.RoomFree, error) {
	f.gotStart, f.gotFree = day, opts
	return f.rooms, f.err
}

func (f *fakeBackend) Attendance(_ context.Context, username, password string) ([]lms.Report, error) {
	if password != "secret" {
		return nil, &lms.AuthError{Username: username, Reason: "invalid login"}
	}
	return f.reports, f.err
}

func testOptions() Options {
	return Options{
		AllowedOrigins: []string{"https://chronicler.example"},
		AllowedHosts:   []string{"example.com"},
		LoginLimit:     2,
	}
}

func do(t *testing.T, b Backend, req *http.Request) (*http.Response, Envelope) {
	t.Helper()
	app := New(b, testOptions())
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test returned error: %v", err)
	}
	var env Envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode envelope: %v", err)
		}
	}
	return resp, env
}

// decodeData re-decodes the envelope payload into a typed value.
func decodeData(t *testing.T, env Envelope, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	resp, env := do(t, &fakeBackend{}, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.StatusCode != http.StatusOK || env.Status != "success" || env.Code != 200 {
		t.Fatalf("health = %d %+v", resp.StatusCode, env)
	}
	if resp.Header.Get(headerRequestId) == "" {
		t.Fatal("missing request id header")
	}
}

func TestTypes(t *testing.T) {
	_, env := do(t, &fakeBackend{}, httptest.NewRequest(http.MethodGet, "/api/types", nil))
	if diff := cmp.Diff([]interface{}{"Lab", "Lecture"}, env.Data); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestTimetable(t *testing.T) {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	b := &fakeBackend{days: []schedule.Day{{Date: day, Entries: []timetable.Entry{{
		Room: "601", FullDesc: "Math101", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Duration: time.Hour,
	}}}}}

	resp, env := do(t, b, jsonRequest(http.MethodPost, "/api/timetable",
		`{"start":"2024-03-05","end":"2024-03-06","types":{"Lecture":["^Math"]}}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, message %q", resp.StatusCode, env.Message)
	}
	if !b.gotStart.Equal(day) || !b.gotEnd.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("range = %v - %v", b.gotStart, b.gotEnd)
	}
	if diff := cmp.Diff(schedule.FilterSpec{"Lecture": {"^Math"}}, b.gotSpec); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}

	var got []dayView
	decodeData(t, env, &got)
	want := []dayView{{Date: "2024-03-05", Entries: []timetable.EntryView{
		{Start: "09:00", End: "10:00", Class: "Math101", Room: "601", Duration: 60},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("timetable mismatch (-want +got):\n%s", diff)
	}
}

func TestTimetable_BadInput(t *testing.T) {
	for name, body := range map[string]string{
		"missing end":   `{"start":"2024-03-05"}`,
		"bad date":      `{"start":"05/03/2024","end":"2024-03-06"}`,
		"reversed":      `{"start":"2024-03-06","end":"2024-03-05"}`,
		"bad pattern":   `{"start":"2024-03-05","end":"2024-03-06","types":{"Lecture":["("]}}`,
		"not json body": `start=today`,
	} {
		resp, env := do(t, &fakeBackend{}, jsonRequest(http.MethodPost, "/api/timetable", body))
		if resp.StatusCode != http.StatusBadRequest || env.Status != "error" {
			t.Fatalf("%s: status = %d, envelope %+v, want 400 error", name, resp.StatusCode, env)
		}
	}
}

func TestCalendar(t *testing.T) {
	day := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	b := &fakeBackend{days: []schedule.Day{{Date: day, Entries: []timetable.Entry{{
		Room: "601", FullDesc: "Math101", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour),
	}}}}}

	req := httptest.NewRequest(http.MethodGet, "/api/timetable.ics?start=2024-03-05&end=2024-03-05&type=Lecture%3Da%7B1,2%7D&type=Lab", nil)
	resp, _ := do(t, b, req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("Content-Type = %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "SUMMARY:Math101") {
		t.Fatalf("calendar missing event:\n%s", body)
	}
	if diff := cmp.Diff(schedule.FilterSpec{"Lecture": {"a{1,2}"}, "Lab": {}}, b.gotSpec); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestFree(t *testing.T) {
	b := &fakeBackend{rooms: []schedule.RoomFree{{Room: "601", Free: []schedule.Interval{
		{Start: schedule.NewClock(10, 0), End: schedule.DayEnd},
	}}}}
	resp, env := do(t, b, httptest.NewRequest(http.MethodGet, "/api/free?date=2024-03-05&room=601&at=10:30", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, message %q", resp.StatusCode, env.Message)
	}
	if b.gotFree.Room != "601" || b.gotFree.At == nil || *b.gotFree.At != schedule.NewClock(10, 30) {
		t.Fatalf("options = %+v", b.gotFree)
	}
	var got []schedule.RoomFree
	decodeData(t, env, &got)
	want := []schedule.RoomFree{{Room: "601", Free: []schedule.Interval{
		{Start: schedule.NewClock(10, 0), End: schedule.DayEnd},
	}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("free rooms mismatch (-want +got):\n%s", diff)
	}

	resp, _ = do(t, b, httptest.NewRequest(http.MethodGet, "/api/free?date=2024-03-05&at=noon", nil))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad at: status = %d, want 400", resp.StatusCode)
	}
}

func TestAttendance(t *testing.T) {
	b := &fakeBackend{reports: []lms.Report{{Name: "Algebra", TakenSessions: "10"}}}

	resp, env := do(t, b, jsonRequest(http.MethodPost, "/api/attendance", `{"username":"student","password":"secret"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, message %q", resp.StatusCode, env.Message)
	}

	resp, env = do(t, b, jsonRequest(http.MethodPost, "/api/attendance", `{"username":"student","password":"nope"}`))
	if resp.StatusCode != http.StatusUnauthorized || env.Message != "invalid credentials" {
		t.Fatalf("status = %d, message %q, want 401", resp.StatusCode, env.Message)
	}

	resp, _ = do(t, b, jsonRequest(http.MethodPost, "/api/attendance", `{"username":"student"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing password: status = %d, want 400", resp.StatusCode)
	}
}

func TestAttendance_RateLimited(t *testing.T) {
	app := New(&fakeBackend{}, testOptions())
	var last int
	for i := 0; i < 3; i++ {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/api/attendance", `{"username":"student","password":"secret"}`), -1)
		if err != nil {
			t.Fatal(err)
		}
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("third attempt status = %d, want 429", last)
	}
}

func TestUpstreamFailures(t *testing.T) {
	cases := map[string]error{
		"timetable network": &timetable.NetworkError{Url: "http://upstream", StatusCode: 503},
		"timetable parse":   &timetable.ParseError{Line: 2, Column: "Duration"},
		"lms network":       &lms.NetworkError{Url: "http://lms", StatusCode: 500},
	}
	for name, err := range cases {
		resp, env := do(t, &fakeBackend{err: err}, httptest.NewRequest(http.MethodGet, "/api/rooms", nil))
		if resp.StatusCode != http.StatusBadGateway || env.Code != http.StatusBadGateway {
			t.Fatalf("%s: status = %d, want 502", name, resp.StatusCode)
		}
	}
}

func TestAllowedHosts(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Host = "evil.test"
	resp, _ := do(t, &fakeBackend{}, req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
