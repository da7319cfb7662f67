package timetable

import (
	"net/url"
	"testing"
	"time"
)

func TestQueryValues_ZeroPadsDates(t *testing.T) {
	start := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.November, 21, 0, 0, 0, 0, time.UTC)

	v := NewQuery(start, end).Values()
	want := map[string]string{
		"from_day":        "05",
		"from_month":      "03",
		"from_year":       "2024",
		"to_day":          "21",
		"to_month":        "11",
		"to_year":         "2024",
		"match_confirmed": "2",
		"output":          "0",
		"output_format":   "1",
		"sortby":          "s",
		"sumby":           "d",
		"phase":           "2",
		"datatable":       "1",
		"areamatch":       "",
		"roommatch":       "",
	}
	for key, val := range want {
		if got := v.Get(key); got != val {
			t.Errorf("%s = %q, want %q", key, got, val)
		}
	}
	if _, ok := v["typematch[]"]; ok {
		t.Fatalf("typematch[] present without types: %v", v)
	}
}

func TestQueryValues_RepeatsTypeMatch(t *testing.T) {
	q := NewQuery(time.Now(), time.Now())
	q.TypeMatch = []string{"Lecture", "Lab"}

	got := q.Values()["typematch[]"]
	if len(got) != 2 || got[0] != "Lecture" || got[1] != "Lab" {
		t.Fatalf("typematch[] = %v, want [Lecture Lab]", got)
	}
}

func TestQueryURL_ReplacesBaseQuery(t *testing.T) {
	base, err := url.Parse("http://example.com/report.php?stale=1#top")
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	u := NewQuery(start, start).URL(base)
	if u.Host != "example.com" || u.Path != "/report.php" {
		t.Fatalf("url = %q, want example.com/report.php", u)
	}
	if u.Query().Get("stale") != "" || u.Fragment != "" {
		t.Fatalf("url = %q, want base query and fragment dropped", u)
	}
	if u.Query().Get("from_day") != "01" {
		t.Fatalf("from_day = %q, want 01", u.Query().Get("from_day"))
	}
	if base.RawQuery != "stale=1" {
		t.Fatalf("base mutated: %q", base)
	}
}
