package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/openswoop/chronicler/pkg/timetable"
)

// MaxPatternLen bounds user supplied filter patterns.
const MaxPatternLen = 512

var ErrPatternTooLong = fmt.Errorf("pattern longer than %d bytes", MaxPatternLen)

// FilterSpec maps a booking type to the patterns its full description must
// match. An empty list accepts every entry of that type, a type missing from a
// non-empty spec is rejected, and an empty spec accepts everything.
type FilterSpec map[string][]string

type PatternError struct {
	Type    string
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("filter %q: pattern %q: %v", e.Type, e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error { return e.Err }

type Filter struct {
	rules map[string][]*regexp.Regexp
}

func CompileFilter(spec FilterSpec) (*Filter, error) {
	f := &Filter{}
	if len(spec) == 0 {
		return f, nil
	}
	f.rules = make(map[string][]*regexp.Regexp, len(spec))
	for typ, patterns := range spec {
		compiled := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			if len(p) > MaxPatternLen {
				return nil, &PatternError{Type: typ, Pattern: p[:32] + "...", Err: ErrPatternTooLong}
			}
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, &PatternError{Type: typ, Pattern: p, Err: err}
			}
			compiled = append(compiled, re)
		}
		f.rules[typ] = compiled
	}
	return f, nil
}

// Match reports whether e passes the filter. A nil filter accepts everything.
func (f *Filter) Match(e timetable.Entry) bool {
	if f == nil || f.rules == nil {
		return true
	}
	patterns, ok := f.rules[e.Type]
	if !ok {
		return false
	}
	if len(patterns) == 0 {
		return true
	}
	for _, re := range patterns {
		if re.MatchString(e.FullDesc) {
			return true
		}
	}
	return false
}

// Day is one calendar day of matching entries, ordered by start time.
type Day struct {
	Date    time.Time         `json:"date"`
	Entries []timetable.Entry `json:"entries"`
}

func (d Day) Key() string {
	return d.Date.Format("2006-01-02")
}

// GroupByDay buckets the entries f accepts by the day they start on. Days are
// returned in ascending order; entries keep their input order on equal starts.
func GroupByDay(entries []timetable.Entry, f *Filter) []Day {
	byDate := make(map[string]*Day)
	var days []*Day
	for _, e := range entries {
		if !f.Match(e) {
			continue
		}
		date := e.Date()
		key := date.Format("2006-01-02")
		d, ok := byDate[key]
		if !ok {
			d = &Day{Date: date}
			byDate[key] = d
			days = append(days, d)
		}
		d.Entries = append(d.Entries, e)
	}

	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})
	out := make([]Day, len(days))
	for i, d := range days {
		sort.SliceStable(d.Entries, func(a, b int) bool {
			return d.Entries[a].Start.Before(d.Entries[b].Start)
		})
		out[i] = *d
	}
	return out
}

// ParseFilterArgs turns command line values of the form TYPE or TYPE=REGEX
// into a FilterSpec. Repeating a type adds patterns to it.
func ParseFilterArgs(args []string) (FilterSpec, error) {
	spec := FilterSpec{}
	for _, arg := range args {
		typ, pattern, hasPattern := strings.Cut(arg, "=")
		typ = strings.TrimSpace(typ)
		if typ == "" {
			return nil, errors.New("empty type in filter " + arg)
		}
		if _, ok := spec[typ]; !ok {
			spec[typ] = []string{}
		}
		if hasPattern && pattern != "" {
			spec[typ] = append(spec[typ], pattern)
		}
	}
	return spec, nil
}
