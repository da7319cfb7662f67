package app

import (
	"context"
	"net/http"
	"time"

	"github.com/openswoop/chronicler/pkg/config"
	"github.com/openswoop/chronicler/pkg/lms"
	"github.com/openswoop/chronicler/pkg/schedule"
	"github.com/openswoop/chronicler/pkg/timetable"
)

// Service is the API the CLI and the web server are built on. It is safe for
// concurrent use; create one per process so the vocabulary cache is shared.
type Service struct {
	timetable *timetable.Client
	lms       *lms.Client
	loc       *time.Location
}

// New wires both upstream clients onto one shared transport.
func New(cfg config.Config) (*Service, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	httpClient := &http.Client{Transport: transport, Timeout: cfg.Timeout}

	tt, err := timetable.NewClient(cfg.TimetableUrl,
		timetable.WithHTTPClient(httpClient),
		timetable.WithLocation(loc),
	)
	if err != nil {
		return nil, err
	}
	lc, err := lms.NewClient(cfg.LmsUrl,
		lms.WithTransport(transport),
		lms.WithTimeout(cfg.Timeout),
		lms.WithConcurrency(cfg.ScrapeConcurrency),
	)
	if err != nil {
		return nil, err
	}
	return NewService(tt, lc, loc), nil
}

func NewService(tt *timetable.Client, lc *lms.Client, loc *time.Location) *Service {
	if loc == nil {
		loc = tt.Location()
	}
	return &Service{timetable: tt, lms: lc, loc: loc}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Timetable fetches every entry between the start and end dates, inclusive.
func (s *Service) Timetable(ctx context.Context, start, end time.Time) ([]timetable.Entry, error) {
	return s.timetable.FetchRange(ctx, start, end)
}

func (s *Service) Filter(entries []timetable.Entry, spec schedule.FilterSpec) ([]schedule.Day, error) {
	f, err := schedule.CompileFilter(spec)
	if err != nil {
		return nil, err
	}
	return schedule.GroupByDay(entries, f), nil
}

// FilteredTimetable fetches a range and groups the matching entries by day.
func (s *Service) FilteredTimetable(ctx context.Context, start, end time.Time, spec schedule.FilterSpec) ([]schedule.Day, error) {
	f, err := schedule.CompileFilter(spec)
	if err != nil {
		return nil, err
	}
	entries, err := s.Timetable(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return schedule.GroupByDay(entries, f), nil
}

func (s *Service) Free(entries []timetable.Entry, opts schedule.FreeOptions) []schedule.RoomFree {
	return schedule.FreeIntervals(entries, opts)
}

// FreeOn fetches one day and computes its free rooms.
func (s *Service) FreeOn(ctx context.Context, day time.Time, opts schedule.FreeOptions) ([]schedule.RoomFree, error) {
	entries, err := s.Timetable(ctx, day, day)
	if err != nil {
		return nil, err
	}
	return s.Free(entries, opts), nil
}

func (s *Service) KnownTypes(ctx context.Context) ([]string, error) {
	return s.timetable.Types(ctx)
}

func (s *Service) KnownRooms(ctx context.Context) ([]string, error) {
	return s.timetable.Rooms(ctx)
}

func (s *Service) Attendance(ctx context.Context, username, password string) ([]lms.Report, error) {
	return s.lms.AllReports(ctx, username, password)
}
