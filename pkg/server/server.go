package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/openswoop/chronicler/pkg/lms"
	"github.com/openswoop/chronicler/pkg/report"
	"github.com/openswoop/chronicler/pkg/schedule"
	"github.com/openswoop/chronicler/pkg/timetable"
)

const dateLayout = "2006-01-02"

// Backend is what the server needs from the application service.
type Backend interface {
	Location() *time.Location
	KnownTypes(ctx context.Context) ([]string, error)
	KnownRooms(ctx context.Context) ([]string, error)
	FilteredTimetable(ctx context.Context, start, end time.Time, spec schedule.FilterSpec) ([]schedule.Day, error)
	FreeOn(ctx context.Context, day time.Time, opts schedule.FreeOptions) ([]schedule.RoomFree, error)
	Attendance(ctx context.Context, username, password string) ([]lms.Report, error)
}

type Options struct {
	AllowedOrigins []string
	AllowedHosts   []string
	// RequestTimeout bounds each request's upstream work.
	RequestTimeout time.Duration
	// LoginLimit is how many attendance requests one IP may make per minute.
	LoginLimit int
}

type handler struct {
	backend  Backend
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
}

// New builds the fiber app serving the JSON API.
func New(backend Backend, opts Options) *fiber.App {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = time.Minute
	}
	if opts.LoginLimit <= 0 {
		opts.LoginLimit = 5
	}
	h := &handler{
		backend:  backend,
		validate: validator.New(),
		timeout:  opts.RequestTimeout,
		now:      time.Now,
	}

	app := fiber.New(fiber.Config{
		AppName:               "chronicler",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(recoveryMiddleware())
	app.Use(requestId())
	app.Use(loggerMiddleware())
	app.Use(allowedHosts(opts.AllowedHosts))
	app.Use(corsMiddleware(opts.AllowedOrigins))

	app.Get("/health", func(c *fiber.Ctx) error {
		return Success(c, "ok", nil)
	})

	api := app.Group("/api")
	api.Get("/types", h.types)
	api.Get("/rooms", h.rooms)
	api.Post("/timetable", h.timetable)
	api.Get("/timetable.ics", h.calendar)
	api.Get("/free", h.free)
	api.Post("/attendance", credentialLimiter(opts.LoginLimit, time.Minute), h.attendance)
	return app
}

func (h *handler) context(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), h.timeout)
}

func (h *handler) parseDate(field, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, value, h.backend.Location())
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s must be a YYYY-MM-DD date", field))
	}
	return t, nil
}

func (h *handler) dateRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := h.parseDate("start", startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := h.parseDate("end", endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fiber.NewError(fiber.StatusBadRequest, "end is before start")
	}
	return start, end, nil
}

func (h *handler) types(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()
	types, err := h.backend.KnownTypes(ctx)
	if err != nil {
		return err
	}
	return Success(c, "types", types)
}

func (h *handler) rooms(c *fiber.Ctx) error {
	ctx, cancel := h.context(c)
	defer cancel()
	rooms, err := h.backend.KnownRooms(ctx)
	if err != nil {
		return err
	}
	return Success(c, "rooms", rooms)
}

type timetableRequest struct {
	Start string              `json:"start" validate:"required"`
	End   string              `json:"end" validate:"required"`
	Types map[string][]string `json:"types"`
}

type dayView struct {
	Date    string                `json:"date"`
	Entries []timetable.EntryView `json:"entries"`
}

func (h *handler) timetable(c *fiber.Ctx) error {
	var req timetableRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}
	start, end, err := h.dateRange(req.Start, req.End)
	if err != nil {
		return err
	}

	ctx, cancel := h.context(c)
	defer cancel()
	days, err := h.backend.FilteredTimetable(ctx, start, end, schedule.FilterSpec(req.Types))
	if err != nil {
		return err
	}

	views := make([]dayView, 0, len(days))
	for _, d := range days {
		v := dayView{Date: d.Key(), Entries: make([]timetable.EntryView, 0, len(d.Entries))}
		for _, e := range d.Entries {
			v.Entries = append(v.Entries, e.View())
		}
		views = append(views, v)
	}
	return Success(c, "timetable", views)
}

type calendarQuery struct {
	Start string `query:"start" validate:"required"`
	End   string `query:"end" validate:"required"`
}

// queryValues returns every value of a repeated query parameter. Values are
// taken verbatim since patterns may contain commas.
func queryValues(c *fiber.Ctx, key string) []string {
	var out []string
	for _, v := range c.Context().QueryArgs().PeekMulti(key) {
		out = append(out, string(v))
	}
	return out
}

func (h *handler) calendar(c *fiber.Ctx) error {
	var q calendarQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := h.validate.Struct(q); err != nil {
		return err
	}
	start, end, err := h.dateRange(q.Start, q.End)
	if err != nil {
		return err
	}
	spec, err := schedule.ParseFilterArgs(queryValues(c, "type"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	ctx, cancel := h.context(c)
	defer cancel()
	days, err := h.backend.FilteredTimetable(ctx, start, end, spec)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.WriteCalendar(&buf, "Timetable", days, h.now()); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/calendar; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="timetable.ics"`)
	return c.Send(buf.Bytes())
}

type freeQuery struct {
	Date string `query:"date" validate:"required"`
	Room string `query:"room"`
	At   string `query:"at"`
}

func (h *handler) free(c *fiber.Ctx) error {
	var q freeQuery
	if err := c.QueryParser(&q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := h.validate.Struct(q); err != nil {
		return err
	}
	day, err := h.parseDate("date", q.Date)
	if err != nil {
		return err
	}
	opts := schedule.FreeOptions{Room: q.Room}
	if q.At != "" {
		at, err := schedule.ParseClock(q.At)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "at must be HH:MM")
		}
		opts.At = &at
	}

	ctx, cancel := h.context(c)
	defer cancel()
	rooms, err := h.backend.FreeOn(ctx, day, opts)
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = []schedule.RoomFree{}
	}
	return Success(c, "free rooms", rooms)
}

type attendanceRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *handler) attendance(c *fiber.Ctx) error {
	var req attendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return err
	}

	ctx, cancel := h.context(c)
	defer cancel()
	reports, err := h.backend.Attendance(ctx, req.Username, req.Password)
	var authErr *lms.AuthError
	if errors.As(err, &authErr) {
		log.Println("Warning: attendance login rejected:", authErr.Reason)
	}
	if err != nil {
		return err
	}
	return Success(c, "attendance", reports)
}

// Run serves app on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, app *fiber.App, addr string) error {
	errc := make(chan error, 1)
	go func() {
		log.Println("Listening on", addr)
		errc <- app.Listen(addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}
