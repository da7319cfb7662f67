package lms

import (
	"context"
	"encoding/json"
	"fmt"
)

type Course struct {
	ID              int      `json:"id"`
	FullName        string   `json:"fullname"`
	ShortName       string   `json:"shortname"`
	IDNumber        string   `json:"idnumber"`
	Summary         string   `json:"summary"`
	StartDate       int64    `json:"startdate"`
	EndDate         int64    `json:"enddate"`
	Visible         bool     `json:"visible"`
	FullNameDisplay string   `json:"fullnamedisplay"`
	ViewUrl         string   `json:"viewurl"`
	CourseCategory  string   `json:"coursecategory"`
	Progress        *float64 `json:"progress"`
	HasProgress     bool     `json:"hasprogress"`
	IsFavourite     bool     `json:"isfavourite"`
	Hidden          bool     `json:"hidden"`
}

// Name is the course's display name.
func (c Course) Name() string {
	if c.FullNameDisplay != "" {
		return c.FullNameDisplay
	}
	return c.FullName
}

type coursePageMeta struct {
	ID          string   `json:"id"`
	NumSections int      `json:"numsections"`
	SectionList []string `json:"sectionlist"`
	BaseUrl     string   `json:"baseurl"`
}

// CoursePage is the decoded course format state of one course.
type CoursePage struct {
	Course  coursePageMeta    `json:"course"`
	Section []json.RawMessage `json:"section"`
	Cm      []CmItem          `json:"cm"`
}

// CmItem is one activity module on a course page.
type CmItem struct {
	ID            string `json:"id"`
	Anchor        string `json:"anchor"`
	Name          string `json:"name"`
	Visible       bool   `json:"visible"`
	SectionID     string `json:"sectionid"`
	SectionNumber int    `json:"sectionnumber"`
	UserVisible   bool   `json:"uservisible"`
	Url           string `json:"url,omitempty"`
}

const (
	methodEnrolledCourses = "core_course_get_enrolled_courses_by_timeline_classification"
	methodCourseState     = "core_courseformat_get_state"
	attendanceModuleName  = "Attendance"
)

// EnrolledCourses lists every course the user is enrolled in, sorted by name.
func (s *Session) EnrolledCourses(ctx context.Context) ([]Course, error) {
	args := map[string]interface{}{
		"offset":           0,
		"limit":            0,
		"classification":   "all",
		"sort":             "fullname",
		"customfieldname":  "",
		"customfieldvalue": "",
	}
	var data struct {
		Courses    []Course `json:"courses"`
		NextOffset int      `json:"nextoffset"`
	}
	if err := s.call(ctx, methodEnrolledCourses, args, &data); err != nil {
		return nil, err
	}
	return data.Courses, nil
}

// CoursePage fetches the course format state. The service returns it as a
// JSON document embedded in a string.
func (s *Session) CoursePage(ctx context.Context, courseID int) (*CoursePage, error) {
	var raw string
	if err := s.call(ctx, methodCourseState, map[string]int{"courseid": courseID}, &raw); err != nil {
		return nil, err
	}
	var page CoursePage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, &ParseError{Url: methodCourseState, Err: fmt.Errorf("course %d state: %w", courseID, err)}
	}
	return &page, nil
}

// AttendanceModule returns the id of the course's activity named exactly
// "Attendance". ok is false when the course has none.
func (s *Session) AttendanceModule(ctx context.Context, course Course) (id string, ok bool, err error) {
	page, err := s.CoursePage(ctx, course.ID)
	if err != nil {
		return "", false, err
	}
	for _, cm := range page.Cm {
		if cm.Name == attendanceModuleName {
			return cm.ID, true, nil
		}
	}
	return "", false, nil
}

// CourseReport fetches the course's attendance report, or nil when the course
// does not track attendance.
func (s *Session) CourseReport(ctx context.Context, course Course) (*Report, error) {
	id, ok, err := s.AttendanceModule(ctx, course)
	if err != nil || !ok {
		return nil, err
	}
	return s.FetchReport(ctx, id, course.Name())
}
