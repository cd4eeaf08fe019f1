// Package attendance holds the in-memory reconciliation state for one
// (group, date) attendance session: the roster is merged with prior
// recorded attendance and in-progress edits, keeping exactly one state
// per roster member until the caller persists a snapshot.
package attendance

import (
	"errors"
	"sort"
	"time"

	"aula/server/internal/model"
	"aula/server/internal/search"
)

const (
	StatusPresente    = "presente"
	StatusAusente     = "ausente"
	StatusTarde       = "tarde"
	StatusJustificado = "justificado"

	// FilterUnrecorded is the synthetic status filter for students with
	// no state set yet. It never appears in persisted records.
	FilterUnrecorded = "sin_registrar"
)

var (
	ErrNotInRoster   = errors.New("attendance: student not in roster")
	ErrInvalidStatus = errors.New("attendance: invalid status")
)

func ValidStatus(status string) bool {
	switch status {
	case StatusPresente, StatusAusente, StatusTarde, StatusJustificado:
		return true
	}
	return false
}

// Student is the roster projection the session needs for display and
// filtering.
type Student struct {
	ID       string
	FullName string
	DNI      string
}

// Entry is one student's reconciled state. Status is empty until an
// explicit action sets it.
type Entry struct {
	Student
	Status   string
	CheckIn  string
	CheckOut string
	Note     string
}

type Session struct {
	GroupID string
	Date    string
	order   []string
	entries map[string]*Entry
}

// NewSession builds a session covering exactly the given roster.
// Duplicate roster entries collapse to one.
func NewSession(groupID, date string, roster []Student) *Session {
	s := &Session{
		GroupID: groupID,
		Date:    date,
		entries: make(map[string]*Entry, len(roster)),
	}
	for _, student := range roster {
		if _, ok := s.entries[student.ID]; ok {
			continue
		}
		s.order = append(s.order, student.ID)
		s.entries[student.ID] = &Entry{Student: student}
	}
	return s
}

// Merge seeds the session with previously persisted records. Records
// for students outside the roster are dropped.
func (s *Session) Merge(records []model.AttendanceRecord) {
	for _, record := range records {
		entry, ok := s.entries[record.StudentID]
		if !ok {
			continue
		}
		entry.Status = record.Status
		entry.CheckIn = deref(record.CheckIn)
		entry.CheckOut = deref(record.CheckOut)
		entry.Note = deref(record.Note)
	}
}

// SetStatus records an explicit per-student action.
func (s *Session) SetStatus(studentID, status string) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	entry, ok := s.entries[studentID]
	if !ok {
		return ErrNotInRoster
	}
	entry.Status = status
	return nil
}

// SetNote attaches free text without touching the state.
func (s *Session) SetNote(studentID, note string) error {
	entry, ok := s.entries[studentID]
	if !ok {
		return ErrNotInRoster
	}
	entry.Note = note
	return nil
}

// SetTimes records check-in/check-out times for a student.
func (s *Session) SetTimes(studentID, checkIn, checkOut string) error {
	entry, ok := s.entries[studentID]
	if !ok {
		return ErrNotInRoster
	}
	if checkIn != "" {
		entry.CheckIn = checkIn
	}
	if checkOut != "" {
		entry.CheckOut = checkOut
	}
	return nil
}

// MarkAllPresent forces every roster member to presente with the given
// time as check-in, overwriting any prior state.
func (s *Session) MarkAllPresent(now time.Time) {
	checkIn := now.Format("15:04")
	for _, id := range s.order {
		entry := s.entries[id]
		entry.Status = StatusPresente
		entry.CheckIn = checkIn
	}
}

// Entries returns the reconciled list in roster order.
func (s *Session) Entries() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.entries[id])
	}
	return out
}

// Filter applies the free-text query (name, document) and a status
// filter, FilterUnrecorded selecting students with no state yet. It
// never touches persistence; order is preserved.
func (s *Session) Filter(query, status string) []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		entry := s.entries[id]
		if !search.Matches(query, entry.FullName, entry.DNI) {
			continue
		}
		switch status {
		case "":
		case FilterUnrecorded:
			if entry.Status != "" {
				continue
			}
		default:
			if entry.Status != status {
				continue
			}
		}
		out = append(out, *entry)
	}
	return out
}

// Snapshot produces the list to persist: every roster member with a
// definite state, unset students coerced to ausente.
func (s *Session) Snapshot() []Entry {
	out := make([]Entry, 0, len(s.order))
	for _, id := range s.order {
		entry := *s.entries[id]
		if entry.Status == "" {
			entry.Status = StatusAusente
		}
		out = append(out, entry)
	}
	return out
}

// DaySummary is one row of the trailing history view.
type DaySummary struct {
	Date   string
	Counts map[string]int
}

// Summarize groups records by stored date string and counts statuses
// for the trailing window ending at upTo (inclusive). Dates with no
// records are omitted; newest date first.
func Summarize(records []model.AttendanceRecord, upTo time.Time, days int) []DaySummary {
	if days <= 0 {
		days = 7
	}
	end := upTo.Format("2006-01-02")
	start := upTo.AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	byDate := make(map[string]map[string]int)
	for _, record := range records {
		if record.Date < start || record.Date > end {
			continue
		}
		counts, ok := byDate[record.Date]
		if !ok {
			counts = make(map[string]int)
			byDate[record.Date] = counts
		}
		counts[record.Status]++
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	out := make([]DaySummary, 0, len(dates))
	for _, date := range dates {
		out = append(out, DaySummary{Date: date, Counts: byDate[date]})
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
