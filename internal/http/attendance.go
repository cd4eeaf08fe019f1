package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aula/server/internal/attendance"
	"aula/server/internal/export"
	"aula/server/internal/metrics"
	"aula/server/internal/model"
	"aula/server/internal/repository"
)

type attendanceEntryResponse struct {
	StudentID string `json:"studentId"`
	FullName  string `json:"fullName"`
	DNI       string `json:"dni,omitempty"`
	Status    string `json:"status"`
	CheckIn   string `json:"checkIn,omitempty"`
	CheckOut  string `json:"checkOut,omitempty"`
	Note      string `json:"note,omitempty"`
}

func mapAttendanceEntry(entry attendance.Entry) attendanceEntryResponse {
	return attendanceEntryResponse{
		StudentID: entry.ID,
		FullName:  entry.FullName,
		DNI:       entry.DNI,
		Status:    entry.Status,
		CheckIn:   entry.CheckIn,
		CheckOut:  entry.CheckOut,
		Note:      entry.Note,
	}
}

// buildSession loads the group roster, seeds it with the day's
// persisted records and returns the reconciled session.
func (s *Server) buildSession(r *http.Request, groupID, date string) (*attendance.Session, error) {
	roster, err := s.store.ListRoster(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	students := make([]attendance.Student, 0, len(roster))
	for _, student := range roster {
		students = append(students, attendance.Student{
			ID:       student.ID,
			FullName: student.FullName(),
			DNI:      deref(student.DNI),
		})
	}
	session := attendance.NewSession(groupID, date, students)

	records, err := s.store.ListAttendanceByGroupDate(r.Context(), groupID, date)
	if err != nil {
		return nil, err
	}
	session.Merge(records)
	return session, nil
}

func (s *Server) handleGetAttendance(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}

	session, err := s.buildSession(r, groupID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	entries := session.Filter(r.URL.Query().Get("q"), r.URL.Query().Get("status"))
	resp := make([]attendanceEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, mapAttendanceEntry(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groupId": groupID,
		"date":    date,
		"entries": resp,
	})
}

type saveAttendanceRequest struct {
	MarkAllPresent bool `json:"markAllPresent"`
	Entries        []struct {
		StudentID string `json:"studentId"`
		Status    string `json:"status"`
		CheckIn   string `json:"checkIn"`
		CheckOut  string `json:"checkOut"`
		Note      string `json:"note"`
	} `json:"entries"`
}

// handleSaveAttendance reconciles the posted edits against the roster
// and persists the full scope in one transaction. Students without an
// explicit state are recorded as ausente.
func (s *Server) handleSaveAttendance(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	date := chi.URLParam(r, "date")
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}

	var req saveAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	session, err := s.buildSession(r, groupID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	if req.MarkAllPresent {
		session.MarkAllPresent(now)
	}
	for _, edit := range req.Entries {
		if edit.Status != "" {
			if err := session.SetStatus(edit.StudentID, edit.Status); err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid_entry")
				return
			}
		}
		if edit.Note != "" {
			if err := session.SetNote(edit.StudentID, edit.Note); err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid_entry")
				return
			}
		}
		if edit.CheckIn != "" || edit.CheckOut != "" {
			if err := session.SetTimes(edit.StudentID, edit.CheckIn, edit.CheckOut); err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid_entry")
				return
			}
		}
	}

	snapshot := session.Snapshot()
	err = s.store.WithTx(r.Context(), func(tx *repository.Store) error {
		for _, entry := range snapshot {
			record := model.AttendanceRecord{
				ID:        uuid.NewString(),
				StudentID: entry.ID,
				GroupID:   groupID,
				Date:      date,
				Status:    entry.Status,
				CheckIn:   strPtr(entry.CheckIn),
				CheckOut:  strPtr(entry.CheckOut),
				Note:      strPtr(entry.Note),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.UpsertAttendanceRecord(r.Context(), record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	metrics.AttendanceSaves.Inc()

	resp := make([]attendanceEntryResponse, 0, len(snapshot))
	for _, entry := range snapshot {
		resp = append(resp, mapAttendanceEntry(entry))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"groupId": groupID,
		"date":    date,
		"saved":   len(snapshot),
		"entries": resp,
	})
}

func (s *Server) handleAttendanceHistory(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 31 {
			days = parsed
		}
	}
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	to := now.Format("2006-01-02")

	records, err := s.store.ListAttendanceByGroupRange(r.Context(), groupID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	summary := attendance.Summarize(records, now, days)
	resp := make([]map[string]any, 0, len(summary))
	for _, day := range summary {
		resp = append(resp, map[string]any{
			"date":   day.Date,
			"counts": day.Counts,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportAttendance(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	date := chi.URLParam(r, "date")
	if !validDate(date) {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	session, err := s.buildSession(r, groupID, date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	out, err := export.AttendanceCSV(date, session.Entries())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="asistencia-`+date+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleStudentAttendance(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	studentID := chi.URLParam(r, "studentId")
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if claims.UserType == model.RoleAlumno && claims.UserID != studentID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	records, err := s.store.ListAttendanceByStudent(r.Context(), studentID, parseLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]map[string]any, 0, len(records))
	for _, record := range records {
		resp = append(resp, map[string]any{
			"groupId":  record.GroupID,
			"date":     record.Date,
			"status":   record.Status,
			"checkIn":  deref(record.CheckIn),
			"checkOut": deref(record.CheckOut),
			"note":     deref(record.Note),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
