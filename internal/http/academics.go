package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aula/server/internal/model"
	"aula/server/internal/repository"
	"aula/server/internal/search"
)

// Catalog

type createCourseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_fields")
		return
	}
	course := model.Course{ID: uuid.NewString(), Name: req.Name, Description: strPtr(req.Description)}
	if err := s.store.CreateCourse(r.Context(), course); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": course.ID, "name": course.Name})
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.store.ListCourses(r.Context(), parseLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]map[string]string, 0, len(courses))
	for _, course := range courses {
		resp = append(resp, map[string]string{
			"id":          course.ID,
			"name":        course.Name,
			"description": deref(course.Description),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type createNamedRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateGradeLevel(w http.ResponseWriter, r *http.Request) {
	var req createNamedRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	level := model.GradeLevel{ID: uuid.NewString(), Name: req.Name}
	if err := s.store.CreateGradeLevel(r.Context(), level); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": level.ID, "name": level.Name})
}

func (s *Server) handleListGradeLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.store.ListGradeLevels(r.Context(), parseLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]map[string]string, 0, len(levels))
	for _, level := range levels {
		resp = append(resp, map[string]string{"id": level.ID, "name": level.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var req createNamedRequest
	if err := decodeJSON(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	section := model.Section{ID: uuid.NewString(), Name: req.Name}
	if err := s.store.CreateSection(r.Context(), section); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": section.ID, "name": section.Name})
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	sections, err := s.store.ListSections(r.Context(), parseLimit(r, 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]map[string]string, 0, len(sections))
	for _, section := range sections {
		resp = append(resp, map[string]string{"id": section.ID, "name": section.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Groups

type groupResponse struct {
	ID          string `json:"id"`
	CourseID    string `json:"courseId"`
	GradeLevel  string `json:"gradeLevelId"`
	SectionID   string `json:"sectionId"`
	SchoolYear  string `json:"schoolYear"`
	ProfessorID string `json:"professorId,omitempty"`
}

func mapGroup(group model.Group) groupResponse {
	return groupResponse{
		ID:          group.ID,
		CourseID:    group.CourseID,
		GradeLevel:  group.GradeLevelID,
		SectionID:   group.SectionID,
		SchoolYear:  group.SchoolYear,
		ProfessorID: deref(group.ProfessorID),
	}
}

type createGroupRequest struct {
	CourseID     string `json:"courseId"`
	GradeLevelID string `json:"gradeLevelId"`
	SectionID    string `json:"sectionId"`
	SchoolYear   string `json:"schoolYear"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.CourseID == "" || req.GradeLevelID == "" || req.SectionID == "" || req.SchoolYear == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_fields")
		return
	}
	if _, err := s.store.GetCourse(r.Context(), req.CourseID); err != nil {
		writeError(w, http.StatusNotFound, "course_not_found")
		return
	}
	group := model.Group{
		ID:           uuid.NewString(),
		CourseID:     req.CourseID,
		GradeLevelID: req.GradeLevelID,
		SectionID:    req.SectionID,
		SchoolYear:   req.SchoolYear,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(group))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	schoolYear := r.URL.Query().Get("schoolYear")
	limit := parseLimit(r, 200)

	var (
		groups []model.Group
		err    error
	)
	if claims != nil && claims.UserType == model.RoleProfesor {
		groups, err = s.store.ListGroupsByProfessor(r.Context(), claims.UserID, limit)
	} else {
		groups, err = s.store.ListGroups(r.Context(), schoolYear, limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]groupResponse, 0, len(groups))
	for _, group := range groups {
		resp = append(resp, mapGroup(group))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.store.GetGroup(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}
	writeJSON(w, http.StatusOK, mapGroup(group))
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}
	if err := s.store.DeleteGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignProfessorRequest struct {
	ProfessorID string `json:"professorId"`
}

func (s *Server) handleAssignProfessor(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req assignProfessorRequest
	if err := decodeJSON(r, &req); err != nil || req.ProfessorID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}
	professor, err := s.store.GetUserByID(r.Context(), req.ProfessorID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if professor.Role != model.RoleProfesor {
		writeError(w, http.StatusUnprocessableEntity, "invalid_role")
		return
	}

	// Replace-style: any prior professor relation goes away with the
	// new assignment, inside one transaction.
	err = s.store.WithTx(r.Context(), func(tx *repository.Store) error {
		return tx.AssignProfessor(r.Context(), groupID, req.ProfessorID, time.Now().UTC())
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Roster

func (s *Server) handleListRoster(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	students, err := s.store.ListRoster(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	query := r.URL.Query().Get("q")
	resp := make([]userResponse, 0, len(students))
	for _, student := range students {
		if !search.Matches(query, student.FullName(), deref(student.DNI)) {
			continue
		}
		resp = append(resp, mapUser(student))
	}
	writeJSON(w, http.StatusOK, resp)
}

type addRosterRequest struct {
	StudentIDs []string `json:"studentIds"`
}

func (s *Server) handleAddRosterMembers(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req addRosterRequest
	if err := decodeJSON(r, &req); err != nil || len(req.StudentIDs) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}

	now := time.Now().UTC()
	for _, studentID := range req.StudentIDs {
		student, err := s.store.GetUserByID(r.Context(), studentID)
		if err != nil {
			writeError(w, http.StatusNotFound, "user_not_found")
			return
		}
		if student.Role != model.RoleAlumno {
			writeError(w, http.StatusUnprocessableEntity, "invalid_role")
			return
		}
		err = s.store.AddRosterMember(r.Context(), model.RosterMember{
			GroupID:   groupID,
			StudentID: studentID,
			CreatedAt: now,
		})
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "already_enrolled")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveRosterMember(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	studentID := chi.URLParam(r, "studentId")
	if err := s.store.RemoveRosterMember(r.Context(), groupID, studentID); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Schedule

type scheduleEntryRequest struct {
	Weekday  int    `json:"weekday"`
	StartsAt string `json:"startsAt"`
	EndsAt   string `json:"endsAt"`
}

func (s *Server) handleCreateScheduleEntry(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	var req scheduleEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Weekday < 0 || req.Weekday > 6 || req.StartsAt == "" || req.EndsAt == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_schedule")
		return
	}
	if _, err := s.store.GetGroup(r.Context(), groupID); err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}
	entry := model.ScheduleEntry{
		ID:       uuid.NewString(),
		GroupID:  groupID,
		Weekday:  req.Weekday,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	if err := s.store.CreateScheduleEntry(r.Context(), entry); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       entry.ID,
		"groupId":  entry.GroupID,
		"weekday":  entry.Weekday,
		"startsAt": entry.StartsAt,
		"endsAt":   entry.EndsAt,
	})
}

func (s *Server) handleListSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.ListSchedule(r.Context(), chi.URLParam(r, "groupId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, map[string]any{
			"id":       entry.ID,
			"groupId":  entry.GroupID,
			"weekday":  entry.Weekday,
			"startsAt": entry.StartsAt,
			"endsAt":   entry.EndsAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteScheduleEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteScheduleEntry(r.Context(), chi.URLParam(r, "entryId")); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
