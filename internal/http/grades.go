package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"aula/server/internal/export"
	"aula/server/internal/grades"
	"aula/server/internal/model"
	"aula/server/internal/repository"
	"aula/server/internal/search"
)

type gradeItemResponse struct {
	ID           string    `json:"id"`
	AssessmentID string    `json:"assessmentId"`
	StudentID    string    `json:"studentId"`
	Type         string    `json:"type"`
	Description  string    `json:"description"`
	Period       string    `json:"period"`
	Weight       float64   `json:"weight"`
	Score        float64   `json:"score"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func mapGradeItem(item model.GradeItem) gradeItemResponse {
	return gradeItemResponse{
		ID:           item.ID,
		AssessmentID: item.AssessmentID,
		StudentID:    item.StudentID,
		Type:         item.Type,
		Description:  item.Description,
		Period:       item.Period,
		Weight:       item.Weight,
		Score:        item.Score,
		UpdatedAt:    item.UpdatedAt,
	}
}

type createAssessmentRequest struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Period      string  `json:"period"`
	Weight      float64 `json:"weight"`
}

// handleCreateAssessment fans a new assessment out to every current
// roster member in one transaction.
func (s *Server) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	var req createAssessmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Type == "" || req.Description == "" || req.Period == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_fields")
		return
	}

	roster, err := s.store.ListRoster(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if len(roster) == 0 {
		writeError(w, http.StatusUnprocessableEntity, "empty_roster")
		return
	}
	studentIDs := make([]string, 0, len(roster))
	for _, student := range roster {
		studentIDs = append(studentIDs, student.ID)
	}

	items, err := grades.FanOut(grades.Definition{
		GroupID:     groupID,
		Type:        req.Type,
		Description: req.Description,
		Period:      req.Period,
		Weight:      req.Weight,
	}, studentIDs, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_weight")
		return
	}

	err = s.store.WithTx(r.Context(), func(tx *repository.Store) error {
		return tx.InsertGradeItems(r.Context(), items)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"assessmentId": items[0].AssessmentID,
		"created":      len(items),
	})
}

func (s *Server) handleListGrades(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	claims := claimsFromContext(r.Context())
	period := r.URL.Query().Get("period")

	// Students see only their own rows; staff needs group access.
	if claims != nil && claims.UserType == model.RoleAlumno {
		items, err := s.store.ListGradeItemsByStudent(r.Context(), groupID, claims.UserID, period)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		writeJSON(w, http.StatusOK, mapGradeItems(items))
		return
	}
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	items, err := s.store.ListGradeItems(r.Context(), groupID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	if query := r.URL.Query().Get("q"); query != "" {
		names, err := s.rosterNames(r, groupID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		filtered := items[:0]
		for _, item := range items {
			if search.Matches(query, names[item.StudentID], item.Description, item.Type) {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}
	writeJSON(w, http.StatusOK, mapGradeItems(items))
}

func mapGradeItems(items []model.GradeItem) []gradeItemResponse {
	resp := make([]gradeItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, mapGradeItem(item))
	}
	return resp
}

func (s *Server) rosterNames(r *http.Request, groupID string) (map[string]string, error) {
	roster, err := s.store.ListRoster(r.Context(), groupID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(roster))
	for _, student := range roster {
		names[student.ID] = student.FullName()
	}
	return names, nil
}

type updateGradeRequest struct {
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// handleUpdateGradeScore edits one cell. The request carries the
// updated_at the client last rendered; a mismatch means someone else
// saved first and the edit comes back as a conflict.
func (s *Server) handleUpdateGradeScore(w http.ResponseWriter, r *http.Request) {
	gradeID := chi.URLParam(r, "gradeId")
	var req updateGradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if err := grades.ValidateScore(req.Score); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "score_out_of_range")
		return
	}

	item, err := s.store.GetGradeItem(r.Context(), gradeID)
	if err != nil {
		if repository.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "grade_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !s.ensureGroupAccess(r, item.GroupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	expected := req.UpdatedAt
	if expected.IsZero() {
		expected = item.UpdatedAt
	}
	now := time.Now().UTC()
	applied, err := s.store.UpdateGradeScore(r.Context(), gradeID, req.Score, expected, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !applied {
		writeError(w, http.StatusConflict, "stale_update")
		return
	}

	item.Score = req.Score
	item.UpdatedAt = now
	writeJSON(w, http.StatusOK, mapGradeItem(item))
}

func (s *Server) handleDeleteAssessment(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	assessmentID := chi.URLParam(r, "assessmentId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	deleted, err := s.store.DeleteAssessment(r.Context(), groupID, assessmentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "assessment_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// handleDeleteAssessmentByDefinition removes rows matched by the loose
// (type, description, period) tuple. Kept for clients that predate
// stable assessment ids.
func (s *Server) handleDeleteAssessmentByDefinition(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	q := r.URL.Query()
	period := q.Get("period")
	itemType := q.Get("type")
	description := q.Get("description")
	if period == "" || itemType == "" || description == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}
	deleted, err := s.store.DeleteGradeItemsByDefinition(r.Context(), groupID, period, itemType, description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if deleted == 0 {
		writeError(w, http.StatusNotFound, "assessment_not_found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (s *Server) handleGradeAverages(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	claims := claimsFromContext(r.Context())
	period := r.URL.Query().Get("period")

	if claims != nil && claims.UserType == model.RoleAlumno {
		items, err := s.store.ListGradeItemsByStudent(r.Context(), groupID, claims.UserID, period)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		avg, graded := grades.WeightedAverage(items)
		resp := map[string]any{"studentId": claims.UserID, "average": nil}
		if graded {
			resp["average"] = avg
		}
		writeJSON(w, http.StatusOK, []map[string]any{resp})
		return
	}
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	items, err := s.store.ListGradeItems(r.Context(), groupID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]map[string]any, 0)
	for _, avg := range grades.AveragesByStudent(items) {
		entry := map[string]any{"studentId": avg.StudentID, "average": nil}
		if avg.Graded {
			entry["average"] = avg.Average
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExportGrades(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	period := r.URL.Query().Get("period")

	items, err := s.store.ListGradeItems(r.Context(), groupID, period)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	names, err := s.rosterNames(r, groupID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	out, err := export.GradesCSV(items, names)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	filename := "notas"
	if period != "" {
		filename += "-" + period
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}
