package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aula/server/internal/attendance"
	"aula/server/internal/metrics"
	"aula/server/internal/model"
	"aula/server/internal/qr"
	"aula/server/internal/repository"
)

const courseCodeKeyPrefix = "coursecode:"

// cachedCourseCode is the record stored in redis under the code key so
// check-ins resolve without a database round trip. Postgres stays the
// system of record; the cache entry expires with the code.
type cachedCourseCode struct {
	ID        string    `json:"id"`
	CourseID  string    `json:"courseId"`
	GroupID   string    `json:"groupId"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) cacheCourseCode(ctx context.Context, code model.CourseCode) {
	if s.redis == nil {
		return
	}
	payload, err := json.Marshal(cachedCourseCode{
		ID:        code.ID,
		CourseID:  code.CourseID,
		GroupID:   code.GroupID,
		Code:      code.Code,
		ExpiresAt: code.ExpiresAt,
	})
	if err != nil {
		return
	}
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return
	}
	_ = s.redis.Set(ctx, courseCodeKeyPrefix+code.Code, payload, ttl).Err()
}

func (s *Server) lookupCachedCourseCode(ctx context.Context, code string) (cachedCourseCode, bool) {
	if s.redis == nil {
		return cachedCourseCode{}, false
	}
	raw, err := s.redis.Get(ctx, courseCodeKeyPrefix+code).Bytes()
	if err != nil {
		return cachedCourseCode{}, false
	}
	var cached cachedCourseCode
	if err := json.Unmarshal(raw, &cached); err != nil {
		return cachedCourseCode{}, false
	}
	return cached, true
}

type issueCourseCodeRequest struct {
	TTLMinutes int `json:"ttlMinutes"`
}

type courseCodeResponse struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	Code      string    `json:"code"`
	Payload   string    `json:"payload"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func mapCourseCode(code model.CourseCode) courseCodeResponse {
	return courseCodeResponse{
		ID:        code.ID,
		GroupID:   code.GroupID,
		Code:      code.Code,
		Payload:   qr.Encode(qr.KindCourse, code.Code),
		Active:    code.Active,
		CreatedAt: code.CreatedAt,
		ExpiresAt: code.ExpiresAt,
	}
}

func (s *Server) handleIssueCourseCode(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, http.StatusNotFound, "group_not_found")
		return
	}

	var req issueCourseCodeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	ttl := s.cfg.CourseCodeTTL
	if req.TTLMinutes > 0 {
		ttl = time.Duration(req.TTLMinutes) * time.Minute
	}

	now := time.Now().UTC()
	code := model.CourseCode{
		ID:        uuid.NewString(),
		CourseID:  group.CourseID,
		GroupID:   groupID,
		Code:      uuid.NewString(),
		Active:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.store.CreateCourseCode(r.Context(), code); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	s.cacheCourseCode(r.Context(), code)
	metrics.CodesIssued.Inc()

	writeJSON(w, http.StatusCreated, mapCourseCode(code))
}

func (s *Server) handleListCourseCodes(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupId")
	if !s.ensureGroupAccess(r, groupID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	codes, err := s.store.ListCourseCodesByGroup(r.Context(), groupID, parseLimit(r, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]courseCodeResponse, 0, len(codes))
	for _, code := range codes {
		resp = append(resp, mapCourseCode(code))
	}
	writeJSON(w, http.StatusOK, resp)
}

type checkInRequest struct {
	Payload string `json:"payload"`
	GroupID string `json:"groupId"`
}

// handleCheckIn records an attendance entry from a scanned payload.
// Course payloads resolve the group from the code; user payloads are a
// self check-in and need the target group in the body.
func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil || claims.UserType != model.RoleAlumno {
		metrics.CheckIns.WithLabelValues("forbidden").Inc()
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req checkInRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	payload, err := qr.Decode(req.Payload)
	switch {
	case errors.Is(err, qr.ErrInvalidFormat):
		metrics.CheckIns.WithLabelValues("invalid_format").Inc()
		writeError(w, http.StatusBadRequest, "invalid_format")
		return
	case errors.Is(err, qr.ErrUnsupportedKind):
		metrics.CheckIns.WithLabelValues("unsupported_kind").Inc()
		writeError(w, http.StatusUnprocessableEntity, "unsupported_kind")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_format")
		return
	}

	now := time.Now().UTC()
	var groupID string
	switch payload.Kind {
	case qr.KindCourse:
		groupID, err = s.resolveCourseCode(r.Context(), payload.ID, now)
		if err != nil {
			if errors.Is(err, errCodeExpired) {
				metrics.CheckIns.WithLabelValues("expired").Inc()
				writeError(w, http.StatusForbidden, "code_expired")
				return
			}
			metrics.CheckIns.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "code_not_found")
			return
		}
	case qr.KindUser:
		if payload.ID != claims.UserID {
			metrics.CheckIns.WithLabelValues("forbidden").Inc()
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		if req.GroupID == "" {
			writeError(w, http.StatusBadRequest, "missing_group")
			return
		}
		groupID = req.GroupID
	}

	member, err := s.store.IsRosterMember(r.Context(), groupID, claims.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !member {
		metrics.CheckIns.WithLabelValues("not_enrolled").Inc()
		writeError(w, http.StatusForbidden, "not_enrolled")
		return
	}

	checkIn := now.Format("15:04")
	record := model.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: claims.UserID,
		GroupID:   groupID,
		Date:      now.Format("2006-01-02"),
		Status:    attendance.StatusPresente,
		CheckIn:   &checkIn,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertAttendanceRecord(r.Context(), record); err != nil {
		if repository.IsUniqueViolation(err) {
			metrics.CheckIns.WithLabelValues("duplicate").Inc()
			writeError(w, http.StatusConflict, "already_registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	metrics.CheckIns.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusCreated, map[string]any{
		"groupId": groupID,
		"date":    record.Date,
		"status":  record.Status,
		"checkIn": checkIn,
	})
}

var errCodeExpired = errors.New("course code expired")

// resolveCourseCode tries the redis cache first and falls back to the
// database. The cache only ever holds unexpired codes, so a hit there
// is authoritative.
func (s *Server) resolveCourseCode(ctx context.Context, code string, now time.Time) (string, error) {
	if cached, ok := s.lookupCachedCourseCode(ctx, code); ok {
		if now.After(cached.ExpiresAt) {
			return "", errCodeExpired
		}
		return cached.GroupID, nil
	}
	stored, err := s.store.GetActiveCourseCode(ctx, code, now)
	if err != nil {
		return "", err
	}
	return stored.GroupID, nil
}
