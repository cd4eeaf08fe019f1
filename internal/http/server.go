package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"aula/server/internal/auth"
	"aula/server/internal/config"
	"aula/server/internal/httpmiddleware"
	"aula/server/internal/model"
	"aula/server/internal/repository"
)

type Server struct {
	cfg     config.Config
	store   *repository.Store
	redis   *redis.Client
	limiter *httpmiddleware.TokenBucket
}

func NewServer(cfg config.Config, store *repository.Store, redisClient *redis.Client) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		redis:   redisClient,
		limiter: httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.With(s.limiter.Middleware).Post("/login", s.handleLogin)
	r.With(s.limiter.Middleware).Post("/register", s.handleRegister)

	// Users and registration tokens (admin).
	r.With(s.authMiddleware, s.requireAdmin).Get("/users", s.handleListUsers)
	r.With(s.authMiddleware, s.requireAdmin).Post("/user", s.handleCreateUser)
	r.With(s.authMiddleware).Get("/user/{userId}", s.handleGetUser)
	r.With(s.authMiddleware, s.requireAdmin).Patch("/user/{userId}", s.handlePatchUser)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/user/{userId}", s.handleDeactivateUser)

	r.With(s.authMiddleware, s.requireAdmin).Post("/registrationToken", s.handleCreateRegistrationToken)
	r.With(s.authMiddleware, s.requireAdmin).Get("/registrationTokens", s.handleListRegistrationTokens)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/registrationToken/{tokenId}", s.handleDeleteRegistrationToken)

	// Academic catalog and groups.
	r.With(s.authMiddleware).Get("/courses", s.handleListCourses)
	r.With(s.authMiddleware, s.requireAdmin).Post("/course", s.handleCreateCourse)
	r.With(s.authMiddleware).Get("/gradeLevels", s.handleListGradeLevels)
	r.With(s.authMiddleware, s.requireAdmin).Post("/gradeLevel", s.handleCreateGradeLevel)
	r.With(s.authMiddleware).Get("/sections", s.handleListSections)
	r.With(s.authMiddleware, s.requireAdmin).Post("/section", s.handleCreateSection)

	r.With(s.authMiddleware).Get("/groups", s.handleListGroups)
	r.With(s.authMiddleware, s.requireAdmin).Post("/group", s.handleCreateGroup)
	r.With(s.authMiddleware).Get("/group/{groupId}", s.handleGetGroup)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/group/{groupId}", s.handleDeleteGroup)
	r.With(s.authMiddleware, s.requireAdmin).Post("/group/{groupId}/professor", s.handleAssignProfessor)

	r.With(s.authMiddleware, s.requireStaff).Get("/group/{groupId}/students", s.handleListRoster)
	r.With(s.authMiddleware, s.requireAdmin).Post("/group/{groupId}/students", s.handleAddRosterMembers)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/group/{groupId}/student/{studentId}", s.handleRemoveRosterMember)

	r.With(s.authMiddleware).Get("/group/{groupId}/schedule", s.handleListSchedule)
	r.With(s.authMiddleware, s.requireAdmin).Post("/group/{groupId}/schedule", s.handleCreateScheduleEntry)
	r.With(s.authMiddleware, s.requireAdmin).Delete("/schedule/{entryId}", s.handleDeleteScheduleEntry)

	// Attendance.
	r.With(s.authMiddleware, s.requireStaff).Get("/group/{groupId}/attendance", s.handleGetAttendance)
	r.With(s.authMiddleware, s.requireStaff).Post("/group/{groupId}/attendance/{date}", s.handleSaveAttendance)
	r.With(s.authMiddleware, s.requireStaff).Get("/group/{groupId}/attendance/history", s.handleAttendanceHistory)
	r.With(s.authMiddleware, s.requireStaff).Get("/group/{groupId}/attendance/{date}/export", s.handleExportAttendance)
	r.With(s.authMiddleware).Get("/student/{studentId}/attendance", s.handleStudentAttendance)

	// QR codes and check-in.
	r.With(s.authMiddleware, s.requireStaff).Post("/group/{groupId}/qrcode", s.handleIssueCourseCode)
	r.With(s.authMiddleware, s.requireStaff).Get("/group/{groupId}/qrcodes", s.handleListCourseCodes)
	r.With(s.authMiddleware, s.limiter.Middleware).Post("/checkin", s.handleCheckIn)

	// Grades.
	r.With(s.authMiddleware, s.requireStaff).Post("/group/{groupId}/assessment", s.handleCreateAssessment)
	r.With(s.authMiddleware).Get("/group/{groupId}/grades", s.handleListGrades)
	r.With(s.authMiddleware, s.requireStaff).Patch("/grade/{gradeId}", s.handleUpdateGradeScore)
	r.With(s.authMiddleware, s.requireStaff).Delete("/group/{groupId}/assessment/{assessmentId}", s.handleDeleteAssessment)
	r.With(s.authMiddleware, s.requireStaff).Delete("/group/{groupId}/assessments", s.handleDeleteAssessmentByDefinition)
	r.With(s.authMiddleware).Get("/group/{groupId}/grades/averages", s.handleGradeAverages)
	r.With(s.authMiddleware, s.requireStaff).Get("/group/{groupId}/grades/export", s.handleExportGrades)

	// Messaging.
	r.With(s.authMiddleware).Post("/message", s.handleSendMessage)
	r.With(s.authMiddleware).Get("/messages/inbox", s.handleListInbox)
	r.With(s.authMiddleware).Get("/messages/sent", s.handleListSent)
	r.With(s.authMiddleware).Patch("/message/{messageId}/read", s.handleMarkMessageRead)

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		claims, err := auth.ParseToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil || claims.UserType != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireStaff admits admins, professors and auxiliary staff. Handlers
// that operate on a specific group still verify the professor's
// assignment via ensureGroupAccess.
func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		if claims == nil {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		switch claims.UserType {
		case model.RoleAdmin, model.RoleProfesor, model.RoleAuxiliar:
			next.ServeHTTP(w, r)
		default:
			writeError(w, http.StatusForbidden, "forbidden")
		}
	})
}

// ensureGroupAccess allows admins and auxiliaries through and requires
// professors to be assigned to the group.
func (s *Server) ensureGroupAccess(r *http.Request, groupID string) bool {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		return false
	}
	switch claims.UserType {
	case model.RoleAdmin, model.RoleAuxiliar:
		return true
	case model.RoleProfesor:
		assigned, err := s.store.IsGroupProfessor(r.Context(), groupID, claims.UserID)
		return err == nil && assigned
	}
	return false
}
