package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aula/server/internal/auth"
	"aula/server/internal/crypto"
	"aula/server/internal/model"
	"aula/server/internal/repository"
	"aula/server/internal/search"
)

var errTokenUsed = errors.New("registration token already used")

type userResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DNI       string `json:"dni,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Active    bool   `json:"active"`
}

func mapUser(user model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Role:      user.Role,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		DNI:       deref(user.DNI),
		Phone:     deref(user.Phone),
		Active:    user.Active,
	}
}

func validRole(role string) bool {
	switch role {
	case model.RoleAdmin, model.RoleProfesor, model.RoleAuxiliar, model.RoleAlumno:
		return true
	}
	return false
}

// Login

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err := crypto.CheckPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if !user.Active {
		writeError(w, http.StatusForbidden, "user_inactive")
		return
	}

	token, err := auth.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.AccessTokenTTL, auth.Claims{
		UserID:   user.ID,
		UserType: user.Role,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": token,
		"user":        mapUser(user),
	})
}

// Registration via one-time token

type registerRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	DNI      string `json:"dni"`
	Phone    string `json:"phone"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Token == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	token, err := s.store.GetRegistrationTokenByHash(r.Context(), crypto.HashToken(req.Token))
	if err != nil {
		writeError(w, http.StatusNotFound, "token_not_found")
		return
	}
	if token.UsedAt != nil {
		writeError(w, http.StatusConflict, "token_used")
		return
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Role:         token.Role,
		Email:        token.Email,
		PasswordHash: passwordHash,
		FirstName:    token.FirstName,
		LastName:     token.LastName,
		DNI:          strPtr(req.DNI),
		Phone:        strPtr(req.Phone),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.store.WithTx(r.Context(), func(tx *repository.Store) error {
		used, err := tx.MarkTokenUsed(r.Context(), token.ID, user.ID, now)
		if err != nil {
			return err
		}
		if !used {
			return errTokenUsed
		}
		return tx.CreateUser(r.Context(), user)
	})
	if errors.Is(err, errTokenUsed) {
		writeError(w, http.StatusConflict, "token_used")
		return
	}
	if repository.IsUniqueViolation(err) {
		writeError(w, http.StatusConflict, "email_exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

// Users CRUD

type createUserRequest struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	DNI       string `json:"dni"`
	Phone     string `json:"phone"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_fields")
		return
	}
	if !validRole(req.Role) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_role")
		return
	}

	passwordHash, err := crypto.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Role:         req.Role,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DNI:          strPtr(req.DNI),
		Phone:        strPtr(req.Phone),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	query := r.URL.Query().Get("q")
	var active *bool
	if raw := r.URL.Query().Get("active"); raw != "" {
		value := raw == "true" || raw == "1"
		active = &value
	}
	limit := parseLimit(r, 200)

	users, err := s.store.ListUsers(r.Context(), role, active, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		if !search.Matches(query, user.FullName(), deref(user.DNI), user.Email) {
			continue
		}
		resp = append(resp, mapUser(user))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	userID := chi.URLParam(r, "userId")
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing_token")
		return
	}
	if claims.UserType != model.RoleAdmin && claims.UserID != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

type patchUserRequest struct {
	Email     *string `json:"email"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	DNI       *string `json:"dni"`
	Phone     *string `json:"phone"`
	Active    *bool   `json:"active"`
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	var req patchUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, err := s.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.DNI != nil {
		user.DNI = strPtr(*req.DNI)
	}
	if req.Phone != nil {
		user.Phone = strPtr(*req.Phone)
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateUser(r.Context(), user); err != nil {
		if repository.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email_exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if req.Active != nil {
		if err := s.store.SetUserActive(r.Context(), userID, *req.Active, user.UpdatedAt); err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		user.Active = *req.Active
	}
	writeJSON(w, http.StatusOK, mapUser(user))
}

// handleDeactivateUser flips active off; records persist indefinitely.
func (s *Server) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if _, err := s.store.GetUserByID(r.Context(), userID); err != nil {
		writeError(w, http.StatusNotFound, "user_not_found")
		return
	}
	if err := s.store.SetUserActive(r.Context(), userID, false, time.Now().UTC()); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Registration tokens

type createTokenRequest struct {
	Role      string `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) handleCreateRegistrationToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if req.Email == "" || req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusUnprocessableEntity, "missing_fields")
		return
	}
	if !validRole(req.Role) {
		writeError(w, http.StatusUnprocessableEntity, "invalid_role")
		return
	}

	code, err := crypto.NewRegistrationToken(s.cfg.RegistrationTokenLen)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	token := model.RegistrationToken{
		ID:        uuid.NewString(),
		TokenHash: crypto.HashToken(code),
		Role:      req.Role,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRegistrationToken(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	// The plain code is only returned here; the store keeps a hash.
	writeJSON(w, http.StatusOK, map[string]string{
		"id":    token.ID,
		"token": code,
	})
}

type tokenResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	UsedAt    string `json:"usedAt,omitempty"`
	UsedBy    string `json:"usedBy,omitempty"`
}

func (s *Server) handleListRegistrationTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := s.store.ListRegistrationTokens(r.Context(), parseLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	resp := make([]tokenResponse, 0, len(tokens))
	for _, token := range tokens {
		entry := tokenResponse{
			ID:        token.ID,
			Role:      token.Role,
			Email:     token.Email,
			FirstName: token.FirstName,
			LastName:  token.LastName,
			UsedBy:    deref(token.UsedBy),
		}
		if token.UsedAt != nil {
			entry.UsedAt = token.UsedAt.UTC().Format(time.RFC3339)
		}
		resp = append(resp, entry)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteRegistrationToken(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRegistrationToken(r.Context(), chi.URLParam(r, "tokenId")); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
