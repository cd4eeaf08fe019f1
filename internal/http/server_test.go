package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"aula/server/internal/auth"
	"aula/server/internal/config"
	"aula/server/internal/qr"
	"aula/server/internal/repository"
)

func TestAttendanceFlow(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminToken := mustToken(t, cfg, "00000000-0000-0000-0000-000000000001", "admin")
	suffix := time.Now().Format("150405.000")

	profesor := createTestUser(t, app.URL, adminToken, "profesor", "prof."+suffix+"@example.local")
	alumno := createTestUser(t, app.URL, adminToken, "alumno", "alumno."+suffix+"@example.local")
	profesorToken := mustToken(t, cfg, profesor, "profesor")
	alumnoToken := mustToken(t, cfg, alumno, "alumno")

	groupID := createTestGroup(t, app.URL, adminToken, suffix)

	resp := doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/professor", adminToken, map[string]any{
		"professorId": profesor,
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("assign professor: expected 204, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/students", adminToken, map[string]any{
		"studentIds": []string{alumno},
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add roster: expected 204, got %d", resp.StatusCode)
	}

	// Students cannot open the group register.
	resp = doReq(t, http.MethodGet, app.URL+"/group/"+groupID+"/attendance", alumnoToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	// QR check-in: issue a course code and scan it.
	resp = doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/qrcode", profesorToken, map[string]any{})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue code: expected 201, got %d", resp.StatusCode)
	}
	var issued struct {
		Payload string `json:"payload"`
	}
	decodeBody(t, resp, &issued)
	if _, err := qr.Decode(issued.Payload); err != nil {
		t.Fatalf("issued payload invalid: %v", err)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/checkin", alumnoToken, map[string]any{
		"payload": issued.Payload,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkin: expected 201, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPost, app.URL+"/checkin", alumnoToken, map[string]any{
		"payload": issued.Payload,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second checkin: expected 409, got %d", resp.StatusCode)
	}

	// A malformed payload is rejected before any lookup.
	resp = doReq(t, http.MethodPost, app.URL+"/checkin", alumnoToken, map[string]any{
		"payload": "sincodigo",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	// The register shows the checked-in student as presente.
	resp = doReq(t, http.MethodGet, app.URL+"/group/"+groupID+"/attendance", profesorToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get attendance: expected 200, got %d", resp.StatusCode)
	}
	var register struct {
		Entries []struct {
			StudentID string `json:"studentId"`
			Status    string `json:"status"`
		} `json:"entries"`
	}
	decodeBody(t, resp, &register)
	if len(register.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(register.Entries))
	}
	if register.Entries[0].Status != "presente" {
		t.Fatalf("expected presente, got %s", register.Entries[0].Status)
	}

	// Bulk save persists the whole roster.
	date := time.Now().UTC().Format("2006-01-02")
	resp = doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/attendance/"+date, profesorToken, map[string]any{
		"markAllPresent": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save attendance: expected 200, got %d", resp.StatusCode)
	}

	// The student sees their own history and nobody else's.
	resp = doReq(t, http.MethodGet, app.URL+"/student/"+alumno+"/attendance", alumnoToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("student history: expected 200, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodGet, app.URL+"/student/"+profesor+"/attendance", alumnoToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestGradesFlow(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminToken := mustToken(t, cfg, "00000000-0000-0000-0000-000000000001", "admin")
	suffix := time.Now().Format("150405.000") + "g"

	alumno := createTestUser(t, app.URL, adminToken, "alumno", "alumno."+suffix+"@example.local")
	alumnoToken := mustToken(t, cfg, alumno, "alumno")
	groupID := createTestGroup(t, app.URL, adminToken, suffix)

	resp := doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/students", adminToken, map[string]any{
		"studentIds": []string{alumno},
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("add roster: expected 204, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/assessment", adminToken, map[string]any{
		"type":        "examen",
		"description": "Examen parcial",
		"period":      "bimestre-1",
		"weight":      2,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create assessment: expected 201, got %d", resp.StatusCode)
	}
	var created struct {
		AssessmentID string `json:"assessmentId"`
		Created      int    `json:"created"`
	}
	decodeBody(t, resp, &created)
	if created.Created != 1 {
		t.Fatalf("expected 1 row, got %d", created.Created)
	}

	// Zero weight is rejected.
	resp = doReq(t, http.MethodPost, app.URL+"/group/"+groupID+"/assessment", adminToken, map[string]any{
		"type":        "tarea",
		"description": "Tarea 1",
		"period":      "bimestre-1",
		"weight":      0,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/group/"+groupID+"/grades?period=bimestre-1", adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list grades: expected 200, got %d", resp.StatusCode)
	}
	var items []struct {
		ID        string    `json:"id"`
		Score     float64   `json:"score"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	decodeBody(t, resp, &items)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	// Ungraded rows average to null.
	resp = doReq(t, http.MethodGet, app.URL+"/group/"+groupID+"/grades/averages?period=bimestre-1", adminToken, nil)
	var averages []struct {
		StudentID string   `json:"studentId"`
		Average   *float64 `json:"average"`
	}
	decodeBody(t, resp, &averages)
	if len(averages) != 1 || averages[0].Average != nil {
		t.Fatalf("expected one ungraded average")
	}

	// Out-of-range score is rejected, valid one applies.
	resp = doReq(t, http.MethodPatch, app.URL+"/grade/"+items[0].ID, adminToken, map[string]any{
		"score": 25,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	resp = doReq(t, http.MethodPatch, app.URL+"/grade/"+items[0].ID, adminToken, map[string]any{
		"score":     15,
		"updatedAt": items[0].UpdatedAt,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update grade: expected 200, got %d", resp.StatusCode)
	}

	// A stale updatedAt is a conflict, not a silent overwrite.
	resp = doReq(t, http.MethodPatch, app.URL+"/grade/"+items[0].ID, adminToken, map[string]any{
		"score":     18,
		"updatedAt": items[0].UpdatedAt,
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodGet, app.URL+"/group/"+groupID+"/grades/averages?period=bimestre-1", adminToken, nil)
	decodeBody(t, resp, &averages)
	if len(averages) != 1 || averages[0].Average == nil || *averages[0].Average != 15 {
		t.Fatalf("expected average 15")
	}

	// Students see only their own rows.
	resp = doReq(t, http.MethodGet, app.URL+"/group/"+groupID+"/grades", alumnoToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("student grades: expected 200, got %d", resp.StatusCode)
	}

	resp = doReq(t, http.MethodDelete, app.URL+"/group/"+groupID+"/assessment/"+created.AssessmentID, adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete assessment: expected 200, got %d", resp.StatusCode)
	}
}

func TestRegistrationTokenFlow(t *testing.T) {
	pool := openTestDB(t)
	if pool == nil {
		return
	}
	defer pool.Close()

	cfg := testConfig()
	store := repository.NewStore(pool)
	server := NewServer(cfg, store, nil)
	app := httptest.NewServer(server.Router())
	defer app.Close()

	adminToken := mustToken(t, cfg, "00000000-0000-0000-0000-000000000001", "admin")
	email := "registro." + time.Now().Format("150405.000") + "@example.local"

	resp := doReq(t, http.MethodPost, app.URL+"/registrationToken", adminToken, map[string]any{
		"role":      "profesor",
		"email":     email,
		"firstName": "Nueva",
		"lastName":  "Docente",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("issue token: expected 200, got %d", resp.StatusCode)
	}
	var issued struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	decodeBody(t, resp, &issued)
	if issued.Token == "" {
		t.Fatalf("missing plain token code")
	}

	// First redemption creates the user with the token's identity.
	resp = doReq(t, http.MethodPost, app.URL+"/register", "", map[string]any{
		"token":    issued.Token,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register: expected 200, got %d", resp.StatusCode)
	}
	var registered struct {
		ID    string `json:"id"`
		Role  string `json:"role"`
		Email string `json:"email"`
	}
	decodeBody(t, resp, &registered)
	if registered.Role != "profesor" || registered.Email != email {
		t.Fatalf("unexpected registered user: %+v", registered)
	}

	// The token is spent; a second redemption is a conflict.
	resp = doReq(t, http.MethodPost, app.URL+"/register", "", map[string]any{
		"token":    issued.Token,
		"password": "otra-clave",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d", resp.StatusCode)
	}
	var conflict struct {
		Error string `json:"error"`
	}
	decodeBody(t, resp, &conflict)
	if conflict.Error != "token_used" {
		t.Fatalf("expected token_used, got %s", conflict.Error)
	}

	// The new account can log in.
	resp = doReq(t, http.MethodPost, app.URL+"/login", "", map[string]any{
		"email":    email,
		"password": "dev-password",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", resp.StatusCode)
	}
}

func testConfig() config.Config {
	return config.Config{
		HTTPAddr:        ":0",
		JWTSecret:       "test-secret",
		JWTIssuer:       "test-issuer",
		AccessTokenTTL:  15 * time.Minute,
		CourseCodeTTL:   time.Hour,
		RateLimitPerMin: 120,
	}
}

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("AULA_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("AULA_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := repository.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	return pool
}

func mustToken(t *testing.T, cfg config.Config, userID, userType string) string {
	token, err := auth.NewAccessToken(cfg.JWTSecret, cfg.JWTIssuer, 10*time.Minute, auth.Claims{
		UserID:   userID,
		UserType: userType,
	})
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	return token
}

func createTestUser(t *testing.T, baseURL, adminToken, role, email string) string {
	resp := doReq(t, http.MethodPost, baseURL+"/user", adminToken, map[string]any{
		"role":      role,
		"email":     email,
		"password":  "dev-password",
		"firstName": "Test",
		"lastName":  "Usuario",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create %s: expected 200, got %d", role, resp.StatusCode)
	}
	var user struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &user)
	if user.ID == "" {
		t.Fatalf("missing user id")
	}
	return user.ID
}

func createTestGroup(t *testing.T, baseURL, adminToken, suffix string) string {
	courseID := createNamed(t, baseURL+"/course", adminToken, "Matemática "+suffix)
	levelID := createNamed(t, baseURL+"/gradeLevel", adminToken, "3ro "+suffix)
	sectionID := createNamed(t, baseURL+"/section", adminToken, "A "+suffix)

	resp := doReq(t, http.MethodPost, baseURL+"/group", adminToken, map[string]any{
		"courseId":     courseID,
		"gradeLevelId": levelID,
		"sectionId":    sectionID,
		"schoolYear":   "2026",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create group: expected 200, got %d", resp.StatusCode)
	}
	var group struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &group)
	if group.ID == "" {
		t.Fatalf("missing group id")
	}
	return group.ID
}

func createNamed(t *testing.T, url, adminToken, name string) string {
	resp := doReq(t, http.MethodPost, url, adminToken, map[string]any{"name": name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create %s: expected 200, got %d", url, resp.StatusCode)
	}
	var created struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &created)
	if created.ID == "" {
		t.Fatalf("missing id from %s", url)
	}
	return created.ID
}

func doReq(t *testing.T, method, url, token string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode error: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("request error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("http error: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
