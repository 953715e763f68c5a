package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isdelr/paytrack-be/internal/auth"
	"github.com/isdelr/paytrack-be/internal/config"
	"github.com/isdelr/paytrack-be/internal/database"
	"github.com/isdelr/paytrack-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t   *testing.T
	srv *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "paytrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(ctx, db))

	cfg := config.Defaults()
	cfg.JWTSecret = "test-secret"

	router := NewRouter(&cfg,
		auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		db,
		services.NewUserService(db),
		services.NewProjectService(db),
		services.NewPaymentService(db),
	)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{t: t, srv: srv}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (s *testServer) do(method, path, token string, body any, out any) *http.Response {
	s.t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.srv.URL+path, rd)
	require.NoError(s.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

type message struct {
	Message string `json:"message"`
}

type payment struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
}

type project struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	DueDate  string    `json:"dueDate"`
	Status   string    `json:"status"`
	Payments []payment `json:"payments"`
}

func (s *testServer) register(email string) session {
	s.t.Helper()
	var out session
	resp := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "password": "pw123", "name": "A",
	}, &out)
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)
	return out
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	reg := s.register("a@example.com")
	assert.NotEmpty(t, reg.Token)
	assert.NotEmpty(t, reg.User.ID)
	assert.Equal(t, "a@example.com", reg.User.Email)
	assert.Equal(t, "A", reg.User.Name)

	var dup message
	resp := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@example.com", "password": "x", "name": "B",
	}, &dup)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, dup.Message)

	var login session
	resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "pw123",
	}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, reg.User.ID, login.User.ID)

	var cookieFound bool
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookieFound = true
			assert.True(t, c.HttpOnly)
		}
	}
	assert.True(t, cookieFound)

	var bad message
	resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong",
	}, &bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", bad.Message)

	resp = s.do(http.MethodPost, "/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "pw123",
	}, &bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "User not found", bad.Message)

	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	resp = s.do(http.MethodGet, "/auth/me", login.Token, nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, reg.User.ID, me.ID)
}

func TestProjectPaymentFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.register("a@example.com").Token

	var p project
	resp := s.do(http.MethodPost, "/projects", token, map[string]string{
		"name": "Website", "dueDate": "2024-06-01",
	}, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "active", p.Status)
	assert.Equal(t, "2024-06-01", p.DueDate)
	assert.Empty(t, p.Payments)

	var pay payment
	resp = s.do(http.MethodPost, "/projects/"+p.ID+"/payments", token, map[string]any{
		"amount": 500, "date": "2024-05-01", "description": "Deposit",
	}, &pay)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "pending", pay.Status)
	assert.Equal(t, 500.0, pay.Amount)

	// Numeric strings are accepted too.
	var second payment
	resp = s.do(http.MethodPost, "/projects/"+p.ID+"/payments", token, map[string]any{
		"amount": "120.5", "date": "2024-05-10", "description": "Extra",
	}, &second)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 120.5, second.Amount)

	var invalid message
	resp = s.do(http.MethodPost, "/projects/"+p.ID+"/payments", token, map[string]any{
		"amount": -1, "date": "2024-05-01", "description": "Nope",
	}, &invalid)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, invalid.Message, "Amount must be positive")

	var paid payment
	resp = s.do(http.MethodPut, "/projects/"+p.ID+"/payments/"+pay.ID, token, map[string]string{"status": "paid"}, &paid)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "paid", paid.Status)

	var got project
	resp = s.do(http.MethodGet, "/projects/"+p.ID, token, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, got.Payments, 2)
	assert.Equal(t, "paid", got.Payments[0].Status)

	var msg message
	resp = s.do(http.MethodDelete, "/projects/"+p.ID+"/payments/"+pay.ID, token, nil, &msg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(http.MethodDelete, "/projects/"+p.ID+"/payments/"+second.ID, token, nil, &msg)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []project
	resp = s.do(http.MethodGet, "/projects", token, nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.NotNil(t, list[0].Payments)
	assert.Empty(t, list[0].Payments)

	var updated project
	resp = s.do(http.MethodPut, "/projects/"+p.ID, token, map[string]string{"status": "completed"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", updated.Status)
	assert.Equal(t, "Website", updated.Name)

	resp = s.do(http.MethodDelete, "/projects/"+p.ID, token, nil, &msg)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, msg.Message)

	resp = s.do(http.MethodGet, "/projects/"+p.ID, token, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProjects_RequireAuth(t *testing.T) {
	s := newTestServer(t)

	var msg message
	resp := s.do(http.MethodGet, "/projects", "", nil, &msg)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, msg.Message)

	resp = s.do(http.MethodGet, "/projects", "garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProjects_OtherUserGetsNotFound(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice@example.com").Token
	mallory := s.register("mallory@example.com").Token

	var p project
	resp := s.do(http.MethodPost, "/projects", alice, map[string]string{
		"name": "Secret", "dueDate": "2024-06-01",
	}, &p)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/projects/"+p.ID, mallory, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, "/projects/"+p.ID, mallory,
		map[string]string{"name": "Mine"}, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/projects/"+p.ID, mallory, nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/projects/"+p.ID+"/payments", mallory,
		map[string]any{"amount": 1, "date": "2024-05-01", "description": "x"}, nil).StatusCode)

	var list []project
	s.do(http.MethodGet, "/projects", mallory, nil, &list)
	assert.Empty(t, list)
}

func TestExportImport(t *testing.T) {
	s := newTestServer(t)
	token := s.register("a@example.com").Token

	resp := s.do(http.MethodPost, "/projects", token, map[string]string{"name": "Website", "dueDate": "2024-06-01"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodGet, "/projects/export", token, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="projects.csv"`)
	exported, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Name,Due Date,Status\nWebsite,2024-06-01,active\n", string(exported))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "projects.csv")
	require.NoError(t, err)
	_, err = fw.Write(exported)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/projects/import", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	importResp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer importResp.Body.Close()

	var result struct {
		Message  string `json:"message"`
		Imported int    `json:"imported"`
	}
	require.Equal(t, http.StatusOK, importResp.StatusCode)
	require.NoError(t, json.NewDecoder(importResp.Body).Decode(&result))
	assert.Equal(t, "Import successful", result.Message)
	assert.Equal(t, 1, result.Imported)

	var list []project
	s.do(http.MethodGet, "/projects", token, nil, &list)
	assert.Len(t, list, 2)
}

func TestImport_RejectsBadFile(t *testing.T) {
	s := newTestServer(t)
	token := s.register("a@example.com").Token

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "projects.csv")
	require.NoError(t, err)
	_, err = io.Copy(fw, strings.NewReader("Title\nfoo\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.srv.URL+"/projects/import", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No file field at all.
	resp2 := s.do(http.MethodPost, "/projects/import", token, map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestEarnings(t *testing.T) {
	s := newTestServer(t)
	token := s.register("a@example.com").Token

	var p project
	s.do(http.MethodPost, "/projects", token, map[string]string{"name": "Website", "dueDate": "2024-06-01"}, &p)
	s.do(http.MethodPost, "/projects/"+p.ID+"/payments", token, map[string]any{
		"amount": 300, "date": "2024-03-15", "description": "x", "status": "paid",
	}, nil)

	var sum struct {
		Year   int     `json:"year"`
		Total  float64 `json:"total"`
		Months []struct {
			Month  string  `json:"month"`
			Amount float64 `json:"amount"`
		} `json:"months"`
	}
	resp := s.do(http.MethodGet, "/projects/earnings?year=2024", token, nil, &sum)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2024, sum.Year)
	assert.Equal(t, 300.0, sum.Total)
	require.Len(t, sum.Months, 12)
	assert.Equal(t, 300.0, sum.Months[2].Amount)

	resp = s.do(http.MethodGet, "/projects/earnings?year=abc", token, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)

	var out map[string]string
	resp := s.do(http.MethodGet, "/healthz", "", nil, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", out["status"])
}

func TestTokenCookieFallback(t *testing.T) {
	s := newTestServer(t)
	token := s.register("a@example.com").Token

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/projects", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token, Expires: time.Now().Add(time.Hour)})
	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
