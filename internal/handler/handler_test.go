package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"finchat/internal/middleware"
	"finchat/internal/models"
	"finchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthService struct {
	registerErr error
	loginErr    error
}

func (s stubAuthService) Register(context.Context, string, string) error { return s.registerErr }

func (s stubAuthService) Login(context.Context, string, string) (string, time.Time, error) {
	if s.loginErr != nil {
		return "", time.Time{}, s.loginErr
	}
	return "signed", time.Now().Add(time.Hour), nil
}

type stubChatService struct {
	history  []models.Exchange
	resp     *models.ChatResponse
	err      error
	asked    string
	askedFor string
}

func (s *stubChatService) CanAccess(context.Context, string) ([]models.Exchange, error) {
	return s.history, s.err
}

func (s *stubChatService) Ask(_ context.Context, username, question string) (*models.ChatResponse, error) {
	s.askedFor = username
	s.asked = question
	return s.resp, s.err
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authRouter(svc AuthService) *gin.Engine {
	h := NewAuthHandler(svc, zap.NewNop())
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	return r
}

// chatRouter stands in for the auth middleware by setting the username directly.
func chatRouter(svc ChatService, username string) *gin.Engine {
	h := NewChatHandler(svc, zap.NewNop())
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.UsernameKey, username) })
	r.GET("/can-access", h.CanAccess)
	r.POST("/chat", h.Ask)
	return r
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"created", `{"username":"alice","password":"secret1"}`, nil, http.StatusCreated, `{"message":"User registered successfully"}`},
		{"duplicate", `{"username":"Admin","password":"secret1"}`, service.ErrUserAlreadyExists, http.StatusBadRequest, `{"error":"Username already exists"}`},
		{"short username", `{"username":"ab","password":"secret1"}`, service.ErrInvalidUsername, http.StatusBadRequest, `{"error":"Username must be between 3-10 characters"}`},
		{"short password", `{"username":"alice","password":"x"}`, service.ErrInvalidPassword, http.StatusBadRequest, `{"error":"Password must be between 6-20 characters"}`},
		{"store failure", `{"username":"alice","password":"secret1"}`, errors.New("disk full"), http.StatusInternalServerError, `{"error":"Error registering user"}`},
		{"malformed json", `{"username":`, nil, http.StatusBadRequest, `{"error":"Invalid request body"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(authRouter(stubAuthService{registerErr: tt.err}), http.MethodPost, "/register", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"success", nil, http.StatusOK, `{"message":"Login successful","token":"signed"}`},
		{"unknown user", service.ErrUserNotFound, http.StatusNotFound, `{"error":"User not found"}`},
		{"wrong password", service.ErrInvalidCredentials, http.StatusUnauthorized, `{"error":"Invalid password"}`},
		{"store failure", fmt.Errorf("failed to find user: %w", errors.New("timeout")), http.StatusInternalServerError, `{"error":"Error logging in user"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(authRouter(stubAuthService{loginErr: tt.err}), http.MethodPost, "/login", `{"username":"Admin","password":"123456"}`)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestChatHandler_CanAccess(t *testing.T) {
	asked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := &stubChatService{history: []models.Exchange{{Question: "q", Answer: "a", Sources: []string{"s"}, AskedAt: asked}}}

	w := do(chatRouter(svc, "Admin"), http.MethodGet, "/can-access", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"message": "The user can access the chat",
		"chat": [{"question":"q","answer":"a","sources":["s"],"aiProcessed":false,"askedAt":"2024-05-01T12:00:00Z"}]
	}`, w.Body.String())

	svc = &stubChatService{err: service.ErrUnknownUser}
	w = do(chatRouter(svc, "ghost"), http.MethodGet, "/can-access", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Username doesn't exists"}`, w.Body.String())

	svc = &stubChatService{err: errors.New("history offline")}
	w = do(chatRouter(svc, "Admin"), http.MethodGet, "/can-access", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Error testing Access"}`, w.Body.String())
}

func TestChatHandler_Ask(t *testing.T) {
	svc := &stubChatService{resp: &models.ChatResponse{
		Chat:            "answer",
		Sources:         []string{"frag"},
		OriginalChunks:  1,
		ValidatedChunks: 1,
		AIProcessed:     true,
	}}

	w := do(chatRouter(svc, "Admin"), http.MethodPost, "/chat", `{"username":"Admin","question":"What moved the S&P?"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chat":"answer","sources":["frag"],"originalChunks":1,"validatedChunks":1,"aiProcessed":true}`, w.Body.String())
	assert.Equal(t, "Admin", svc.askedFor)
	assert.Equal(t, "What moved the S&P?", svc.asked)
}

func TestChatHandler_AskUsesTokenUsername(t *testing.T) {
	svc := &stubChatService{resp: &models.ChatResponse{Sources: []string{}}}

	w := do(chatRouter(svc, "Admin"), http.MethodPost, "/chat", `{"question":"q"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Admin", svc.askedFor)

	w = do(chatRouter(svc, "Admin"), http.MethodPost, "/chat", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", svc.asked)
}

func TestChatHandler_AskErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{"username mismatch", `{"username":"mallory","question":"q"}`, nil, http.StatusForbidden, `{"error":"Token does not match username"}`},
		{"malformed json", `{"question":`, nil, http.StatusBadRequest, `{"error":"Invalid request body"}`},
		{"unknown user", `{"question":"q"}`, service.ErrUnknownUser, http.StatusBadRequest, `{"error":"Username doesn't exists"}`},
		{
			"retrieval failure",
			`{"question":"q"}`,
			&service.RetrievalError{Stage: service.StageQuery, Err: errors.New("index offline")},
			http.StatusInternalServerError,
			`{"error":"Error testing Access"}`,
		},
		{"unexpected failure", `{"question":"q"}`, errors.New("boom"), http.StatusInternalServerError, `{"error":"Error testing Access"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubChatService{err: tt.err}
			w := do(chatRouter(svc, "Admin"), http.MethodPost, "/chat", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestWelcomeAndHealth(t *testing.T) {
	r := gin.New()
	r.GET("/", Welcome)
	r.GET("/health", HealthCheck)

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Welcome to the AI Chatbot Code Challenge API!"}`, w.Body.String())

	w = do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
