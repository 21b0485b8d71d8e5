package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"
	"golang.org/x/crypto/bcrypt"

	"github.com/xxxsen/dailypen/internal/handler"
	"github.com/xxxsen/dailypen/internal/middleware"
	"github.com/xxxsen/dailypen/internal/pkg/jwt"
	"github.com/xxxsen/dailypen/internal/pkg/password"
	"github.com/xxxsen/dailypen/internal/repo"
	"github.com/xxxsen/dailypen/internal/service"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

type captureSender struct {
	mu    sync.Mutex
	codes []string
	err   error
}

func (s *captureSender) Send(_ context.Context, _, _, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.codes = append(s.codes, codePattern.FindString(body))
	return nil
}

func (s *captureSender) last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		return ""
	}
	return s.codes[len(s.codes)-1]
}

type envelope struct {
	Code int                    `json:"code"`
	Msg  string                 `json:"msg"`
	Data map[string]interface{} `json:"data"`
}

type testServer struct {
	router http.Handler
	sender *captureSender
	users  *repo.MemoryUserRepo
}

func setupRouter(t *testing.T, limiter middleware.Limiter) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	password.Cost = bcrypt.MinCost

	users := repo.NewMemoryUserRepo()
	sender := &captureSender{}
	jwtSecret := []byte("test-secret")
	authService := service.NewAuthService(users, sender, jwt.NewIssuer(jwtSecret, time.Hour), service.AuthOptions{
		OTPTTL:        5 * time.Minute,
		AllowRegister: true,
	})
	userService := service.NewUserService(users)
	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userService),
		Admin:     handler.NewAdminHandler(userService),
		Roles:     userService,
		Limiter:   limiter,
		JWTSecret: jwtSecret,
	}
	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return &testServer{router: engine, sender: sender, users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	s.router.ServeHTTP(resp, req)
	var out envelope
	if resp.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	}
	return resp, out
}
