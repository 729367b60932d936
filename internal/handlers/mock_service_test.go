package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"asthma_shield/internal/models"
	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"
)

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockShield struct {
	status     models.Status
	result     service.EvaluationResult
	updateErr  error
	triggerErr error

	mu           sync.Mutex
	lastUpdate   models.StateUpdate
	updateCalls  int
	evalCalls    int
	triggerCalls int
	statusCalls  int
}

func (m *mockShield) Status(ctx context.Context) models.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	return m.status
}
func (m *mockShield) UpdateState(ctx context.Context, u models.StateUpdate) (service.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	m.lastUpdate = u
	return m.result, m.updateErr
}
func (m *mockShield) Evaluate(ctx context.Context) service.EvaluationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evalCalls++
	return m.result
}
func (m *mockShield) TriggerDustKicker(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggerCalls++
	return m.triggerErr
}

type mockActuators struct {
	state models.ActuatorState
	err   error

	calls []string
}

func (m *mockActuators) SetPurifierSpeed(ctx context.Context, speed int) error {
	m.calls = append(m.calls, fmt.Sprintf("speed:%d", speed))
	return m.err
}
func (m *mockActuators) SetPurifierLED(ctx context.Context, brightness int) error {
	m.calls = append(m.calls, fmt.Sprintf("led:%d", brightness))
	return m.err
}
func (m *mockActuators) SetFanMode(ctx context.Context, mode models.FanMode) error {
	m.calls = append(m.calls, "fan:"+string(mode))
	return m.err
}
func (m *mockActuators) SetDehumidifier(ctx context.Context, on bool) error {
	m.calls = append(m.calls, fmt.Sprintf("relay:%t", on))
	return m.err
}
func (m *mockActuators) State() models.ActuatorState { return m.state }

type mockEventLog struct {
	resp      []models.ShieldEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
	calls     int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ShieldEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	m.calls++
	return m.resp, m.err
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

// doJSON sends an authenticated request with a JSON body.
func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	return doRequest(r, method, path, body, "valid")
}

func doRequest(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
