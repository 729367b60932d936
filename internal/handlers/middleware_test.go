package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"asthma_shield/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// guarded serves /secure behind userIdMiddleware and echoes the operator ID.
func guarded(auth *mockAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&service.Service{Authorization: auth}, nil, nil)
	r := gin.New()
	echo := func(c *gin.Context) {
		id, _ := c.Get(ctxUserID)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	}
	r.GET("/secure", h.userIdMiddleware, echo)
	r.POST("/secure", h.userIdMiddleware, echo)
	return r
}

func TestUserIdMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		target  string
		header  string
		parse   error
		wantMsg string
	}{
		{name: "no credentials", method: http.MethodGet, target: "/secure", wantMsg: errMissingAuth},
		{name: "wrong scheme", method: http.MethodGet, target: "/secure", header: "Token abc", wantMsg: errBadAuth},
		{name: "bearer alone", method: http.MethodGet, target: "/secure", header: "Bearer", wantMsg: errBadAuth},
		{name: "bearer blank", method: http.MethodGet, target: "/secure", header: "Bearer   ", wantMsg: errBadAuth},
		{name: "token rejected", method: http.MethodGet, target: "/secure", header: "Bearer expired", parse: errors.New("expired"), wantMsg: errBadToken},
		{name: "query token rejected", method: http.MethodGet, target: "/secure?access_token=old", parse: errors.New("expired"), wantMsg: errBadToken},
		{name: "query token ignored on POST", method: http.MethodPost, target: "/secure?access_token=t", wantMsg: errMissingAuth},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := guarded(&mockAuth{parseID: 7, parseErr: tc.parse})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusUnauthorized, w.Code)
			var out struct {
				Error string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, tc.wantMsg, out.Error)
		})
	}
}

func TestUserIdMiddleware_Accepts(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		header    string
		wantToken string
	}{
		{name: "bearer header", target: "/secure", header: "Bearer good-token", wantToken: "good-token"},
		{name: "lowercase scheme", target: "/secure", header: "bearer good-token", wantToken: "good-token"},
		{name: "query token", target: "/secure?access_token=from-query", wantToken: "from-query"},
		{name: "header wins over query", target: "/secure?access_token=from-query", header: "Bearer from-header", wantToken: "from-header"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{parseID: 123}
			r := guarded(auth)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.JSONEq(t, `{"user_id":123}`, w.Body.String())
			assert.Equal(t, tc.wantToken, auth.lastParseToken)
		})
	}
}
