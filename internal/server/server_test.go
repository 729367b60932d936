package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"asthma_shield/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAddr(t *testing.T) {
	for in, want := range map[string]string{
		"":               "",
		"8080":           ":8080",
		":9090":          ":9090",
		"127.0.0.1:8081": "127.0.0.1:8081",
	} {
		assert.Equal(t, want, listenAddr(in), in)
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	s := New(config.HTTPConfig{})
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Nil(t, s.Addr())

	// a Run that starts after Shutdown returns immediately
	assert.NoError(t, s.Run("127.0.0.1:0", http.NotFoundHandler()))
}

func TestRunServesUntilShutdown(t *testing.T) {
	s := New(config.HTTPConfig{WriteTimeout: time.Second})
	done := make(chan error, 1)
	go func() {
		done <- s.Run("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
	}()

	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRunReportsListenError(t *testing.T) {
	s := New(config.HTTPConfig{})
	assert.Error(t, s.Run("127.0.0.1:-1", http.NotFoundHandler()))
}
