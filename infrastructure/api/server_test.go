package api

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	server := NewServer(":8080", DefaultTimeouts(), slog.Default())

	assert.Equal(t, ":8080", server.Addr())
	assert.NotNil(t, server.Router())
}

func TestTimeouts_WriteCoversRequestBudget(t *testing.T) {
	tm := DefaultTimeouts()
	assert.Greater(t, tm.write(), tm.Request)

	tm.Request = time.Second
	assert.Equal(t, 6*time.Second, tm.write())
}

func TestServer_RoutesAndNotFound(t *testing.T) {
	server := NewServer(":0", DefaultTimeouts(), slog.Default())
	router := server.Router()
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RecoversPanics(t *testing.T) {
	server := NewServer(":0", DefaultTimeouts(), slog.Default())
	server.Router().Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_ServeUntilShutdown(t *testing.T) {
	server := NewServer("127.0.0.1:0", DefaultTimeouts(), slog.Default())
	server.Router().Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}

func TestServer_ShutdownBeforeServe(t *testing.T) {
	server := NewServer(":0", DefaultTimeouts(), slog.Default())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	assert.NoError(t, server.Serve(ln))

	_, err = net.DialTimeout("tcp", ln.Addr().String(), 100*time.Millisecond)
	assert.Error(t, err, "listener is closed")
}
