package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/kagimori/internal/crypto/domain"
	cryptoService "github.com/allisson/kagimori/internal/crypto/service"
	encryptionHTTP "github.com/allisson/kagimori/internal/encryption/http"
	"github.com/allisson/kagimori/internal/encryption/usecase"
	"github.com/allisson/kagimori/internal/metrics"
	"github.com/allisson/kagimori/internal/storage"
	storageMocks "github.com/allisson/kagimori/internal/storage/mocks"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeReadiness(t *testing.T, w *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var response map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	components, ok := response["components"].(map[string]any)
	require.True(t, ok)
	return response["status"].(string), components
}

func TestHealthHandler(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, discardLogger())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	server.healthHandler(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Run("NotReady_NilStorage", func(t *testing.T) {
		server := NewServer(nil, "localhost", 8080, discardLogger())

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		status, components := decodeReadiness(t, w)
		assert.Equal(t, "not_ready", status)
		assert.Equal(t, "error", components["storage"])
	})

	t.Run("NotReady_StorageError", func(t *testing.T) {
		store := &storageMocks.MockStorage{}
		store.On("Exists", mock.Anything, readinessProbeKey).Return(false, storage.ErrUnavailable).Once()
		server := NewServer(store, "localhost", 8080, discardLogger())

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		status, _ := decodeReadiness(t, w)
		assert.Equal(t, "not_ready", status)
		store.AssertExpectations(t)
	})

	t.Run("Ready", func(t *testing.T) {
		server := NewServer(storage.NewMemory(), "localhost", 8080, discardLogger())

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

		server.readinessHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		status, components := decodeReadiness(t, w)
		assert.Equal(t, "ready", status)
		assert.Equal(t, "ok", components["storage"])
	})
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	router := gin.New()
	router.Use(requestid.New(requestid.WithGenerator(func() string { return "req-1" })))
	router.Use(CustomLoggerMiddleware(logger))
	router.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CustomLoggerMiddleware(discardLogger()))
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// newRoutedServer builds a server with the full router over an in-memory store.
func newRoutedServer(t *testing.T, cfg RouterConfig) *Server {
	t.Helper()

	kekID := uuid.New()
	kek, err := cryptoService.GenerateCipher(cryptoDomain.ChaCha20Poly1305)
	require.NoError(t, err)
	rc, err := cryptoService.NewRotatableCipher(kekID, map[uuid.UUID]cryptoService.Cipher{kekID: kek})
	require.NoError(t, err)

	raw := storage.NewMemory()
	enc, err := usecase.NewEncryptor(storage.NewCryptedStorage(raw, rc), nil, cryptoDomain.ChaCha20Poly1305, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server := NewServer(raw, "localhost", 8080, discardLogger())
	server.SetupRouter(ctx, encryptionHTTP.NewKeyHandler(enc, rc, discardLogger()), nil, cfg)
	return server
}

func TestServer_SetupRouter(t *testing.T) {
	t.Run("RoutesRegistered", func(t *testing.T) {
		handler := newRoutedServer(t, RouterConfig{}).GetHandler()

		tests := []struct {
			method string
			path   string
			body   string
			want   int
		}{
			{method: http.MethodGet, path: "/health", want: http.StatusOK},
			{method: http.MethodGet, path: "/ready", want: http.StatusOK},
			{method: http.MethodGet, path: "/v1/kms/status", want: http.StatusOK},
			{method: http.MethodGet, path: "/v1/keys/svc-a", want: http.StatusNotFound},
			{method: http.MethodPost, path: "/v1/keys/svc-a/encrypt", body: `{"plaintext":"aGVsbG8="}`, want: http.StatusOK},
			{method: http.MethodPost, path: "/v1/keys/svc-a/rotate", want: http.StatusOK},
			{method: http.MethodGet, path: "/metrics", want: http.StatusNotFound},
		}

		for _, tt := range tests {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code, "%s %s", tt.method, tt.path)
			assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
		}
	})

	t.Run("RateLimited", func(t *testing.T) {
		handler := newRoutedServer(t, RouterConfig{
			RateLimitEnabled: true,
			RateLimitRPS:     0.001,
			RateLimitBurst:   1,
		}).GetHandler()

		codes := make([]int, 0, 2)
		for range 2 {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/kms/status", nil))
			codes = append(codes, w.Code)
		}
		assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)

		// Probes are outside the rate-limited group.
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestServer_StartWithoutRouter(t *testing.T) {
	server := NewServer(nil, "localhost", 0, discardLogger())
	assert.Error(t, server.Start(context.Background()))
}

func TestServer_ShutdownGracefully(t *testing.T) {
	server := newRoutedServer(t, RouterConfig{})
	server.server.Addr = "127.0.0.1:0"

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(context.Background())
	}()

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(shutdownCtx))

	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), provider)
	require.NotNil(t, metricsServer)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestMetricsServer_WithoutProvider(t *testing.T) {
	metricsServer := NewMetricsServer("localhost", 8081, discardLogger(), nil)

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
