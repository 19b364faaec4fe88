package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/gamegen-api/internal/api/shared"
	"github.com/phrazzld/gamegen-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrace_SetsContextAndHeader(t *testing.T) {
	var gotTrace string
	var gotLogger *slog.Logger

	h := Trace(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = shared.GetTraceID(r.Context())
		gotLogger = logger.FromContextOr(r.Context(), nil)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Len(t, gotTrace, 32)
	assert.Equal(t, gotTrace, rec.Header().Get(TraceIDHeader))
	assert.NotNil(t, gotLogger)
}

func TestTrace_ReusesRequestID(t *testing.T) {
	var gotTrace, gotReqID string

	h := chimiddleware.RequestID(Trace(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = shared.GetTraceID(r.Context())
		gotReqID = chimiddleware.GetReqID(r.Context())
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, gotReqID)
	assert.Equal(t, gotReqID, gotTrace)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	codes []int
}

func (o *recordingObserver) ObserveHTTP(route string, code int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, route)
	o.codes = append(o.codes, code)
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}

	r := chi.NewRouter()
	r.Use(Metrics(obs))
	r.Get("/get-result/{task_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	r.Get("/plain", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/get-result/123", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/plain", nil))

	assert.Equal(t, []string{"/get-result/{task_id}", "/plain"}, obs.calls)
	assert.Equal(t, []int{http.StatusAccepted, http.StatusOK}, obs.codes)
}
