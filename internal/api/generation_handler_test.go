package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/generation"
	"github.com/phrazzld/gamegen-api/internal/platform/memory"
	"github.com/phrazzld/gamegen-api/internal/postprocess"
	"github.com/phrazzld/gamegen-api/internal/task"
	"github.com/phrazzld/gamegen-api/internal/task/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router http.Handler
	store  *memory.TaskStore
	runner *task.Runner
}

func newTestEnv(t *testing.T, gen generation.Generator, opts ...HandlerOption) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := memory.NewTaskStore()

	cfg := task.DefaultRunnerConfig()
	cfg.QueueSize = 256
	runner := task.NewRunner(s, gen, nil, postprocess.NewMarkerCleaner(postprocess.DefaultMarker), cfg, logger)
	require.NoError(t, runner.Start())
	t.Cleanup(runner.Stop)

	h := NewGenerationHandler(runner, s, opts...)
	r := chi.NewRouter()
	r.Get("/", Index)
	r.Get("/health", Health)
	r.Post("/generate-game", h.SubmitGeneration)
	r.Get("/get-result/{task_id}", h.GetResult)

	return &testEnv{router: r, store: s, runner: runner}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) submit(t *testing.T, prompt string) string {
	t.Helper()
	body, err := json.Marshal(GenerateGameRequest{Prompt: prompt})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/generate-game", string(body))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp GenerateGameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	_, err = uuid.Parse(resp.TaskID)
	require.NoError(t, err)
	return resp.TaskID
}

// poll returns the first non-202 response, failing after a timeout.
func (e *testEnv) poll(t *testing.T, id string) *httptest.ResponseRecorder {
	t.Helper()
	var rec *httptest.ResponseRecorder
	require.Eventually(t, func() bool {
		rec = e.do(t, http.MethodGet, "/get-result/"+id, "")
		return rec.Code != http.StatusAccepted
	}, 2*time.Second, 5*time.Millisecond)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) ResultResponse {
	t.Helper()
	var resp ResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSubmitGeneration_ReturnsFreshIDs(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, mocks.NewStaticGenerator("local x = 1"))

	first := env.submit(t, "make a platformer")
	second := env.submit(t, "make a platformer")
	assert.NotEqual(t, first, second)
}

func TestSubmitGeneration_BadRequests(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, mocks.NewStaticGenerator("local x = 1"))

	bodies := []string{
		"",
		"{}",
		`{"prompt":""}`,
		`{"prompt":"   "}`,
		`{"prompt":null}`,
		`{"prompt":42}`,
		`not json`,
	}

	for _, body := range bodies {
		rec := env.do(t, http.MethodPost, "/generate-game", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, MsgNoPrompt, resp["error"])
	}

	assert.Zero(t, env.store.Len(), "rejected submissions create no task")
}

func TestGetResult_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, mocks.NewStaticGenerator("local x = 1"))

	for _, id := range []string{uuid.NewString(), "not-a-uuid", "12345"} {
		rec := env.do(t, http.MethodGet, "/get-result/"+id, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"Task not found"}`, rec.Body.String())
	}
}

func TestGetResult_Processing(t *testing.T) {
	t.Parallel()

	gen := mocks.NewBlockingGenerator("local done = true", 1)
	env := newTestEnv(t, gen)
	defer gen.Release()

	id := env.submit(t, "slow game")
	rec := env.do(t, http.MethodGet, "/get-result/"+id, "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"processing"}`, rec.Body.String())
}

func TestGetResult_CompletedIsIdempotent(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, mocks.NewStaticGenerator(
		"Create a jump mechanic\nlocal jumpPower = 50\nhumanoid.JumpPower = jumpPower\n```"))

	id := env.submit(t, "Create a jump mechanic")
	first := env.poll(t, id)
	require.Equal(t, http.StatusOK, first.Code)

	resp := decodeResult(t, first)
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.GameCode)
	assert.Equal(t, "local jumpPower = 50\nhumanoid.JumpPower = jumpPower", *resp.GameCode)

	for i := 0; i < 5; i++ {
		again := env.do(t, http.MethodGet, "/get-result/"+id, "")
		assert.Equal(t, http.StatusOK, again.Code)
		assert.Equal(t, first.Body.String(), again.Body.String())
	}
}

func TestGetResult_FailedAndError(t *testing.T) {
	t.Parallel()

	t.Run("no_output_reports_failed", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewStaticGenerator(""))
		id := env.submit(t, "anything")

		rec := env.poll(t, id)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"failed"}`, rec.Body.String())
	})

	t.Run("fault_reports_error_with_detail", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewFailingGenerator(errors.New("backend exploded")))
		id := env.submit(t, "anything")

		rec := env.poll(t, id)
		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResult(t, rec)
		assert.Equal(t, "error", resp.Status)
		assert.Equal(t, "backend exploded", resp.Error)
		assert.Nil(t, resp.GameCode)
	})
}

func TestGetResult_LegacyPolling(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, mocks.NewStaticGenerator(""), WithLegacyPolling(true))
	id := env.submit(t, "anything")

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := env.store.Get(context.Background(), parsed)
		return err == nil && got.Status == domain.TaskStatusFailed
	}, 2*time.Second, 5*time.Millisecond)

	rec := env.do(t, http.MethodGet, "/get-result/"+id, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"failed"}`, rec.Body.String())
}

func TestSubmitGeneration_Concurrent(t *testing.T) {
	t.Parallel()

	gen := &mocks.MockGenerator{
		GenerateFn: func(_ context.Context, prompt string, _ generation.Options) (string, error) {
			return "local p = '" + prompt + "'", nil
		},
	}
	env := newTestEnv(t, gen)

	const n = 40
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"prompt":"game-%d"}`, i)
			rec := env.do(t, http.MethodPost, "/generate-game", body)
			if !assert.Equal(t, http.StatusAccepted, rec.Code) {
				return
			}
			var resp GenerateGameResponse
			if assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)) {
				ids[i] = resp.TaskID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i, id := range ids {
		require.NotEmpty(t, id)
		seen[id] = true

		resp := decodeResult(t, env.poll(t, id))
		require.NotNil(t, resp.GameCode)
		assert.Equal(t, fmt.Sprintf("local p = 'game-%d'", i), *resp.GameCode)
	}
	assert.Len(t, seen, n)
}

func TestSubmitGeneration_SubmitterFault(t *testing.T) {
	t.Parallel()

	h := NewGenerationHandler(failingSubmitter{err: fmt.Errorf("enqueue: %w", task.ErrQueueFull)}, memory.NewTaskStore())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate-game", strings.NewReader(`{"prompt":"x"}`))
	h.SubmitGeneration(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Too many pending tasks, try again later"}`, rec.Body.String())
}

type failingSubmitter struct{ err error }

func (f failingSubmitter) Submit(context.Context, string) (*domain.Task, error) {
	return nil, f.err
}

func TestIndexAndHealth(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, mocks.NewStaticGenerator("local x"))

	rec := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gamegen-api is running", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
