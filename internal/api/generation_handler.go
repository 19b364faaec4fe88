package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/gamegen-api/internal/api/shared"
	"github.com/phrazzld/gamegen-api/internal/domain"
	"github.com/phrazzld/gamegen-api/internal/platform/logger"
)

// TaskSubmitter starts background generation for a prompt.
type TaskSubmitter interface {
	Submit(ctx context.Context, prompt string) (*domain.Task, error)
}

// TaskReader looks up a task snapshot.
type TaskReader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// GenerationHandler serves the submission and polling endpoints.
type GenerationHandler struct {
	submitter TaskSubmitter
	reader    TaskReader

	// legacyPolling reports every unresolved-or-unsuccessful task as 202
	// with only its status.
	legacyPolling bool
}

// HandlerOption customizes a GenerationHandler.
type HandlerOption func(*GenerationHandler)

// WithLegacyPolling makes GetResult answer 202 {"status": ...} for any task
// without a result.
func WithLegacyPolling(enabled bool) HandlerOption {
	return func(h *GenerationHandler) {
		h.legacyPolling = enabled
	}
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(submitter TaskSubmitter, reader TaskReader, opts ...HandlerOption) *GenerationHandler {
	h := &GenerationHandler{
		submitter: submitter,
		reader:    reader,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SubmitGeneration handles POST /generate-game
func (h *GenerationHandler) SubmitGeneration(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req GenerateGameRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgNoPrompt, err)
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, MsgNoPrompt, err)
		return
	}

	t, err := h.submitter.Submit(r.Context(), req.Prompt)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Info("generation task accepted", "task_id", t.ID, "prompt_length", len(req.Prompt))
	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerateGameResponse{TaskID: t.ID.String()})
}

// GetResult handles GET /get-result/{task_id}
func (h *GenerationHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "task_id")
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	t, err := h.reader.Get(r.Context(), id)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	status, body := h.resultResponse(t)
	shared.RespondWithJSON(w, r, status, body)
}

// resultResponse maps a task snapshot to the polling response. The result
// is reported whenever one is present.
func (h *GenerationHandler) resultResponse(t *domain.Task) (int, ResultResponse) {
	if t.Result != nil {
		result := *t.Result
		return http.StatusOK, ResultResponse{
			Status:   string(domain.TaskStatusCompleted),
			GameCode: &result,
		}
	}

	if h.legacyPolling {
		return http.StatusAccepted, ResultResponse{Status: string(t.Status)}
	}

	switch t.Status {
	case domain.TaskStatusFailed:
		return http.StatusOK, ResultResponse{Status: string(t.Status)}
	case domain.TaskStatusError:
		return http.StatusOK, ResultResponse{Status: string(t.Status), Error: t.ErrorDetail}
	default:
		return http.StatusAccepted, ResultResponse{Status: string(domain.TaskStatusProcessing)}
	}
}

// Index handles GET /
func Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("gamegen-api is running"))
}

// Health handles GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
