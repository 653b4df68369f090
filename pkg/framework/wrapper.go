package framework

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/ripixel/fitglue-media/pkg/bootstrap"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
	"github.com/ripixel/fitglue-media/pkg/execution"
)

// FrameworkContext is what a wrapped handler receives besides the request.
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HTTPHandlerFunc handles one request. The returned value is written as the
// JSON response body and recorded as the execution outputs.
type HTTPHandlerFunc func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
}

// WrapHTTP wraps a handler with execution logging, the ingress token check
// and JSON error mapping.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HTTPHandlerFunc) http.HandlerFunc {
	tokens := &tokenCache{}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := svc.Logger
		if logger == nil {
			logger = slog.Default().With("service", serviceName)
		}

		execID, err := execution.LogPending(ctx, svc.DB, serviceName, execution.ExecutionOptions{
			TriggerType: "http",
		})
		if err != nil {
			// Don't fail the request just because logging failed
			logger.Warn("Failed to log execution pending", "error", err)
		}
		logger = logger.With("execution_id", execID)

		inputs := map[string]string{
			"method": r.Method,
			"path":   r.URL.Path,
			"query":  r.URL.RawQuery,
		}
		if err := execution.LogStart(ctx, svc.DB, execID, inputs); err != nil {
			logger.Warn("Failed to log execution start", "error", err)
		}
		logger.Info("Function started", "method", r.Method, "path", r.URL.Path)

		var outputs interface{}
		handlerErr := authorize(ctx, r, svc, tokens)
		if handlerErr == nil {
			outputs, handlerErr = handler(ctx, r, &FrameworkContext{
				Service:     svc,
				Logger:      logger,
				ExecutionID: execID,
			})
		}

		if handlerErr != nil {
			status := StatusForError(handlerErr)
			if status >= http.StatusInternalServerError {
				logger.Error("Function failed", "error", handlerErr, "status", status)
			} else {
				logger.Warn("Request rejected", "error", handlerErr, "status", status)
			}
			if logErr := execution.LogFailure(ctx, svc.DB, execID, handlerErr, outputs); logErr != nil {
				logger.Warn("Failed to log execution failure", "error", logErr)
			}
			WriteError(w, handlerErr)
			return
		}

		logger.Info("Function completed successfully")
		if logErr := execution.LogSuccess(ctx, svc.DB, execID, outputs); logErr != nil {
			logger.Warn("Failed to log execution success", "error", logErr)
		}
		WriteJSON(w, http.StatusOK, outputs)
	}
}

// authorize enforces the bearer token when an ingress secret is configured.
func authorize(ctx context.Context, r *http.Request, svc *bootstrap.Service, tokens *tokenCache) error {
	if svc.Config == nil || svc.Config.IngressTokenSecret == "" {
		return nil
	}

	expected, err := tokens.get(ctx, svc)
	if err != nil {
		return apperrors.ErrSecret.WithCause(err)
	}

	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		return apperrors.ErrUnauthorized
	}
	return nil
}

// tokenCache holds the ingress token after the first successful lookup.
type tokenCache struct {
	mu    sync.Mutex
	token string
}

func (c *tokenCache) get(ctx context.Context, svc *bootstrap.Service) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}
	token, err := svc.Secrets.GetSecret(ctx, svc.Config.ProjectID, svc.Config.IngressTokenSecret)
	if err != nil {
		return "", err
	}
	c.token = strings.TrimSpace(token)
	return c.token, nil
}

// StatusForError maps an error code to an HTTP status.
func StatusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.CodeValidationError, apperrors.CodeNoMediaFiles, apperrors.CodeNoMatchSelected:
		return http.StatusBadRequest
	case apperrors.CodeCandidateNotFound, apperrors.CodeEntryNotFound:
		return http.StatusNotFound
	case apperrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.CodeCandidateLocked, apperrors.CodeBatchInProgress:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorBody. Only AppError messages reach the
// caller; anything else is reported as an internal error.
func WriteError(w http.ResponseWriter, err error) {
	detail := ErrorDetail{Code: apperrors.CodeInternalError, Message: apperrors.ErrInternal.Message}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		detail = ErrorDetail{Code: appErr.Code, Message: appErr.Message}
	}
	WriteJSON(w, StatusForError(err), ErrorBody{Error: detail})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
