package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripixel/fitglue-media/pkg/bootstrap"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
	"github.com/ripixel/fitglue-media/pkg/execution"
	"github.com/ripixel/fitglue-media/pkg/testing/mocks"
)

func testService(db *mocks.MockDatabase, secrets *mocks.MockSecretStore, cfg *bootstrap.Config) *bootstrap.Service {
	if cfg == nil {
		cfg = &bootstrap.Config{ProjectID: "test-project"}
	}
	return &bootstrap.Service{
		DB:      db,
		Secrets: secrets,
		Config:  cfg,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWrapHTTP_Success(t *testing.T) {
	var statuses []execution.Status
	db := &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, record *execution.ExecutionRecord) error {
			statuses = append(statuses, record.Status)
			assert.Equal(t, "http", record.TriggerType)
			return nil
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if s, ok := data["status"].(int32); ok {
				statuses = append(statuses, execution.Status(s))
			}
			if s, _ := data["status"].(int32); execution.Status(s) == execution.StatusSuccess {
				assert.Equal(t, `{"results":3}`, data["outputs_json"])
			}
			return nil
		},
	}
	svc := testService(db, nil, nil)

	handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		assert.Same(t, svc, fwCtx.Service)
		assert.NotEmpty(t, fwCtx.ExecutionID)
		assert.NotNil(t, fwCtx.Logger)
		return map[string]int{"results": 3}, nil
	}

	rec := httptest.NewRecorder()
	WrapHTTP("exercise-media", svc, handler)(rec, httptest.NewRequest(http.MethodGet, "/SearchExercises?q=supino", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"results":3}`, rec.Body.String())
	assert.Equal(t, []execution.Status{
		execution.StatusPending,
		execution.StatusStarted,
		execution.StatusSuccess,
	}, statuses)
}

func TestWrapHTTP_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperrors.ErrorCode
		wantMsg    string
	}{
		{"no media", apperrors.ErrNoMediaFiles, http.StatusBadRequest, apperrors.CodeNoMediaFiles, "no recognized media files in selection"},
		{"nothing matched", apperrors.ErrNoMatchSelected, http.StatusBadRequest, apperrors.CodeNoMatchSelected, "select exercises for all GIFs"},
		{"unknown entry", apperrors.ErrEntryNotFound.WithMetadata("entry_id", "9"), http.StatusNotFound, apperrors.CodeEntryNotFound, "exercise not found in catalog"},
		{"batch running", fmt.Errorf("upload: %w", apperrors.ErrBatchInProgress), http.StatusConflict, apperrors.CodeBatchInProgress, "batch upload already running"},
		{"storage", apperrors.ErrStorage.WithCause(errors.New("secret detail")), http.StatusInternalServerError, apperrors.CodeStorageError, "storage error"},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, apperrors.CodeInternalError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var failureLogged bool
			db := &mocks.MockDatabase{
				UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
					if s, _ := data["status"].(int32); execution.Status(s) == execution.StatusFailed {
						failureLogged = true
					}
					return nil
				},
			}
			handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
				return nil, tt.err
			}

			rec := httptest.NewRecorder()
			WrapHTTP("exercise-media", testService(db, nil, nil), handler)(rec, httptest.NewRequest(http.MethodPost, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantMsg, body.Error.Message)
			assert.NotContains(t, rec.Body.String(), "secret detail")
			assert.True(t, failureLogged)
		})
	}
}

func TestWrapHTTP_ExecutionLoggingFailureDoesNotFailRequest(t *testing.T) {
	db := &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, record *execution.ExecutionRecord) error {
			return errors.New("firestore down")
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			return errors.New("firestore down")
		},
	}
	handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		return map[string]string{"ok": "yes"}, nil
	}

	rec := httptest.NewRecorder()
	WrapHTTP("exercise-media", testService(db, nil, nil), handler)(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWrapHTTP_IngressToken(t *testing.T) {
	var lookups int
	secrets := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			lookups++
			assert.Equal(t, "test-project", projectID)
			assert.Equal(t, "media-ingress-token", name)
			return "s3cret\n", nil
		},
	}
	cfg := &bootstrap.Config{ProjectID: "test-project", IngressTokenSecret: "media-ingress-token"}

	var calls int
	handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		calls++
		return map[string]bool{"ok": true}, nil
	}
	wrapped := WrapHTTP("exercise-media", testService(&mocks.MockDatabase{}, secrets, cfg), handler)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			wrapped(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, apperrors.CodeUnauthorized, decodeError(t, rec).Error.Code)
			}
		})
	}

	assert.Equal(t, 1, calls, "rejected requests never reach the handler")
	assert.Equal(t, 1, lookups, "the token is looked up once")
}

func TestWrapHTTP_IngressSecretUnavailable(t *testing.T) {
	secrets := &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			return "", errors.New("permission denied")
		},
	}
	cfg := &bootstrap.Config{ProjectID: "test-project", IngressTokenSecret: "media-ingress-token"}
	handler := func(ctx context.Context, r *http.Request, fwCtx *FrameworkContext) (interface{}, error) {
		t.Error("handler should not run")
		return nil, nil
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	WrapHTTP("exercise-media", testService(&mocks.MockDatabase{}, secrets, cfg), handler)(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeSecretError, decodeError(t, rec).Error.Code)
}

func TestStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusForError(apperrors.ErrCandidateNotFound))
	assert.Equal(t, http.StatusConflict, StatusForError(apperrors.ErrCandidateLocked))
	assert.Equal(t, http.StatusUnauthorized, StatusForError(apperrors.ErrUnauthorized))
	assert.Equal(t, http.StatusBadRequest, StatusForError(apperrors.ErrValidation))
	assert.Equal(t, http.StatusInternalServerError, StatusForError(apperrors.ErrTimeout))
}
