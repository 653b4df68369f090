package exercisemedia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shared "github.com/ripixel/fitglue-media/pkg"
	"github.com/ripixel/fitglue-media/pkg/bootstrap"
	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
	"github.com/ripixel/fitglue-media/pkg/execution"
	"github.com/ripixel/fitglue-media/pkg/framework"
	"github.com/ripixel/fitglue-media/pkg/reconciliation"
	"github.com/ripixel/fitglue-media/pkg/testing/mocks"
)

var testCatalog = []exercise.Entry{
	{ID: "1", Name: "Supino Reto com Halteres", MuscleGroup: "peito"},
	{ID: "2", Name: "Agachamento Livre", MuscleGroup: "pernas"},
	{ID: "3", Name: "Remada Curvada", MuscleGroup: "costas"},
}

type fixture struct {
	db        *mocks.MockDatabase
	media     *mocks.MockMediaStore
	pub       *mocks.MockPublisher
	updates   map[string]string
	published []event.Event
	records   []*execution.ExecutionRecord
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{updates: map[string]string{}}
	f.db = &mocks.MockDatabase{
		ListExercisesFunc: func(ctx context.Context) ([]exercise.Entry, error) {
			return testCatalog, nil
		},
		UpdateExerciseMediaURLFunc: func(ctx context.Context, id string, mediaURL string) error {
			f.updates[id] = mediaURL
			return nil
		},
		SetExecutionFunc: func(ctx context.Context, record *execution.ExecutionRecord) error {
			f.records = append(f.records, record)
			return nil
		},
	}
	f.media = &mocks.MockMediaStore{}
	f.pub = &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			assert.Equal(t, "topic-exercise-media-updated", topic)
			f.published = append(f.published, e)
			return "msg-1", nil
		},
	}

	svc = &bootstrap.Service{
		DB:      f.db,
		Media:   f.media,
		Pub:     f.pub,
		Secrets: &mocks.MockSecretStore{},
		Config: &bootstrap.Config{
			ProjectID:         "test-project",
			MediaPrefix:       "exercises",
			UploadStepTimeout: time.Minute,
			TopicMediaUpdated: "topic-exercise-media-updated",
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	t.Cleanup(func() { svc = nil })
	return f
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) apperrors.ErrorCode {
	t.Helper()
	var body framework.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func TestSearchExercises(t *testing.T) {
	setup(t)

	tests := []struct {
		name    string
		url     string
		wantIDs []string
	}{
		{"whole catalog sorted by name", "/?q=", []string{"2", "3", "1"}},
		{"group tab", "/?group=costas", []string{"3"}},
		{"query", "/?q=squat", []string{"2"}},
		{"no results", "/?q=zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			SearchExercises(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp SearchResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			ids := []string{}
			for _, e := range resp.Results {
				ids = append(ids, e.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestSearchExercises_CatalogFailure(t *testing.T) {
	f := setup(t)
	f.db.ListExercisesFunc = func(ctx context.Context) ([]exercise.Entry, error) {
		return nil, errors.New("unavailable")
	}

	rec := httptest.NewRecorder()
	SearchExercises(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, apperrors.CodeCatalogFetchError, errorCode(t, rec))
}

func TestSuggestExerciseMatches(t *testing.T) {
	setup(t)

	body := `{"file_names": ["supino_reto_halteres.gif", "video_aleatorio_xyz.gif"]}`
	rec := httptest.NewRecorder()
	SuggestExerciseMatches(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SuggestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Suggestions, 2)

	assert.Equal(t, "1", resp.Suggestions[0].EntryID)
	assert.Equal(t, "Supino Reto com Halteres", resp.Suggestions[0].EntryName)
	assert.InDelta(t, 75.0, resp.Suggestions[0].Score, 1e-9)

	assert.Equal(t, "video_aleatorio_xyz.gif", resp.Suggestions[1].FileName)
	assert.Empty(t, resp.Suggestions[1].EntryID)
	assert.Zero(t, resp.Suggestions[1].Score)
}

func TestSuggestExerciseMatches_Validation(t *testing.T) {
	setup(t)

	tests := []struct {
		name   string
		method string
		body   string
	}{
		{"wrong method", http.MethodGet, ""},
		{"bad json", http.MethodPost, "{"},
		{"no names", http.MethodPost, `{"file_names": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			SuggestExerciseMatches(rec, httptest.NewRequest(tt.method, "/", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, apperrors.CodeValidationError, errorCode(t, rec))
		})
	}
}

type part struct {
	name string
	data string
}

func multipartRequest(t *testing.T, files []part, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.CreateFormFile("files", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.data))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadExerciseMedia(t *testing.T) {
	f := setup(t)
	var written []string
	f.media.WriteObjectFunc = func(ctx context.Context, key string, r io.Reader, opts shared.WriteOptions) error {
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		written = append(written, string(b))
		return nil
	}

	req := multipartRequest(t, []part{
		{"supino_reto_halteres.gif", "GIF89a-supino"},
		{"notes.txt", "not a gif"},
		{"video_aleatorio_xyz.gif", "GIF89a-video"},
	}, map[string]string{"override.2": "3"})

	rec := httptest.NewRecorder()
	UploadExerciseMedia(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary reconciliation.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 2, summary.Succeeded)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, "1", summary.Results[0].EntryID)
	assert.Equal(t, "3", summary.Results[1].EntryID)

	assert.Equal(t, []string{"GIF89a-supino", "GIF89a-video"}, written)
	assert.Len(t, f.updates, 2)
	assert.True(t, strings.HasPrefix(f.updates["3"], "https://media.test/exercises/3-"))

	require.Len(t, f.published, 1)
	assert.Equal(t, "com.fitglue.exercise.media.updated", f.published[0].Type())
	var published reconciliation.Summary
	require.NoError(t, f.published[0].DataAs(&published))
	assert.Equal(t, summary.SessionID, published.SessionID)

	var batch *execution.ExecutionRecord
	for _, r := range f.records {
		if r.Service == "reconciliation-batch" {
			batch = r
		}
	}
	require.NotNil(t, batch, "a child execution is recorded for the batch")
	assert.NotEmpty(t, batch.ParentExecutionID)
}

func TestUploadExerciseMedia_PublishFailureIsNotFatal(t *testing.T) {
	f := setup(t)
	f.pub.PublishCloudEventFunc = func(ctx context.Context, topic string, e event.Event) (string, error) {
		return "", errors.New("topic not found")
	}

	rec := httptest.NewRecorder()
	UploadExerciseMedia(rec, multipartRequest(t, []part{{"remada_curvada.gif", "GIF89a"}}, nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadExerciseMedia_Validation(t *testing.T) {
	tests := []struct {
		name     string
		files    []part
		fields   map[string]string
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{
			name:     "no gifs",
			files:    []part{{"notes.txt", "x"}},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeNoMediaFiles,
		},
		{
			name:     "nothing matched",
			files:    []part{{"video_aleatorio_xyz.gif", "GIF89a"}},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeNoMatchSelected,
		},
		{
			name:     "override out of range",
			files:    []part{{"remada_curvada.gif", "GIF89a"}},
			fields:   map[string]string{"override.5": "1"},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeValidationError,
		},
		{
			name:     "override of rejected file",
			files:    []part{{"remada_curvada.gif", "GIF89a"}, {"notes.txt", "x"}},
			fields:   map[string]string{"override.1": "1"},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeValidationError,
		},
		{
			name:     "override to unknown entry",
			files:    []part{{"remada_curvada.gif", "GIF89a"}},
			fields:   map[string]string{"override.0": "999"},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeValidationError,
		},
		{
			name:     "no files",
			fields:   map[string]string{"override.0": "1"},
			wantCode: http.StatusBadRequest,
			wantErr:  apperrors.CodeValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			var writes int
			f.media.WriteObjectFunc = func(ctx context.Context, key string, r io.Reader, opts shared.WriteOptions) error {
				writes++
				return nil
			}

			rec := httptest.NewRecorder()
			UploadExerciseMedia(rec, multipartRequest(t, tt.files, tt.fields))
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
			assert.Zero(t, writes)
			assert.Empty(t, f.published)
		})
	}
}

func TestUploadExerciseMedia_PartialFailure(t *testing.T) {
	f := setup(t)
	f.media.WriteObjectFunc = func(ctx context.Context, key string, r io.Reader, opts shared.WriteOptions) error {
		if strings.HasPrefix(key, "exercises/3-") {
			return errors.New("bucket unavailable")
		}
		return nil
	}
	var batchStatus execution.Status
	f.db.UpdateExecutionFunc = func(ctx context.Context, id string, data map[string]interface{}) error {
		if strings.HasPrefix(id, "reconciliation-batch-") {
			s, _ := data["status"].(int32)
			batchStatus = execution.Status(s)
		}
		return nil
	}

	rec := httptest.NewRecorder()
	UploadExerciseMedia(rec, multipartRequest(t, []part{
		{"remada_curvada.gif", "GIF89a"},
		{"agachamento_livre.gif", "GIF89a"},
	}, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var summary reconciliation.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, reconciliation.StatusError, summary.Results[0].Status)
	assert.Contains(t, summary.Results[0].ErrorMessage, "bucket unavailable")
	assert.Equal(t, execution.StatusPartial, batchStatus)
}

func TestSearchExercises_IngressTokenLookedUpOnce(t *testing.T) {
	setup(t)
	var lookups int
	svc.Secrets = &mocks.MockSecretStore{
		GetSecretFunc: func(ctx context.Context, projectID, name string) (string, error) {
			lookups++
			return "s3cret", nil
		},
	}
	svc.Config.IngressTokenSecret = "media-ingress-token"

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/?q=remada", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		SearchExercises(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	SearchExercises(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 1, lookups, "the token is cached across requests")
}

func TestHandlersFor_RebuildsForNewService(t *testing.T) {
	setup(t)
	first := handlersFor(svc)
	assert.Same(t, first, handlersFor(svc))

	setup(t)
	assert.NotSame(t, first, handlersFor(svc))
}
