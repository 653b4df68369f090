package exercisemedia

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
	"github.com/ripixel/fitglue-media/pkg/execution"
	matcher "github.com/ripixel/fitglue-media/pkg/exercise_matcher"
	"github.com/ripixel/fitglue-media/pkg/framework"
	infrapubsub "github.com/ripixel/fitglue-media/pkg/infrastructure/pubsub"
	"github.com/ripixel/fitglue-media/pkg/reconciliation"
)

const (
	maxUploadMemory = 32 << 20
	overridePrefix  = "override."
)

type SearchResponse struct {
	Results []exercise.Entry `json:"results"`
}

type SuggestRequest struct {
	FileNames []string `json:"file_names"`
}

type Suggestion struct {
	FileName  string  `json:"file_name"`
	EntryID   string  `json:"entry_id"`
	EntryName string  `json:"entry_name"`
	Score     float64 `json:"score"`
}

type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func requireMethod(r *http.Request, method string) error {
	if r.Method != method {
		return apperrors.ErrValidation.WithMessage("method " + r.Method + " not allowed, use " + method)
	}
	return nil
}

func loadCatalog(ctx context.Context, fwCtx *framework.FrameworkContext) ([]exercise.Entry, error) {
	catalog, err := fwCtx.Service.DB.ListExercises(ctx)
	if err != nil {
		return nil, apperrors.ErrCatalogFetch.WithCause(err)
	}
	return catalog, nil
}

func searchHandler(ctx context.Context, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := requireMethod(r, http.MethodGet); err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(ctx, fwCtx)
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	group := q.Get("group")
	if group == "" {
		group = exercise.GroupAll
	}
	results := matcher.Search(q.Get("q"), group, catalog)
	if results == nil {
		results = []exercise.Entry{}
	}
	fwCtx.Logger.Info("Search served", "query", q.Get("q"), "group", group, "results", len(results))
	return SearchResponse{Results: results}, nil
}

func suggestHandler(ctx context.Context, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return nil, err
	}
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, apperrors.ErrValidation.WithMessage("invalid JSON body").WithCause(err)
	}
	if len(req.FileNames) == 0 {
		return nil, apperrors.ErrValidation.WithMessage("file_names is required")
	}

	catalog, err := loadCatalog(ctx, fwCtx)
	if err != nil {
		return nil, err
	}

	resp := SuggestResponse{Suggestions: make([]Suggestion, 0, len(req.FileNames))}
	matched := 0
	for _, name := range req.FileNames {
		s := Suggestion{FileName: name}
		if m, ok := matcher.BestMatch(name, catalog); ok {
			s.EntryID = m.Entry.ID
			s.EntryName = m.Entry.Name
			s.Score = m.Score
			matched++
		}
		resp.Suggestions = append(resp.Suggestions, s)
	}
	fwCtx.Logger.Info("Suggestions served", "files", len(req.FileNames), "matched", matched)
	return resp, nil
}

func uploadHandler(ctx context.Context, r *http.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if err := requireMethod(r, http.MethodPost); err != nil {
		return nil, err
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, apperrors.ErrValidation.WithMessage("invalid multipart body").WithCause(err)
	}
	files, err := readFiles(r)
	if err != nil {
		return nil, err
	}
	overrides, err := parseOverrides(r, len(files))
	if err != nil {
		return nil, err
	}

	svc := fwCtx.Service
	cfg := svc.Config
	logger := fwCtx.Logger

	session := reconciliation.NewSession(ctx, reconciliation.Deps{
		Catalog: svc.DB,
		Media:   svc.Media,
	},
		reconciliation.WithLogger(logger),
		reconciliation.WithStepTimeout(cfg.UploadStepTimeout),
		reconciliation.WithKeyPrefix(cfg.MediaPrefix),
		reconciliation.WithCompletion(func(summary reconciliation.Summary) {
			publishCompletion(ctx, fwCtx, summary)
		}),
	)
	// Without a catalog nothing can match, so the batch would only fail
	// validation with a misleading message.
	if err := session.CatalogError(); err != nil {
		return nil, err
	}

	byIndex := make(map[int]string, len(files))
	rejected := 0
	for i, f := range files {
		added, err := session.Add([]reconciliation.File{f})
		if err != nil {
			rejected++
			continue
		}
		byIndex[i] = added[0].ID
	}
	if len(byIndex) == 0 {
		return nil, apperrors.ErrNoMediaFiles.WithMetadata("rejected", strconv.Itoa(rejected))
	}

	for index, entryID := range overrides {
		candidateID, ok := byIndex[index]
		if !ok {
			return nil, apperrors.ErrValidation.WithMessage("override." + strconv.Itoa(index) + " refers to a file that is not a GIF")
		}
		if err := session.Select(candidateID, entryID); err != nil {
			if errors.Is(err, apperrors.ErrEntryNotFound) {
				return nil, apperrors.ErrValidation.
					WithMessage("override." + strconv.Itoa(index) + " names unknown exercise " + entryID).
					WithCause(err)
			}
			return nil, err
		}
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	batchID, err := execution.LogChildExecutionStart(ctx, svc.DB, "reconciliation-batch", fwCtx.ExecutionID, execution.ExecutionOptions{
		TriggerType: "http",
		Inputs:      names,
	})
	if err != nil {
		logger.Warn("Failed to log batch execution start", "error", err)
	}

	summary, err := session.Upload(ctx)
	if err != nil {
		if logErr := execution.LogFailure(ctx, svc.DB, batchID, err, summary); logErr != nil {
			logger.Warn("Failed to log batch failure", "error", logErr)
		}
		return nil, err
	}

	status := execution.StatusSuccess
	if summary.Failed > 0 {
		status = execution.StatusPartial
	}
	if logErr := execution.LogExecutionStatus(ctx, svc.DB, batchID, status, summary); logErr != nil {
		logger.Warn("Failed to log batch status", "error", logErr)
	}
	return summary, nil
}

// readFiles loads every "files" part into memory.
func readFiles(r *http.Request) ([]reconciliation.File, error) {
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, apperrors.ErrValidation.WithMessage("no files provided")
	}

	files := make([]reconciliation.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, apperrors.ErrValidation.WithMessage("unreadable file " + fh.Filename).WithCause(err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, apperrors.ErrValidation.WithMessage("unreadable file " + fh.Filename).WithCause(err)
		}
		files = append(files, reconciliation.File{
			Name:    fh.Filename,
			Type:    fh.Header.Get("Content-Type"),
			Size:    fh.Size,
			Payload: reconciliation.BytesPayload(data),
		})
	}
	return files, nil
}

// parseOverrides reads "override.<index>=<entryID>" fields, where index is
// the position of the file among the "files" parts.
func parseOverrides(r *http.Request, fileCount int) (map[int]string, error) {
	overrides := map[int]string{}
	for key, values := range r.MultipartForm.Value {
		if !strings.HasPrefix(key, overridePrefix) {
			continue
		}
		index, err := strconv.Atoi(strings.TrimPrefix(key, overridePrefix))
		if err != nil || index < 0 || index >= fileCount {
			return nil, apperrors.ErrValidation.WithMessage("invalid override field " + key)
		}
		if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			continue
		}
		overrides[index] = strings.TrimSpace(values[0])
	}
	return overrides, nil
}

// publishCompletion announces a finished batch. Failures are logged only.
func publishCompletion(ctx context.Context, fwCtx *framework.FrameworkContext, summary reconciliation.Summary) {
	svc := fwCtx.Service
	e, err := infrapubsub.NewCloudEvent(infrapubsub.EventSourceExerciseMedia, infrapubsub.EventTypeMediaUpdated, summary)
	if err != nil {
		fwCtx.Logger.Warn("Failed to build completion event", "error", err)
		return
	}
	msgID, err := svc.Pub.PublishCloudEvent(ctx, svc.Config.TopicMediaUpdated, e)
	if err != nil {
		fwCtx.Logger.Warn("Failed to publish completion event",
			"error", apperrors.ErrPubSub.WithCause(err),
			"topic", svc.Config.TopicMediaUpdated)
		return
	}
	fwCtx.Logger.Info("Completion event published", "message_id", msgID, "session_id", summary.SessionID)
}
