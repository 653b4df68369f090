package reconciliation

import (
	"context"
	"errors"
	"fmt"

	shared "github.com/ripixel/fitglue-media/pkg"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
)

// Progress is a point-in-time view of the batch.
type Progress struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Uploading int `json:"uploading"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	// BatchSize is the number of candidates taken by the running or last
	// Upload; BatchCompleted counts those that succeeded.
	BatchSize      int     `json:"batch_size"`
	BatchCompleted int     `json:"batch_completed"`
	Percent        float64 `json:"percent"`
}

// Result is the outcome of one candidate in a batch.
type Result struct {
	CandidateID  string `json:"candidate_id"`
	FileName     string `json:"file_name"`
	EntryID      string `json:"entry_id"`
	Status       Status `json:"status"`
	MediaURL     string `json:"media_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Summary describes a finished batch.
type Summary struct {
	SessionID string   `json:"session_id"`
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// Progress returns counters over the whole batch plus the upload percentage.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Progress{
		Total:          len(s.candidates),
		BatchSize:      s.batchSize,
		BatchCompleted: s.batchCompleted,
	}
	for _, c := range s.candidates {
		switch c.Status {
		case StatusPending:
			p.Pending++
		case StatusUploading:
			p.Uploading++
		case StatusSuccess:
			p.Succeeded++
		case StatusError:
			p.Failed++
		}
	}
	if s.batchSize > 0 {
		p.Percent = float64(s.batchCompleted) / float64(s.batchSize) * 100
	}
	return p
}

// Upload sends every pending candidate that has a match, one at a time in
// batch order: the payload goes to object storage, then the matched catalog
// entry is pointed at its public URL.
//
// A failure on one candidate marks it as error and the loop moves on. When
// no candidate qualifies, ErrNoMatchSelected is returned and nothing
// changes. If ctx is cancelled mid-batch, the candidates not yet started are
// marked as error and ctx.Err() is returned along with the summary.
func (s *Session) Upload(ctx context.Context) (Summary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Summary{SessionID: s.id}, apperrors.ErrBatchInProgress
	}
	var queue []*Candidate
	for _, c := range s.candidates {
		if c.Status == StatusPending && c.MatchedEntryID != "" {
			queue = append(queue, c)
		}
	}
	if len(queue) == 0 {
		s.mu.Unlock()
		return Summary{SessionID: s.id}, apperrors.ErrNoMatchSelected
	}
	s.running = true
	s.batchSize = len(queue)
	s.batchCompleted = 0
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("Batch upload started", "candidates", len(queue))

	summary := Summary{SessionID: s.id, Attempted: len(queue)}
	for _, c := range queue {
		if err := ctx.Err(); err != nil {
			s.finish(c, "", fmt.Errorf("batch cancelled: %w", err))
			summary.Failed++
			continue
		}

		s.transition(c, func(c *Candidate) { c.Status = StatusUploading })

		mediaURL, err := s.uploadOne(ctx, c)
		s.finish(c, mediaURL, err)
		if err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}

	s.mu.Lock()
	for _, c := range queue {
		summary.Results = append(summary.Results, Result{
			CandidateID:  c.ID,
			FileName:     c.FileName,
			EntryID:      c.MatchedEntryID,
			Status:       c.Status,
			MediaURL:     c.MediaURL,
			ErrorMessage: c.ErrorMessage,
		})
	}
	s.mu.Unlock()

	s.logger.Info("Batch upload finished",
		"attempted", summary.Attempted,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed)

	if s.completion != nil {
		s.completion(summary)
	}
	return summary, ctx.Err()
}

// uploadOne runs the storage write and the catalog update for a candidate
// and returns the public URL on success.
func (s *Session) uploadOne(ctx context.Context, c *Candidate) (string, error) {
	// The candidate cannot change while the batch runs, so these reads need
	// no lock.
	entryID := c.MatchedEntryID
	key := ObjectKey(s.keyPrefix, entryID, c.FileName, s.now())

	if c.payload == nil {
		return "", apperrors.ErrStorage.WithMessage("candidate has no payload")
	}
	body, err := c.payload.Open()
	if err != nil {
		return "", apperrors.ErrStorage.WithMessage("failed to open media").WithCause(err)
	}
	defer body.Close()

	writeCtx, cancel := s.stepContext(ctx)
	err = s.deps.Media.WriteObject(writeCtx, key, body, shared.WriteOptions{
		ContentType: c.ContentType,
		Overwrite:   true,
	})
	cancel()
	if err != nil {
		return "", s.classify(ctx, err, apperrors.ErrStorage).WithMetadata("object", key)
	}

	mediaURL := s.deps.Media.PublicURL(key)

	updateCtx, cancel := s.stepContext(ctx)
	err = s.deps.Catalog.UpdateExerciseMediaURL(updateCtx, entryID, mediaURL)
	cancel()
	if err != nil {
		return "", s.classify(ctx, err, apperrors.ErrCatalogUpdate).WithMetadata("entry_id", entryID)
	}
	return mediaURL, nil
}

func (s *Session) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.stepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.stepTimeout)
}

// classify reports a step deadline as a timeout, unless the whole batch
// context is what expired.
func (s *Session) classify(ctx context.Context, err error, fallback *apperrors.AppError) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return apperrors.ErrTimeout.
			WithMessage("step exceeded " + s.stepTimeout.String()).
			WithCause(err)
	}
	return fallback.WithCause(err)
}

func (s *Session) finish(c *Candidate, mediaURL string, err error) {
	if err != nil {
		s.logger.Warn("Candidate upload failed",
			"candidate_id", c.ID,
			"file_name", c.FileName,
			"entry_id", c.MatchedEntryID,
			"error", err)
		s.transition(c, func(c *Candidate) {
			c.Status = StatusError
			c.ErrorMessage = err.Error()
		})
		return
	}

	var completed int
	s.transition(c, func(c *Candidate) {
		c.Status = StatusSuccess
		c.MediaURL = mediaURL
		c.ErrorMessage = ""
		s.batchCompleted++
		completed = s.batchCompleted
	})
	s.logger.Info("Candidate uploaded",
		"candidate_id", c.ID,
		"entry_id", c.MatchedEntryID,
		"media_url", mediaURL,
		"completed", completed)
}

// transition applies a change under the lock, then notifies the observer
// with a copy outside it.
func (s *Session) transition(c *Candidate, apply func(*Candidate)) {
	s.mu.Lock()
	apply(c)
	snapshot := *c
	s.mu.Unlock()

	if s.observer != nil {
		s.observer(snapshot)
	}
}
