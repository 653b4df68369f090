package reconciliation

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	shared "github.com/ripixel/fitglue-media/pkg"
	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
	matcher "github.com/ripixel/fitglue-media/pkg/exercise_matcher"
)

const (
	DefaultMediaType   = "image/gif"
	DefaultMediaExt    = ".gif"
	DefaultStepTimeout = 2 * time.Minute
	DefaultKeyPrefix   = "exercises"
)

// Deps are the external collaborators of a session.
type Deps struct {
	Catalog shared.ExerciseCatalog
	Media   shared.MediaStore
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithClock overrides the time source used for object keys.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithStepTimeout bounds each storage write and each catalog update.
// Zero or negative disables the bound.
func WithStepTimeout(d time.Duration) Option {
	return func(s *Session) { s.stepTimeout = d }
}

// WithObserver is called with a copy of the candidate after every status
// transition, in order, from the goroutine running Upload.
func WithObserver(fn func(Candidate)) Option {
	return func(s *Session) { s.observer = fn }
}

// WithCompletion is called once after every batch with its summary.
func WithCompletion(fn func(Summary)) Option {
	return func(s *Session) { s.completion = fn }
}

// WithMediaType sets the accepted MIME type and file extension.
func WithMediaType(mimeType, ext string) Option {
	return func(s *Session) {
		s.mediaType = mimeType
		s.mediaExt = ext
	}
}

// WithKeyPrefix sets the object key prefix for uploads.
func WithKeyPrefix(prefix string) Option {
	return func(s *Session) { s.keyPrefix = prefix }
}

// Session is the in-memory state of one bulk reconciliation: the catalog
// snapshot, the candidate batch and the progress of the running or last
// upload. It is created per flow and discarded afterwards.
type Session struct {
	id          string
	deps        Deps
	logger      *slog.Logger
	now         func() time.Time
	stepTimeout time.Duration
	mediaType   string
	mediaExt    string
	keyPrefix   string
	observer    func(Candidate)
	completion  func(Summary)

	mu             sync.Mutex
	catalog        []exercise.Entry
	catalogErr     error
	candidates     []*Candidate
	running        bool
	batchSize      int
	batchCompleted int
}

// NewSession creates a session and fetches the catalog snapshot once.
// A failed fetch is logged and kept in CatalogError; the session then runs
// with an empty catalog, so nothing matches automatically.
func NewSession(ctx context.Context, deps Deps, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		deps:        deps,
		logger:      slog.Default(),
		now:         time.Now,
		stepTimeout: DefaultStepTimeout,
		mediaType:   DefaultMediaType,
		mediaExt:    DefaultMediaExt,
		keyPrefix:   DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "reconciliation", "session_id", s.id)

	catalog, err := deps.Catalog.ListExercises(ctx)
	if err != nil {
		s.catalogErr = apperrors.ErrCatalogFetch.WithCause(err)
		s.logger.Error("Catalog fetch failed, continuing with empty catalog", "error", err)
		return s
	}
	s.catalog = catalog
	s.logger.Info("Catalog loaded", "entries", len(catalog))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CatalogError returns the catalog fetch failure, if any.
func (s *Session) CatalogError() error { return s.catalogErr }

// Catalog returns a copy of the catalog snapshot.
func (s *Session) Catalog() []exercise.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]exercise.Entry(nil), s.catalog...)
}

// Add appends the accepted media files to the batch and pre-fills each
// match from the catalog snapshot. Files of other types are dropped; when
// none of a non-empty selection is accepted, ErrNoMediaFiles is returned
// and the batch is left as it was.
func (s *Session) Add(files []File) ([]Candidate, error) {
	if len(files) == 0 {
		return nil, nil
	}

	var accepted []File
	for _, f := range files {
		if s.isMediaFile(f) {
			accepted = append(accepted, f)
		}
	}
	if len(accepted) == 0 {
		return nil, apperrors.ErrNoMediaFiles.WithMetadata("rejected", strconv.Itoa(len(files)))
	}

	s.mu.Lock()
	added := make([]Candidate, 0, len(accepted))
	for _, f := range accepted {
		c := &Candidate{
			ID:          uuid.NewString(),
			FileName:    f.Name,
			ContentType: f.Type,
			Size:        f.Size,
			Status:      StatusPending,
			payload:     f.Payload,
		}
		if m, ok := matcher.BestMatch(f.Name, s.catalog); ok {
			c.MatchedEntryID = m.Entry.ID
			c.MatchedEntryName = m.Entry.Name
			c.MatchScore = m.Score
		}
		s.candidates = append(s.candidates, c)
		added = append(added, *c)
	}
	s.mu.Unlock()

	if dropped := len(files) - len(accepted); dropped > 0 {
		s.logger.Info("Dropped non-media files", "dropped", dropped)
	}
	for _, c := range added {
		s.logger.Info("Candidate added",
			"candidate_id", c.ID,
			"file_name", c.FileName,
			"matched_entry_id", c.MatchedEntryID,
			"score", c.MatchScore)
	}
	return added, nil
}

// Select manually assigns a catalog entry to a pending candidate. The
// choice is not checked against the matcher score.
func (s *Session) Select(candidateID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.editableLocked(candidateID)
	if err != nil {
		return err
	}
	entry, ok := exercise.FindByID(s.catalog, entryID)
	if !ok {
		return apperrors.ErrEntryNotFound.WithMetadata("entry_id", entryID)
	}
	c.MatchedEntryID = entry.ID
	c.MatchedEntryName = entry.Name
	c.MatchScore = matcher.Score(matcher.StripExtension(c.FileName), entry.Name)

	s.logger.Info("Candidate match overridden", "candidate_id", c.ID, "entry_id", entry.ID)
	return nil
}

// SetSearchQuery stores the picker filter for a candidate. It never changes
// the match.
func (s *Session) SetSearchQuery(candidateID, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(candidateID)
	if c == nil {
		return apperrors.ErrCandidateNotFound.WithMetadata("candidate_id", candidateID)
	}
	c.SearchQuery = query
	return nil
}

// Options lists the catalog entries the picker shows for a candidate under
// the given muscle-group tab.
func (s *Session) Options(candidateID, group string) ([]exercise.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(candidateID)
	if c == nil {
		return nil, apperrors.ErrCandidateNotFound.WithMetadata("candidate_id", candidateID)
	}
	return matcher.Search(c.SearchQuery, group, s.catalog), nil
}

// Remove drops a pending candidate and releases its payload.
func (s *Session) Remove(candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.editableLocked(candidateID)
	if err != nil {
		return err
	}
	for i, existing := range s.candidates {
		if existing == c {
			s.candidates = append(s.candidates[:i], s.candidates[i+1:]...)
			break
		}
	}
	c.release()
	s.logger.Info("Candidate removed", "candidate_id", c.ID)
	return nil
}

// Clear drops every terminal candidate after a batch and returns how many
// were removed.
func (s *Session) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return 0, apperrors.ErrBatchInProgress
	}
	kept := s.candidates[:0]
	removed := 0
	for _, c := range s.candidates {
		if c.Status.Terminal() {
			c.release()
			removed++
			continue
		}
		kept = append(kept, c)
	}
	for i := len(kept); i < len(s.candidates); i++ {
		s.candidates[i] = nil
	}
	s.candidates = kept
	return removed, nil
}

// Candidates returns copies of every candidate in batch order.
func (s *Session) Candidates() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Candidate, len(s.candidates))
	for i, c := range s.candidates {
		out[i] = *c
	}
	return out
}

// Candidate returns a copy of one candidate.
func (s *Session) Candidate(candidateID string) (Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.findLocked(candidateID)
	if c == nil {
		return Candidate{}, false
	}
	return *c, true
}

func (s *Session) isMediaFile(f File) bool {
	if f.Type != "" && strings.EqualFold(f.Type, s.mediaType) {
		return true
	}
	return strings.EqualFold(filepath.Ext(f.Name), s.mediaExt)
}

func (s *Session) findLocked(candidateID string) *Candidate {
	for _, c := range s.candidates {
		if c.ID == candidateID {
			return c
		}
	}
	return nil
}

// editableLocked returns the candidate when it may still be changed: it
// must be pending and no batch may be running.
func (s *Session) editableLocked(candidateID string) (*Candidate, error) {
	c := s.findLocked(candidateID)
	if c == nil {
		return nil, apperrors.ErrCandidateNotFound.WithMetadata("candidate_id", candidateID)
	}
	if s.running || c.Status != StatusPending {
		return nil, apperrors.ErrCandidateLocked.
			WithMetadata("candidate_id", candidateID).
			WithMetadata("status", string(c.Status))
	}
	return c, nil
}
