package database

import (
	"context"
	"log/slog"
	"sort"

	"cloud.google.com/go/firestore"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	"github.com/ripixel/fitglue-media/pkg/execution"
	storage "github.com/ripixel/fitglue-media/pkg/storage/firestore"
)

const executionsCollection = "executions"

// FirestoreAdapter provides catalog and execution-record operations using
// Firestore.
type FirestoreAdapter struct {
	Client             *firestore.Client
	exerciseCollection string
	mediaField         string
	logger             *slog.Logger
}

func NewFirestoreAdapter(client *firestore.Client, exerciseCollection, mediaField string, logger *slog.Logger) *FirestoreAdapter {
	if mediaField == "" {
		mediaField = storage.DefaultMediaURLField
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FirestoreAdapter{
		Client:             client,
		exerciseCollection: exerciseCollection,
		mediaField:         mediaField,
		logger:             logger.With("component", "firestore"),
	}
}

// --- Exercise Catalog ---

// ListExercises reads the whole catalog ordered by document ID. Malformed
// rows are skipped with a warning.
func (a *FirestoreAdapter) ListExercises(ctx context.Context) ([]exercise.Entry, error) {
	docs, err := a.Client.Collection(a.exerciseCollection).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, err
	}

	entries := make([]exercise.Entry, 0, len(docs))
	for _, d := range docs {
		e, err := storage.FirestoreToExercise(d.Ref.ID, d.Data(), a.mediaField)
		if err != nil {
			a.logger.Warn("Skipping malformed exercise row", "doc_id", d.Ref.ID, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// UpdateExerciseMediaURL points an exercise at its new media. Update fails
// when the document does not exist.
func (a *FirestoreAdapter) UpdateExerciseMediaURL(ctx context.Context, id string, mediaURL string) error {
	_, err := a.Client.Collection(a.exerciseCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: a.mediaField, Value: mediaURL},
		{Path: "updated_at", Value: firestore.ServerTimestamp},
	})
	return err
}

// --- Executions ---

func (a *FirestoreAdapter) SetExecution(ctx context.Context, record *execution.ExecutionRecord) error {
	_, err := a.Client.Collection(executionsCollection).Doc(record.ExecutionID).Set(ctx, storage.ExecutionToFirestore(record))
	return err
}

func (a *FirestoreAdapter) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: data[k]})
	}
	_, err := a.Client.Collection(executionsCollection).Doc(id).Update(ctx, updates)
	return err
}
