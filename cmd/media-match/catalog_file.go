package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	"github.com/ripixel/fitglue-media/pkg/storage/firestore"
)

// fileCatalog reads catalog rows from a JSON array shaped like the
// Firestore documents, with the document ID under "id".
type fileCatalog struct {
	path       string
	mediaField string
	logger     *slog.Logger
}

func (f *fileCatalog) ListExercises(ctx context.Context) ([]exercise.Entry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", f.path, err)
	}

	entries := make([]exercise.Entry, 0, len(rows))
	for i, row := range rows {
		id, _ := row["id"].(string)
		entry, err := firestore.FirestoreToExercise(id, row, f.mediaField)
		if err != nil {
			f.logger.Warn("Skipping malformed catalog row", "row", i, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
