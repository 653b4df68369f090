package shared

import (
	"context"
	"io"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	"github.com/ripixel/fitglue-media/pkg/execution"
)

// --- Catalog Interfaces ---

type CatalogReader interface {
	ListExercises(ctx context.Context) ([]exercise.Entry, error)
}

type CatalogWriter interface {
	UpdateExerciseMediaURL(ctx context.Context, id string, mediaURL string) error
}

type ExerciseCatalog interface {
	CatalogReader
	CatalogWriter
}

// --- Persistence Interfaces ---

type Database interface {
	ExerciseCatalog
	execution.Database
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

// WriteOptions controls a single object write.
type WriteOptions struct {
	ContentType string
	// Overwrite replaces an existing object; when false the write fails if
	// the key is taken.
	Overwrite bool
}

type MediaStore interface {
	WriteObject(ctx context.Context, key string, r io.Reader, opts WriteOptions) error
	PublicURL(key string) string
}

// --- Secrets Interface ---

type SecretStore interface {
	GetSecret(ctx context.Context, projectID, name string) (string, error)
}
