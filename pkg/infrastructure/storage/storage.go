package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	shared "github.com/ripixel/fitglue-media/pkg"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
)

// StorageAdapter writes exercise media to a single Cloud Storage bucket.
type StorageAdapter struct {
	Client *storage.Client
	Bucket string
	// PublicBaseURL replaces the default storage.googleapis.com host when
	// media is served through a CDN.
	PublicBaseURL string
	Logger        *slog.Logger
}

func (a *StorageAdapter) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default().With("component", "storage")
	}
	return a.Logger
}

// WriteObject streams r into key. With Overwrite off, the write only
// succeeds when no object exists under key yet.
func (a *StorageAdapter) WriteObject(ctx context.Context, key string, r io.Reader, opts shared.WriteOptions) error {
	obj := a.Client.Bucket(a.Bucket).Object(key)
	if !opts.Overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}

	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	if w.ContentType == "" {
		w.ContentType = ContentTypeForKey(key)
	}

	n, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return apperrors.ErrStorage.
				WithMessage("object already exists").
				WithMetadata("object", key).
				WithCause(err)
		}
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}

	a.logger().Info("Object written",
		"bucket", a.Bucket,
		"object", key,
		"content_type", w.ContentType,
		"size_bytes", n)
	return nil
}

// PublicURL returns the address the catalog should store for key.
func (a *StorageAdapter) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if base := strings.TrimRight(a.PublicBaseURL, "/"); base != "" {
		return base + "/" + key
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", a.Bucket, key)
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

// ContentTypeForKey guesses a MIME type from the key's extension. Unknown
// extensions yield "".
func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch path.Ext(s) {
	case ".gif":
		return "image/gif"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	default:
		return ""
	}
}
