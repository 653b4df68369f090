package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"

	shared "github.com/ripixel/fitglue-media/pkg"
	"github.com/ripixel/fitglue-media/pkg/infrastructure/database"
	infrapubsub "github.com/ripixel/fitglue-media/pkg/infrastructure/pubsub"
	"github.com/ripixel/fitglue-media/pkg/infrastructure/secrets"
	infrastorage "github.com/ripixel/fitglue-media/pkg/infrastructure/storage"
)

// Service holds initialized dependencies
type Service struct {
	DB      shared.Database
	Media   shared.MediaStore
	Pub     shared.Publisher
	Secrets shared.SecretStore
	Config  *Config
	Logger  *slog.Logger
}

// Close releases whichever dependencies hold connections. It returns the
// first error but always tries every dependency.
func (s *Service) Close() error {
	var first error
	for _, dep := range []interface{}{s.Secrets, s.Media, s.Pub, s.DB} {
		closer, ok := dep.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if len(groups) > 0 {
				return a
			}
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the
// message. The component may come from the record or from Logger.With.
type ComponentHandler struct {
	slog.Handler
	component string
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
			return false
		}
		return true
	})

	if component == "" {
		return h.Handler.Handle(ctx, r)
	}

	newRecord := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("[%s] %s", component, r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "component" {
			newRecord.AddAttrs(a)
		}
		return true
	})
	return h.Handler.Handle(ctx, newRecord)
}

// WithAttrs keeps the wrapper so loggers derived with With still get the
// prefix.
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	rest := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "component" {
			component = a.Value.String()
			continue
		}
		rest = append(rest, a)
	}
	return &ComponentHandler{Handler: h.Handler.WithAttrs(rest), component: component}
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{Handler: h.Handler.WithGroup(name), component: h.component}
}

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLoggerTo creates a logger writing Cloud Logging JSON to w.
func NewLoggerTo(w io.Writer, serviceName string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, GetSlogHandlerOptions(level))
	return slog.New(&ComponentHandler{Handler: handler}).With("service", serviceName)
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string) *slog.Logger {
	return NewLoggerTo(os.Stdout, serviceName, ParseLevel(os.Getenv("LOG_LEVEL")))
}

// InitLogger configures structured logging with Cloud Logging compatible keys
func InitLogger(serviceName string) *slog.Logger {
	logger := NewLogger(serviceName)
	slog.SetDefault(logger)
	return logger
}

// NewService initializes all standard dependencies from the environment
func NewService(ctx context.Context, serviceName string) (*Service, error) {
	return NewServiceWithConfig(ctx, serviceName, LoadConfig())
}

// NewServiceWithConfig initializes all standard dependencies
func NewServiceWithConfig(ctx context.Context, serviceName string, cfg *Config) (*Service, error) {
	return NewServiceWithLogger(ctx, cfg, InitLogger(serviceName))
}

// NewServiceWithLogger is NewServiceWithConfig for callers that own their
// log output, such as the CLI writing logs to stderr.
func NewServiceWithLogger(ctx context.Context, cfg *Config, logger *slog.Logger) (*Service, error) {
	logger.Info("Initializing service",
		"project_id", cfg.ProjectID,
		"bucket", cfg.MediaBucket,
		"collection", cfg.ExerciseCollection)

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient, Logger: logger.With("component", "pubsub")}
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{Logger: logger.With("component", "pubsub")}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	// Storage
	gcsClient, err := storage.NewClient(ctx)
	if err != nil {
		logger.Error("Storage init failed", "error", err)
		return nil, fmt.Errorf("storage init: %w", err)
	}

	return &Service{
		DB: database.NewFirestoreAdapter(fsClient, cfg.ExerciseCollection, cfg.MediaURLField, logger),
		Media: &infrastorage.StorageAdapter{
			Client:        gcsClient,
			Bucket:        cfg.MediaBucket,
			PublicBaseURL: cfg.MediaPublicBaseURL,
			Logger:        logger.With("component", "storage"),
		},
		Pub:     pubAdapter,
		Secrets: &secrets.SecretsAdapter{Logger: logger.With("component", "secrets")},
		Config:  cfg,
		Logger:  logger,
	}, nil
}
