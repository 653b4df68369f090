package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultProjectID          = "fitglue-project"
	DefaultMediaBucket        = "fitglue-exercise-media"
	DefaultMediaPrefix        = "exercises"
	DefaultExerciseCollection = "exercises"
	DefaultMediaURLField      = "gif_url"
	DefaultUploadStepTimeout  = 2 * time.Minute
	DefaultTopicMediaUpdated  = "topic-exercise-media-updated"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID          string
	EnablePublish      bool
	MediaBucket        string
	MediaPrefix        string
	MediaPublicBaseURL string
	ExerciseCollection string
	MediaURLField      string
	UploadStepTimeout  time.Duration
	TopicMediaUpdated  string
	// IngressTokenSecret names the secret holding the bearer token HTTP
	// callers must present. Empty disables the check.
	IngressTokenSecret string
}

// LoadConfig reads configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		ProjectID:          envOr("GOOGLE_CLOUD_PROJECT", DefaultProjectID),
		EnablePublish:      os.Getenv("ENABLE_PUBLISH") == "true",
		MediaBucket:        envOr("MEDIA_BUCKET", DefaultMediaBucket),
		MediaPrefix:        envOr("MEDIA_PREFIX", DefaultMediaPrefix),
		MediaPublicBaseURL: os.Getenv("MEDIA_PUBLIC_BASE_URL"),
		ExerciseCollection: envOr("EXERCISE_COLLECTION", DefaultExerciseCollection),
		MediaURLField:      envOr("MEDIA_URL_FIELD", DefaultMediaURLField),
		UploadStepTimeout:  DefaultUploadStepTimeout,
		TopicMediaUpdated:  envOr("TOPIC_MEDIA_UPDATED", DefaultTopicMediaUpdated),
		IngressTokenSecret: os.Getenv("INGRESS_TOKEN_SECRET"),
	}

	if raw := os.Getenv("UPLOAD_STEP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			slog.Warn("Invalid UPLOAD_STEP_TIMEOUT, using default", "value", raw, "default", DefaultUploadStepTimeout)
		} else {
			cfg.UploadStepTimeout = d
		}
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// fileConfig mirrors Config for TOML decoding; nil fields keep the value
// already loaded from the environment.
type fileConfig struct {
	ProjectID          *string `toml:"project_id"`
	EnablePublish      *bool   `toml:"enable_publish"`
	MediaBucket        *string `toml:"media_bucket"`
	MediaPrefix        *string `toml:"media_prefix"`
	MediaPublicBaseURL *string `toml:"media_public_base_url"`
	ExerciseCollection *string `toml:"exercise_collection"`
	MediaURLField      *string `toml:"media_url_field"`
	UploadStepTimeout  *string `toml:"upload_step_timeout"`
	TopicMediaUpdated  *string `toml:"topic_media_updated"`
	IngressTokenSecret *string `toml:"ingress_token_secret"`
}

// LoadConfigFile loads the environment configuration and overlays the
// TOML file at path on top of it. Unknown keys are rejected.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var fc fileConfig
	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ProjectID, fc.ProjectID)
	setString(&cfg.MediaBucket, fc.MediaBucket)
	setString(&cfg.MediaPrefix, fc.MediaPrefix)
	setString(&cfg.MediaPublicBaseURL, fc.MediaPublicBaseURL)
	setString(&cfg.ExerciseCollection, fc.ExerciseCollection)
	setString(&cfg.MediaURLField, fc.MediaURLField)
	setString(&cfg.TopicMediaUpdated, fc.TopicMediaUpdated)
	setString(&cfg.IngressTokenSecret, fc.IngressTokenSecret)
	if fc.EnablePublish != nil {
		cfg.EnablePublish = *fc.EnablePublish
	}
	if fc.UploadStepTimeout != nil {
		d, err := time.ParseDuration(*fc.UploadStepTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse config %s: upload_step_timeout: %w", path, err)
		}
		cfg.UploadStepTimeout = d
	}
	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
