package mocks

import (
	"context"
	"io"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/ripixel/fitglue-media/pkg"
	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	"github.com/ripixel/fitglue-media/pkg/execution"
)

// --- Mock Database ---
type MockDatabase struct {
	ListExercisesFunc          func(ctx context.Context) ([]exercise.Entry, error)
	UpdateExerciseMediaURLFunc func(ctx context.Context, id string, mediaURL string) error

	SetExecutionFunc    func(ctx context.Context, record *execution.ExecutionRecord) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDatabase) ListExercises(ctx context.Context) ([]exercise.Entry, error) {
	if m.ListExercisesFunc != nil {
		return m.ListExercisesFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabase) UpdateExerciseMediaURL(ctx context.Context, id string, mediaURL string) error {
	if m.UpdateExerciseMediaURLFunc != nil {
		return m.UpdateExerciseMediaURLFunc(ctx, id, mediaURL)
	}
	return nil
}

func (m *MockDatabase) SetExecution(ctx context.Context, record *execution.ExecutionRecord) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}

func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockMediaStore struct {
	WriteObjectFunc func(ctx context.Context, key string, r io.Reader, opts shared.WriteOptions) error
	PublicURLFunc   func(key string) string
}

func (m *MockMediaStore) WriteObject(ctx context.Context, key string, r io.Reader, opts shared.WriteOptions) error {
	if m.WriteObjectFunc != nil {
		return m.WriteObjectFunc(ctx, key, r, opts)
	}
	_, err := io.Copy(io.Discard, r)
	return err
}

func (m *MockMediaStore) PublicURL(key string) string {
	if m.PublicURLFunc != nil {
		return m.PublicURLFunc(key)
	}
	return "https://media.test/" + key
}

// --- Mock Secrets ---
type MockSecretStore struct {
	GetSecretFunc func(ctx context.Context, projectID, name string) (string, error)
}

func (m *MockSecretStore) GetSecret(ctx context.Context, projectID, name string) (string, error) {
	if m.GetSecretFunc != nil {
		return m.GetSecretFunc(ctx, projectID, name)
	}
	return "mock-secret-value", nil
}
