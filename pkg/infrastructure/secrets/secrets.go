package secrets

import (
	"context"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"sync"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

var crc32c = crc32.MakeTable(crc32.Castagnoli)

// SecretsAdapter reads secrets from Google Secret Manager, preferring an
// environment variable of the same name when one is set. The client is
// dialed on the first remote lookup and reused until Close.
type SecretsAdapter struct {
	Logger *slog.Logger

	mu     sync.Mutex
	client *secretmanager.Client
}

func (a *SecretsAdapter) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

func (a *SecretsAdapter) getClient(ctx context.Context) (*secretmanager.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secretmanager client: %w", err)
	}
	a.client = client
	return client, nil
}

func (a *SecretsAdapter) GetSecret(ctx context.Context, projectID, secretName string) (string, error) {
	if val := os.Getenv(secretName); val != "" {
		a.logger().Debug("Using local env var for secret", "secret", secretName)
		return val, nil
	}

	client, err := a.getClient(ctx)
	if err != nil {
		return "", err
	}

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: versionName(projectID, secretName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret version: %w", err)
	}
	if err := verifyPayload(secretName, result.GetPayload()); err != nil {
		return "", err
	}
	return string(result.GetPayload().GetData()), nil
}

// Close releases the Secret Manager client if one was dialed.
func (a *SecretsAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

func versionName(projectID, secretName string) string {
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretName)
}

// verifyPayload rejects a payload whose CRC32C does not match the one the
// server reported.
func verifyPayload(secretName string, payload *secretmanagerpb.SecretPayload) error {
	if payload == nil {
		return fmt.Errorf("secret %s has no payload", secretName)
	}
	if payload.DataCrc32C == nil {
		return nil
	}
	if int64(crc32.Checksum(payload.Data, crc32c)) != *payload.DataCrc32C {
		return fmt.Errorf("data corruption detected for secret %s", secretName)
	}
	return nil
}
