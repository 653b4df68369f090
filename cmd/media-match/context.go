package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"

	shared "github.com/ripixel/fitglue-media/pkg"
	"github.com/ripixel/fitglue-media/pkg/bootstrap"
	"github.com/ripixel/fitglue-media/pkg/domain/exercise"
	apperrors "github.com/ripixel/fitglue-media/pkg/errors"
)

const serviceName = "media-match"

type serviceFactory func(ctx context.Context, cfg *bootstrap.Config, logger *slog.Logger) (*bootstrap.Service, error)

func defaultServiceFactory(ctx context.Context, cfg *bootstrap.Config, logger *slog.Logger) (*bootstrap.Service, error) {
	return bootstrap.NewServiceWithLogger(ctx, cfg, logger)
}

// commandContext carries the global flags and lazily built dependencies
// shared by every subcommand.
type commandContext struct {
	configPath  string
	catalogPath string
	group       string
	logLevel    string

	newService serviceFactory

	configOnce sync.Once
	config     *bootstrap.Config
	configErr  error

	serviceOnce sync.Once
	service     *bootstrap.Service
	serviceErr  error
}

func newCommandContext(factory serviceFactory) *commandContext {
	return &commandContext{newService: factory}
}

func (c *commandContext) ensureConfig() (*bootstrap.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = bootstrap.LoadConfigFile(strings.TrimSpace(c.configPath))
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	return bootstrap.NewLoggerTo(os.Stderr, serviceName, bootstrap.ParseLevel(c.logLevel))
}

func (c *commandContext) ensureService(ctx context.Context) (*bootstrap.Service, error) {
	c.serviceOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.serviceErr = err
			return
		}
		c.service, c.serviceErr = c.newService(ctx, cfg, c.logger())
	})
	return c.service, c.serviceErr
}

// catalogReader returns the offline file catalog when --catalog is set and
// the Firestore catalog otherwise.
func (c *commandContext) catalogReader(ctx context.Context) (shared.CatalogReader, error) {
	if path := strings.TrimSpace(c.catalogPath); path != "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return nil, err
		}
		return &fileCatalog{path: path, mediaField: cfg.MediaURLField, logger: c.logger()}, nil
	}
	svc, err := c.ensureService(ctx)
	if err != nil {
		return nil, err
	}
	return svc.DB, nil
}

func (c *commandContext) loadCatalog(ctx context.Context) ([]exercise.Entry, error) {
	reader, err := c.catalogReader(ctx)
	if err != nil {
		return nil, err
	}
	catalog, err := reader.ListExercises(ctx)
	if err != nil {
		return nil, apperrors.ErrCatalogFetch.WithCause(err)
	}
	return catalog, nil
}

// close releases the service if a command built one.
func (c *commandContext) close() error {
	if c.service == nil {
		return nil
	}
	return c.service.Close()
}
