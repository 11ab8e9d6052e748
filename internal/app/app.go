// Package app wires configuration, stores, services and the HTTP router into
// a runnable application shared by the server and Lambda entrypoints.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"imgmeta/internal/config"
	"imgmeta/internal/handler"
	"imgmeta/internal/openapi"
	"imgmeta/internal/port"
	"imgmeta/internal/repository"
	"imgmeta/internal/router"
	"imgmeta/internal/service"
	s3storage "imgmeta/internal/storage/s3"
)

// App is a fully wired application.
type App struct {
	Config  *config.Config
	Repo    port.ImageRepository
	Storage port.ObjectStorage
	Service service.ImageService
	Router  *gin.Engine

	closeRepo func() error
}

// New opens the configured stores and builds the router.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, closeRepo, err := repository.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	storage, err := s3storage.NewS3Client(ctx, &cfg.S3)
	if err != nil {
		_ = closeRepo()
		return nil, fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	a, err := Assemble(cfg, repo, storage)
	if err != nil {
		_ = closeRepo()
		return nil, err
	}
	a.closeRepo = closeRepo
	return a, nil
}

// Assemble builds the service and router on top of already constructed
// stores.
func Assemble(cfg *config.Config, repo port.ImageRepository, storage port.ObjectStorage, opts ...service.Option) (*App, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	apiDoc, err := openapi.JSON(cfg.Server.BasePath)
	if err != nil {
		return nil, err
	}
	openapi.Register(apiDoc)

	svc := service.NewImageService(repo, storage, &cfg.S3, &cfg.List, opts...)
	imageH := handler.NewImageHandler(svc, cfg.List.DefaultLimit)
	healthH := handler.NewHealthHandler(repo)

	return &App{
		Config:    cfg,
		Repo:      repo,
		Storage:   storage,
		Service:   svc,
		Router:    router.Setup(cfg, imageH, healthH, apiDoc),
		closeRepo: func() error { return nil },
	}, nil
}

// Close releases the metadata store.
func (a *App) Close() error {
	return a.closeRepo()
}
