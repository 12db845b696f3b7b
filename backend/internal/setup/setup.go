package setup

import (
	"context"
	"fmt"

	"github.com/itchan-dev/prepublish/backend/internal/handler"
	"github.com/itchan-dev/prepublish/backend/internal/service"
	"github.com/itchan-dev/prepublish/backend/internal/storage/kv"
	"github.com/itchan-dev/prepublish/backend/internal/storage/pg"
	"github.com/itchan-dev/prepublish/shared/config"
	"github.com/itchan-dev/prepublish/shared/jwt"
	"github.com/itchan-dev/prepublish/shared/logger"
	"github.com/itchan-dev/prepublish/shared/markup"
	mw "github.com/itchan-dev/prepublish/shared/middleware"
)

var _ service.Storage = (*kv.Storage)(nil)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config     *config.Config
	Storage    service.Storage
	Handler    *handler.Handler
	Auth       *mw.Auth
	Jwt        jwt.JwtService
	Reconciler *service.PassReconciler
	Collector  *service.OrphanCollector
}

// OpenStorage connects the document store selected by config.
func OpenStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	switch cfg.Public.Storage {
	case config.StorageBackendPg:
		storage, err := pg.New(ctx, cfg, pg.DefaultConnectionConfig())
		if err != nil {
			return nil, err
		}
		return storage, nil
	case config.StorageBackendBadger:
		kvCfg := kv.DefaultConfig(cfg.Public.Badger.Path)
		kvCfg.SyncWrites = cfg.Public.Badger.SyncWrites
		kvCfg.Logger = logger.Component("badger")
		storage, err := kv.New(kvCfg)
		if err != nil {
			return nil, err
		}
		return storage, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Public.Storage)
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, storage), nil
}

// Wire builds the services and handler on top of an opened storage.
func Wire(cfg *config.Config, storage service.Storage) *Dependencies {
	jwtService := jwt.New(cfg.JwtKey(), cfg.JwtTTL())
	withdraw := service.NewWithdrawer(storage)

	theses := service.NewThesis(storage, withdraw, cfg.Public.PageLimit)
	versions := service.NewVersion(storage, withdraw)
	reviews := service.NewReview(storage)
	comments := service.NewComment(storage, withdraw)

	h := handler.New(theses, versions, reviews, comments, storage, markup.New(), cfg)

	return &Dependencies{
		Config:     cfg,
		Storage:    storage,
		Handler:    h,
		Auth:       mw.NewAuth(jwtService),
		Jwt:        jwtService,
		Reconciler: service.NewPassReconciler(storage, versions),
		Collector:  service.NewOrphanCollector(storage, withdraw),
	}
}
