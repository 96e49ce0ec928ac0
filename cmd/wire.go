package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	renderstatus "github.com/LiamVDB1/twitter-api/internal/adapters/render/status"
	"github.com/LiamVDB1/twitter-api/internal/adapters/scraper"
	sqlitestore "github.com/LiamVDB1/twitter-api/internal/adapters/store/sqlite"
	tomlstore "github.com/LiamVDB1/twitter-api/internal/adapters/store/toml"
	"github.com/LiamVDB1/twitter-api/internal/application"
	"github.com/LiamVDB1/twitter-api/internal/config"
	"github.com/LiamVDB1/twitter-api/internal/observability"
	"github.com/LiamVDB1/twitter-api/internal/pool"
	"github.com/LiamVDB1/twitter-api/internal/ports"
	"github.com/LiamVDB1/twitter-api/internal/session"
)

type app struct {
	service        *application.Service
	pool           *pool.Pool
	log            *slog.Logger
	statusRenderer func([]application.AccountStatus, renderstatus.RenderOptions) string
	now            func() time.Time
}

func wireApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("wire config: %w", err)
	}

	log := observability.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := wireStore(cfg)
	if err != nil {
		return nil, err
	}

	accounts := pool.New(store, ports.SystemClock{}, log)
	if err := accounts.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("seed account pool: %w", err)
	}

	source := scraper.NewClient(cfg.ScraperBaseURL, cfg.ScraperTimeout)
	sessions := session.NewCache(source, accounts, log)
	service := application.NewService(accounts, sessions, log)

	return &app{
		service:        service,
		pool:           accounts,
		log:            log,
		statusRenderer: renderstatus.Render,
		now:            time.Now,
	}, nil
}

func wireStore(cfg *config.Config) (ports.AccountStore, error) {
	switch cfg.StoreBackend {
	case "toml":
		store, err := tomlstore.New(viper.New(), cfg.AccountsPath)
		if err != nil {
			return nil, fmt.Errorf("wire toml account store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlitestore.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("wire sqlite account store: %w", err)
		}
		if err := store.Migrate(context.Background()); err != nil {
			return nil, fmt.Errorf("migrate account store: %w", err)
		}
		return store, nil
	}
}
