package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/db"
	"github.com/example/tablesearch/internal/history"
	"github.com/example/tablesearch/internal/infrastructure/bookingapi"
	"github.com/example/tablesearch/internal/infrastructure/config"
	"github.com/example/tablesearch/internal/migrate"
	"github.com/example/tablesearch/internal/observability"
)

// app holds what every command needs once config is loaded.
type app struct {
	cfg  config.Config
	log  *zap.Logger
	api  *bookingapi.Client
	auth *search.SessionManager
	db   *db.DB
	hist *history.Repo
}

func newApp(f *rootFlags) (*app, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	log := observability.NewStderrLogger(cfg.Logger)
	api := bookingapi.New(cfg.API.BaseURL,
		bookingapi.WithTimeout(cfg.API.Timeout),
		bookingapi.WithRateLimit(cfg.API.RateLimit),
		bookingapi.WithLogger(log),
	)
	return &app{
		cfg:  cfg,
		log:  log,
		api:  api,
		auth: search.NewSessionManager(api, search.WithManagerLogger(log)),
	}, nil
}

// openHistory connects to Postgres and migrates when a database is configured.
// Without one, history stays nil and nothing is recorded.
func (a *app) openHistory(ctx context.Context) error {
	if a.cfg.Database.URL == "" {
		return nil
	}
	d, err := db.Open(ctx, a.cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return fmt.Errorf("db ping: %w", err)
	}
	if err := migrate.Up(ctx, d); err != nil {
		d.Close()
		return err
	}
	a.db = d
	a.hist = history.NewRepo(d)
	return nil
}

func (a *app) newSession() *search.Session {
	opts := []search.SessionOption{search.WithLogger(a.log)}
	if a.hist != nil {
		opts = append(opts, search.WithRecorder(a.hist))
	}
	return search.NewSession(a.auth, a.api, a.cfg.API.Market(), opts...)
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	_ = a.log.Sync()
}
