package server

import (
	"context"
	"os"
	"time"

	"github.com/generativelabs/stakeserver/internal/api"
	"github.com/generativelabs/stakeserver/internal/db"
	"github.com/generativelabs/stakeserver/internal/metrics"
	"github.com/generativelabs/stakeserver/internal/staking"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger from config.
func SetupLogger(config Config) {
	level, err := zerolog.ParseLevel(config.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if config.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}

// stores bundles the storage chosen by config.
type stores struct {
	plans  staking.PlanCatalog
	stakes staking.StakeLedger
	ping   func(ctx context.Context) error
	close  func() error
}

func openStores(config Config) (*stores, error) {
	var (
		backend *db.Backend
		err     error
	)
	switch config.Storage.Driver {
	case StorageMemory, "":
		return &stores{
			plans:  staking.NewMemoryCatalog(),
			stakes: staking.NewMemoryLedger(),
			close:  func() error { return nil },
		}, nil
	case StorageSQLite:
		backend, err = db.OpenSQLite(config.Storage.SQLitePath)
	case StorageMySQL:
		backend, err = db.CreateBackend(config.Mysql)
	default:
		return nil, errors.Errorf("unknown storage driver %q", config.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := backend.Migrate(ctx); err != nil {
		backend.Close()
		return nil, err
	}

	return &stores{
		plans:  backend,
		stakes: backend,
		ping:   backend.Ping,
		close:  backend.Close,
	}, nil
}

// Migrate creates the schema on the configured SQL store.
func Migrate(config Config) error {
	s, err := openStores(config)
	if err != nil {
		return err
	}
	return s.close()
}

// Run serves the API until the listener fails. Storage is closed before
// Run returns.
func Run(config Config) error {
	SetupLogger(config)
	gin.SetMode(gin.ReleaseMode)

	s, err := openStores(config)
	if err != nil {
		return errors.Wrap(err, "create storage backend")
	}
	defer s.close()

	coordinator := staking.NewCoordinator(s.plans, s.stakes,
		staking.WithLogger(log.With().Str("component", "staking").Logger()))

	tokens := api.StaticTokens(config.Auth.Tokens)
	if len(tokens) == 0 {
		log.Warn().Msg("no auth tokens configured, only public routes are usable")
	}

	opts := []api.Option{
		api.WithAuthenticator(tokens),
		api.WithMetrics(metrics.NewCollector()),
		api.WithLogger(log.With().Str("component", "api").Logger()),
		api.WithRateLimit(config.RateLimit.PerMinute, config.RateLimit.Burst),
	}
	if s.ping != nil {
		opts = append(opts, api.WithHealthCheck(s.ping))
	}
	apiServer := api.New(coordinator, opts...)

	log.Info().
		Str("storage", config.Storage.Driver).
		Int("port", config.ServicePort).
		Msg("stake server listening")
	return errors.Wrap(apiServer.Run(config.ServicePort), "api server")
}
