// Package app wires configuration into a running auth service.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/adapters/tokenizer"
	"github.com/layer-3/walletauth/adapters/verifier"
	"github.com/layer-3/walletauth/config"
	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/internal/logging"
	"github.com/layer-3/walletauth/internal/sweeper"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transport "github.com/layer-3/walletauth/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
)

// App holds the wired components
type App struct {
	Auth    *service.AuthService
	Router  *gin.Engine
	Sweeper *sweeper.Worker

	closers []func() error
}

type stores struct {
	challenges  ports.ChallengeStore
	sessions    ports.SessionStore
	revocations ports.RevocationStore
	sweepers    map[string]ports.Sweeper
}

// New builds the application described by cfg
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	a := &App{}
	clock := core.SystemClock{}

	var client redis.UniversalClient
	if cfg.Store.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.Store.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		c := redis.NewClient(opts)
		a.closers = append(a.closers, c.Close)
		client = c
	}

	s, err := a.openStores(ctx, cfg.Store, client, clock)
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions, err := newSessionManager(cfg.Session, s, clock, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := a.newPublisher(cfg.Events, client, clock, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	challenges := service.NewChallengeService(
		s.challenges,
		verifier.NewEthVerifier(),
		clock,
		log,
		service.ChallengeConfig{TTL: cfg.Challenge.TTL, MessagePrefix: cfg.Challenge.Prefix},
	)

	a.Auth = service.NewAuthService(challenges, sessions, publisher, log)
	a.Router = transport.SetupRouter(a.Auth, transport.CookieConfig{
		Name:   cfg.HTTP.CookieName,
		Secure: cfg.HTTP.CookieSecure,
	}, log)
	a.Sweeper = sweeper.New(s.sweepers, cfg.Store.SweepInterval, log)

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg config.StoreConfig, client redis.UniversalClient, clock ports.Clock) (*stores, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		if client == nil {
			return nil, errors.New("redis backend requires a redis url")
		}
		// redis expires keys natively
		return &stores{
			challenges:  store.NewRedisChallengeStore(client),
			sessions:    store.NewRedisSessionStore(client, clock),
			revocations: store.NewRedisRevocationStore(client),
		}, nil

	case config.BackendSQL:
		db, err := OpenDB(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)

		challenges := store.NewSQLChallengeStore(db, clock)
		sessions := store.NewSQLSessionStore(db, clock)
		revocations := store.NewSQLRevocationStore(db, clock)
		return &stores{
			challenges:  challenges,
			sessions:    sessions,
			revocations: revocations,
			sweepers: map[string]ports.Sweeper{
				"challenges":  challenges,
				"sessions":    sessions,
				"revocations": revocations,
			},
		}, nil

	default:
		challenges := store.NewMemoryChallengeStore(clock)
		sessions := store.NewMemorySessionStore(clock)
		revocations := store.NewMemoryRevocationStore(clock)
		return &stores{
			challenges:  challenges,
			sessions:    sessions,
			revocations: revocations,
			sweepers: map[string]ports.Sweeper{
				"challenges":  challenges,
				"sessions":    sessions,
				"revocations": revocations,
			},
		}, nil
	}
}

// OpenDB opens the sqlite database at dsn and creates missing tables
func OpenDB(ctx context.Context, dsn string) (*bun.DB, error) {
	db, err := store.OpenSQLite(dsn)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newSessionManager(cfg config.SessionConfig, s *stores, clock ports.Clock, log logrus.FieldLogger) (ports.SessionManager, error) {
	if cfg.Strategy != config.SessionStrategyJWT {
		return service.NewStoreSessionManager(s.sessions, clock, cfg.TTL), nil
	}

	pemBytes, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}
	key, err := tokenizer.LoadPrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}

	return service.NewTokenSessionManager(
		tokenizer.NewJWTTokenizer(key, clock),
		s.revocations,
		clock,
		log,
		cfg.TTL,
	), nil
}

func (a *App) newPublisher(cfg config.EventsConfig, client redis.UniversalClient, clock ports.Clock, log logrus.FieldLogger) (ports.EventPublisher, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, nil
	}
	if client == nil {
		return nil, config.ErrEventsNeedRedis
	}

	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logging.NewWatermillAdapter(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	return events.NewWatermillPublisher(publisher, cfg.Topic, clock), nil
}

// Close releases connections in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
