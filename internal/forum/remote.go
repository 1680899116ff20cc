package forum

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/zetareticula/forumsync/internal/model"
	"github.com/zetareticula/forumsync/internal/store/cassandra"
	"github.com/zetareticula/forumsync/internal/store/mock"
	"github.com/zetareticula/forumsync/internal/store/redis"
	"github.com/zetareticula/forumsync/internal/store/sqlstore"
)

// Backend is an opened remote store and the resources behind it.
type Backend struct {
	model.Remote
	closers []func() error
}

// Close releases every connection of the backend.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// OpenRemote connects to the store named by cfg, wrapped in the Redis
// read-through cache when enabled.
func OpenRemote(ctx context.Context, cfg *Config, log logr.Logger) (*Backend, error) {
	b := &Backend{}
	switch cfg.Store.Type {
	case StoreMock:
		b.Remote = mock.NewMockStore()
	case StoreCassandra:
		cs, err := cassandra.NewCassandraStore(cassandra.Config{
			Hosts:      cfg.Store.Hosts,
			Keyspace:   cfg.Store.Keyspace,
			MinTries:   cfg.Connection.MinTries,
			RetryDelay: cfg.RetryDelay(),
		}, log.WithName("cassandra"))
		if err != nil {
			return nil, err
		}
		if err := cs.EnsureSchema(ctx); err != nil {
			_ = cs.Close()
			return nil, err
		}
		b.Remote, b.closers = cs, append(b.closers, cs.Close)
	case StoreSQLite, StorePostgres:
		dialect := sqlstore.SQLite
		if cfg.Store.Type == StorePostgres {
			dialect = sqlstore.Postgres
		}
		ss, err := sqlstore.Open(ctx, dialect, cfg.Store.DSN, log.WithName("sql"))
		if err != nil {
			return nil, err
		}
		b.Remote, b.closers = ss, append(b.closers, ss.Close)
	default:
		return nil, fmt.Errorf("%w: unknown store.type %q", ErrInvalidConfig, cfg.Store.Type)
	}

	if cfg.Redis.Enabled {
		rc := redis.NewRedisCache(cfg.Redis.Addr, cfg.Redis.DB)
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			_ = b.Close()
			return nil, &model.TransportError{Op: "connect redis", Err: err}
		}
		b.Remote = redis.NewReadThrough(b.Remote, rc, cfg.RedisTTL(), log.WithName("redis"))
		b.closers = append(b.closers, rc.Close)
	}
	log.Info("remote store opened", "type", cfg.Store.Type, "redis", cfg.Redis.Enabled)
	return b, nil
}
