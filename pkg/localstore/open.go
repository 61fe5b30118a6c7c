package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/pdv-terminal/pkg/config"
	"github.com/angelmondragon/pdv-terminal/pkg/db"
	"github.com/angelmondragon/pdv-terminal/pkg/logger"
	"github.com/angelmondragon/pdv-terminal/pkg/migrate"
	pkgredis "github.com/angelmondragon/pdv-terminal/pkg/redis"
)

// Open builds the backend selected by cfg.Store. The returned func releases
// the underlying connection.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Backend, func() error, error) {
	namespace := cfg.Store.Namespace
	switch strings.ToLower(cfg.Store.Driver) {
	case config.StoreDriverMemory:
		return NewMemory(namespace), func() error { return nil }, nil

	case config.StoreDriverRedis:
		client, err := pkgredis.New(ctx, cfg.Redis, namespace, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("open redis state store: %w", err)
		}
		return NewRedis(client), client.Close, nil

	case config.StoreDriverSQLite, config.StoreDriverPostgres:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("open sql state store: %w", err)
		}
		if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return NewSQL(client, namespace), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported state store driver %q", cfg.Store.Driver)
}
