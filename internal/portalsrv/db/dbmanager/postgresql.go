// Package dbmanager opens and verifies the warehouse connection pool.
package dbmanager

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"github.com/worlddata/portalsrv/internal/portalsrv/config"
)

const (
	maxOpenConns    = 10
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// NewWarehousePool opens the configured Postgres warehouse and pings it until
// it responds. The retry loop covers the usual case where the database
// container comes up slower than the server.
func NewWarehousePool(ctx context.Context) (*sql.DB, error) {
	dsn := config.Config().Dsn()

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open warehouse db")
		return nil, err
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)

	err = retry.Do(
		func() error {
			return sqlDB.PingContext(ctx)
		},
		retry.Context(ctx),
		retry.Attempts(5),
		retry.Delay(2*time.Second),
		retry.DelayType(retry.FixedDelay),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Uint("attempt", n+1).Err(err).Msg("warehouse ping failed, retrying")
		}),
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping warehouse db")
		sqlDB.Close()
		return nil, err
	}

	return sqlDB, nil
}
