package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a pgx pool for url. With traceConn the connection lifecycle is logged
func NewPool(ctx context.Context, url string, traceConn bool) (*pgxpool.Pool, error) {
	cfg, err := newPoolConfig(url, traceConn)
	if err != nil {
		return nil, err
	}
	res, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("can't init db pool: %w", err)
	}
	return res, nil
}

func newPoolConfig(url string, traceConn bool) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("no db url")
	}
	res, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("can't parse db url: %w", err)
	}
	goapp.Log.Info().Int32("max_conn", res.MaxConns).Int32("min_conn", res.MinConns).Msg("db info")
	if traceConn {
		addConnLog(res)
	}
	return res, nil
}

func addConnLog(cfg *pgxpool.Config) {
	cfg.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		goapp.Log.Debug().Str("host", cc.Host).Msg("before connect")
		return nil
	}
	cfg.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		goapp.Log.Debug().Msg("after connect")
		return nil
	}
	cfg.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		goapp.Log.Debug().Msg("before acquire")
		return true
	}
	cfg.AfterRelease = func(c *pgx.Conn) bool {
		goapp.Log.Debug().Msg("after release")
		return true
	}
}
