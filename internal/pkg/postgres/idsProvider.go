package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// DBIdsProvider provides expired request IDs from postgresql
type DBIdsProvider struct {
	pool         Pool
	expiresAfter time.Duration
	now          func() time.Time
}

// NewDBIdsProvider creates provider instance
func NewDBIdsProvider(pool Pool, expiresAfter time.Duration) (*DBIdsProvider, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	if expiresAfter <= 0 {
		return nil, fmt.Errorf("wrong expire duration %v", expiresAfter)
	}
	res := &DBIdsProvider{pool: pool, expiresAfter: expiresAfter, now: time.Now}
	return res, nil
}

// GetExpired returns IDs of requests older than expire duration
func (db *DBIdsProvider) GetExpired(ctx context.Context) ([]string, error) {
	exp := db.now().Add(-db.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Msg("selecting old records...")
	rows, err := db.pool.Query(ctx, `SELECT id FROM requests WHERE created < $1`, exp)
	if err != nil {
		return nil, fmt.Errorf("can't select IDs: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve IDs: %w", err)
		}
		res = append(res, id)
	}
	return res, rows.Err()
}
