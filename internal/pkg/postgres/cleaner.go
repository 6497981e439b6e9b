package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
)

// Cleaner cleans all records related with ID
type Cleaner struct {
	pool   Pool
	tables []string
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool Pool) (*Cleaner, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &Cleaner{pool: pool, tables: []string{"status", "requests"}}
	return res, nil
}

// Clean deletes async request data, diaries are kept
func (db *Cleaner) Clean(ctx context.Context, id string) error {
	for _, t := range db.tables {
		cmd, err := db.pool.Exec(ctx, `DELETE FROM `+t+` WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("can't delete %s(%s): %w", id, t, err)
		}
		goapp.Log.Info().Str("ID", id).Str("table", t).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	}
	return nil
}
