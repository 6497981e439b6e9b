package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/airenas/soulwhisper/internal/pkg/api"
	"github.com/airenas/soulwhisper/internal/pkg/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of pgxpool.Pool used by DB
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DB provides operations with postgresql
type DB struct {
	pool Pool
	now  func() time.Time
}

//NewDB creates DB instance
func NewDB(pool Pool) (*DB, error) {
	if pool == nil {
		return nil, fmt.Errorf("no pool")
	}
	res := &DB{pool: pool, now: time.Now}
	return res, nil
}

// SaveDiary stores the pipeline result as a new diary of the user.
// All failures are returned as *api.PersistenceError
func (db *DB) SaveDiary(ctx context.Context, userID string, res *api.Result) (string, error) {
	if res == nil {
		return "", api.NewPersistenceError(fmt.Errorf("no result"))
	}
	d := persistence.NewDiary(userID, res, db.now())
	if err := db.InsertDiary(ctx, d); err != nil {
		return "", api.NewPersistenceError(err)
	}
	return d.ID, nil
}

// InsertDiary inserts diary into DB
func (db *DB) InsertDiary(ctx context.Context, d *persistence.Diary) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO diaries(id, user_id, title, content, mood, intensity, created) 
	VALUES($1, $2, $3, $4, $5, $6, $7)`, d.ID, d.UserID, d.Title, d.Content, d.Mood, d.Intensity, d.Created)
	if err != nil {
		return fmt.Errorf("can't insert diary: %w", err)
	}
	return nil
}

// LoadDiaries loads user diaries created after since, oldest first
func (db *DB) LoadDiaries(ctx context.Context, userID string, since time.Time) ([]*persistence.Diary, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, user_id, title, content, mood, intensity, created FROM diaries
		WHERE user_id = $1 AND created >= $2 ORDER BY created`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("can't load diaries: %w", err)
	}
	defer rows.Close()
	res := []*persistence.Diary{}
	for rows.Next() {
		var d persistence.Diary
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.Content, &d.Mood, &d.Intensity, &d.Created); err != nil {
			return nil, fmt.Errorf("can't scan diary: %w", err)
		}
		res = append(res, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("can't load diaries: %w", err)
	}
	return res, nil
}

// InsertRequest inserts request into DB
func (db *DB) InsertRequest(ctx context.Context, req *persistence.ReqData) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO requests(id, user_id, file_name, request_id, created) 
	VALUES($1, $2, $3, $4, $5)`, req.ID, req.UserID, req.FileName, req.RequestID, req.Created)
	if err != nil {
		return fmt.Errorf("can't insert request: %w", err)
	}
	return nil
}

// LoadRequest loads request from DB
func (db *DB) LoadRequest(ctx context.Context, id string) (*persistence.ReqData, error) {
	var res persistence.ReqData
	err := db.pool.QueryRow(ctx, `SELECT id, user_id, file_name, request_id, created FROM requests
		WHERE id = $1`, id).Scan(&res.ID, &res.UserID, &res.FileName, &res.RequestID, &res.Created)
	if err != nil {
		return nil, fmt.Errorf("can't load request: %w", err)
	}
	return &res, nil
}

// InsertStatus inserts status into DB
func (db *DB) InsertStatus(ctx context.Context, item *persistence.Status) error {
	_, err := db.pool.Exec(ctx, `INSERT INTO status(id, status, created, updated, version) 
	VALUES($1, $2, $3, $3, 1)`, item.ID, item.Status, item.Created)
	if err != nil {
		return fmt.Errorf("can't insert status: %w", err)
	}
	return nil
}

// LoadStatus loads status from DB, returns nil if not found
func (db *DB) LoadStatus(ctx context.Context, id string) (*persistence.Status, error) {
	var res persistence.Status
	err := db.pool.QueryRow(ctx, `SELECT id, status, error_code, error, diary_id, text, emotion, intensity,
		created, updated, version FROM status
		WHERE id = $1`, id).Scan(&res.ID, &res.Status, &res.ErrorCode, &res.Error, &res.DiaryID, &res.Text,
		&res.Emotion, &res.Intensity, &res.Created, &res.Updated, &res.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load status: %w", err)
	}
	return &res, nil
}

// UpdateStatus updates status in DB, fails if the record was changed by others
func (db *DB) UpdateStatus(ctx context.Context, item *persistence.Status) error {
	tag, err := db.pool.Exec(ctx, `UPDATE status SET 
	status = $3, 
	error = $4, 
	error_code = $5,
	diary_id = $6,
	text = $7,
	emotion = $8,
	intensity = $9,
	updated = $10,
	version = $2 + 1 
	WHERE id = $1 and version = $2`, item.ID, item.Version, item.Status, item.Error, item.ErrorCode,
		item.DiaryID, item.Text, item.Emotion, item.Intensity, db.now())
	if err != nil {
		return fmt.Errorf("can't update status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("can't update status, no records found")
	}
	item.Version++
	return nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'diaries')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
