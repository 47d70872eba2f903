package rotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type lineageModel struct {
	bun.BaseModel `bun:"table:refresh_lineages,alias:rl"`

	SubjectID  string `bun:"subject_id,pk"`
	State      string `bun:"state,notnull"`
	CurrentFP  string `bun:"current_fp,notnull"`
	PreviousFP string `bun:"previous_fp,notnull"`
	UpdatedAt  int64  `bun:"updated_at,notnull"`
	ExpiresAt  int64  `bun:"expires_at,notnull"`
}

const upsertActiveSQL = `INSERT INTO refresh_lineages (subject_id, state, current_fp, previous_fp, updated_at, expires_at)
VALUES (?, 'active', ?, '', ?, ?)
ON CONFLICT (subject_id) DO UPDATE SET
  previous_fp = refresh_lineages.current_fp,
  current_fp = excluded.current_fp,
  state = 'active',
  updated_at = excluded.updated_at,
  expires_at = excluded.expires_at`

const upsertInvalidatedSQL = `INSERT INTO refresh_lineages (subject_id, state, current_fp, previous_fp, updated_at, expires_at)
VALUES (?, 'invalidated', '', '', ?, ?)
ON CONFLICT (subject_id) DO UPDATE SET
  state = 'invalidated',
  updated_at = excluded.updated_at,
  expires_at = excluded.expires_at`

// SQLStore keeps one row per subject in table refresh_lineages. Rows past expires_at
// read as absent, mirroring the key TTL of [RedisStore].
type SQLStore struct {
	db  bun.IDB
	ttl time.Duration
	now func() time.Time
}

// NewSQLStore creates a [SQLStore] on db. ttl should match the refresh-token lifetime.
func NewSQLStore(db bun.IDB, ttl time.Duration) *SQLStore {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SQLStore{db: db, ttl: ttl, now: time.Now}
}

// CreateSchema creates the lineage table when it does not exist.
func (s *SQLStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*lineageModel)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// GetActive implements [Store].
func (s *SQLStore) GetActive(ctx context.Context, subjectID string) (Record, error) {
	if subjectID == "" {
		return Record{}, ErrInvalidSubject
	}

	var model lineageModel
	err := s.db.NewSelect().
		Model(&model).
		Where("subject_id = ?", subjectID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{SubjectID: subjectID}, nil
		}
		return Record{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if model.ExpiresAt <= s.now().UnixMilli() {
		return Record{SubjectID: subjectID}, nil
	}

	return Record{
		SubjectID: subjectID,
		State:     parseState(model.State),
		Current:   model.CurrentFP,
		Previous:  model.PreviousFP,
		UpdatedAt: time.UnixMilli(model.UpdatedAt),
	}, nil
}

// SetActive implements [Store]. The conditional path is a single UPDATE whose WHERE
// clause carries the expected fingerprint, so the database serializes competing swaps.
func (s *SQLStore) SetActive(ctx context.Context, subjectID, next, expectedPrevious string) (bool, error) {
	if subjectID == "" {
		return false, ErrInvalidSubject
	}
	if next == "" {
		return false, errors.New("rotation: empty fingerprint")
	}

	now := s.now()
	updatedAt := now.UnixMilli()
	expiresAt := now.Add(s.ttl).UnixMilli()

	if expectedPrevious == "" {
		if _, err := s.db.ExecContext(ctx, upsertActiveSQL, subjectID, next, updatedAt, expiresAt); err != nil {
			return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return true, nil
	}

	res, err := s.db.NewUpdate().
		Model((*lineageModel)(nil)).
		Set("previous_fp = current_fp").
		Set("current_fp = ?", next).
		Set("state = ?", StateActive.String()).
		Set("updated_at = ?", updatedAt).
		Set("expires_at = ?", expiresAt).
		Where("subject_id = ?", subjectID).
		Where("state = ?", StateActive.String()).
		Where("current_fp = ?", expectedPrevious).
		Where("expires_at > ?", updatedAt).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// InvalidateAll implements [Store].
func (s *SQLStore) InvalidateAll(ctx context.Context, subjectID string) error {
	if subjectID == "" {
		return ErrInvalidSubject
	}

	now := s.now()
	_, err := s.db.ExecContext(ctx, upsertInvalidatedSQL, subjectID, now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Ping checks database reachability.
func (s *SQLStore) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "SELECT 1"); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return time.Since(start), nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
