package db

import (
	"context"
	"database/sql"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertFollow     = `INSERT OR IGNORE INTO follows(user_id, target_id, created_at) VALUES (?, ?, ?)`
	sqlDeleteFollow     = `DELETE FROM follows WHERE user_id = ? AND target_id = ?`
	sqlSelectFollowing  = `SELECT target_id FROM follows WHERE user_id = ? ORDER BY created_at, rowid`
	sqlSelectUserExists = `SELECT 1 FROM users WHERE id = ?`
)

// Follow adds targetId to the follow set of userId. Following twice is a no-op.
func (db *DB) Follow(ctx context.Context, userId, targetId uuid.UUID) error {
	if userId == targetId {
		return domain.ErrSelfFollow
	}
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		var one int
		if err := tx.QueryRowContext(ctx, sqlSelectUserExists, targetId.String()).Scan(&one); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, sqlInsertFollow, userId.String(), targetId.String(), toMillis(now()))
		return err
	})
	if err != nil {
		return notFoundOr("follow", err)
	}
	return nil
}

func (db *DB) Unfollow(ctx context.Context, userId, targetId uuid.UUID) error {
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlDeleteFollow, userId.String(), targetId.String())
		return err
	})
	return domain.Authoritative("unfollow", err)
}

func (db *DB) FollowingIds(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	ids, err := followingIds(ctx, db.db, userId)
	if err != nil {
		return nil, domain.Authoritative("following ids", err)
	}
	return ids, nil
}

func followingIds(ctx context.Context, q querier, userId uuid.UUID) ([]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, sqlSelectFollowing, userId.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
