package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
)

const (
	sqlInsertExternalAction  = `INSERT OR IGNORE INTO external_actions(user_id, external_id, action, created_at) VALUES (?, ?, ?, ?)`
	sqlDeleteExternalAction  = `DELETE FROM external_actions WHERE user_id = ? AND external_id = ? AND action = ?`
	sqlSelectExternalActions = `SELECT external_id, action FROM external_actions WHERE user_id = ? ORDER BY created_at, rowid`
)

func validExternal(externalId string, action ExternalAction) error {
	if strings.TrimSpace(externalId) == "" {
		return domain.NewValidationError(domain.ReasonInvalidInput, "external post id is required")
	}
	if action != ExternalLike && action != ExternalRepost {
		return domain.NewValidationError(domain.ReasonInvalidInput, "unknown external action %q", action)
	}
	return nil
}

func (db *DB) AddExternalAction(ctx context.Context, userId uuid.UUID, externalId string, action ExternalAction) error {
	if err := validExternal(externalId, action); err != nil {
		return err
	}
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertExternalAction, userId.String(), externalId, string(action), toMillis(now()))
		return err
	})
	return domain.Authoritative("add external action", err)
}

func (db *DB) RemoveExternalAction(ctx context.Context, userId uuid.UUID, externalId string, action ExternalAction) error {
	if err := validExternal(externalId, action); err != nil {
		return err
	}
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlDeleteExternalAction, userId.String(), externalId, string(action))
		return err
	})
	return domain.Authoritative("remove external action", err)
}

func (db *DB) ExternalActions(ctx context.Context, userId uuid.UUID) ([]string, []string, error) {
	liked, reposted, err := externalActions(ctx, db.db, userId)
	if err != nil {
		return nil, nil, domain.Authoritative("external actions", err)
	}
	return liked, reposted, nil
}

func externalActions(ctx context.Context, q querier, userId uuid.UUID) ([]string, []string, error) {
	rows, err := q.QueryContext(ctx, sqlSelectExternalActions, userId.String())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	liked, reposted := []string{}, []string{}
	for rows.Next() {
		var id, action string
		if err := rows.Scan(&id, &action); err != nil {
			return nil, nil, err
		}
		switch ExternalAction(action) {
		case ExternalLike:
			liked = append(liked, id)
		case ExternalRepost:
			reposted = append(reposted, id)
		}
	}
	return liked, reposted, rows.Err()
}
