package db

import (
	"context"
	"database/sql"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
)

const (
	userColumns = `id, name, email, password_hash, avatar, profile_bg, bio, website, location, theme_color, created_at, updated_at`

	sqlInsertUser        = `INSERT INTO users(` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectUserById    = `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	sqlSelectUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	sqlSelectUsersExcept = `SELECT ` + userColumns + ` FROM users WHERE id <> ? ORDER BY name COLLATE NOCASE`
	sqlSelectUsersByIds  = `SELECT ` + userColumns + ` FROM users WHERE id IN (%s) ORDER BY name COLLATE NOCASE`
	sqlUpdateProfile     = `UPDATE users SET name = ?, avatar = ?, profile_bg = ?, bio = ?, website = ?, location = ?, theme_color = ?, updated_at = ? WHERE id = ?`
)

func (db *DB) CreateUser(ctx context.Context, u *domain.User) error {
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, sqlInsertUser,
			u.Id.String(), u.Name, domain.NormalizeEmail(u.Email), u.PasswordHash,
			u.Avatar, u.ProfileBg, u.Bio, u.Website, u.Location, u.ThemeColor,
			toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
		return err
	})
	if isUniqueViolation(err) {
		return domain.ErrUserExists
	}
	return domain.Authoritative("create user", err)
}

func (db *DB) UserById(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx, sqlSelectUserById, id.String()))
	if err != nil {
		return nil, notFoundOr("user by id", err)
	}
	if err := db.loadRelations(ctx, db.db, u); err != nil {
		return nil, domain.Authoritative("user by id", err)
	}
	return u, nil
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx, sqlSelectUserByEmail, domain.NormalizeEmail(email)))
	if err != nil {
		return nil, notFoundOr("user by email", err)
	}
	if err := db.loadRelations(ctx, db.db, u); err != nil {
		return nil, domain.Authoritative("user by email", err)
	}
	return u, nil
}

func (db *DB) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	var user *domain.User
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, sqlSelectUserById, id.String()))
		if err != nil {
			return err
		}
		update.Apply(u)
		u.UpdatedAt = now()
		if _, err := tx.ExecContext(ctx, sqlUpdateProfile,
			u.Name, u.Avatar, u.ProfileBg, u.Bio, u.Website, u.Location, u.ThemeColor,
			toMillis(u.UpdatedAt), id.String()); err != nil {
			return err
		}
		if err := db.loadRelations(ctx, tx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, notFoundOr("update profile", err)
	}
	return user, nil
}

func (db *DB) ListUsersExcept(ctx context.Context, id uuid.UUID) ([]domain.User, error) {
	rows, err := db.db.QueryContext(ctx, sqlSelectUsersExcept, id.String())
	if err != nil {
		return nil, domain.Authoritative("list users", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, domain.Authoritative("list users", err)
	}
	return users, nil
}

func (db *DB) UsersByIds(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	rows, err := db.db.QueryContext(ctx, inQuery(sqlSelectUsersByIds, len(ids)), idArgs(ids)...)
	if err != nil {
		return nil, domain.Authoritative("users by ids", err)
	}
	users, err := scanUsers(rows)
	if err != nil {
		return nil, domain.Authoritative("users by ids", err)
	}
	return users, nil
}

// loadRelations fills the follow and external action sets of u.
func (db *DB) loadRelations(ctx context.Context, q querier, u *domain.User) error {
	following, err := followingIds(ctx, q, u.Id)
	if err != nil {
		return err
	}
	liked, reposted, err := externalActions(ctx, q, u.Id)
	if err != nil {
		return err
	}
	u.Following = following
	u.LikedExternal = liked
	u.RepostedExternal = reposted
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u                domain.User
		id               string
		created, updated int64
	)
	err := row.Scan(&id, &u.Name, &u.Email, &u.PasswordHash,
		&u.Avatar, &u.ProfileBg, &u.Bio, &u.Website, &u.Location, &u.ThemeColor,
		&created, &updated)
	if err != nil {
		return nil, err
	}
	if u.Id, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	u.Following = []uuid.UUID{}
	u.LikedExternal = []string{}
	u.RepostedExternal = []string{}
	return &u, nil
}

func scanUsers(rows *sql.Rows) ([]domain.User, error) {
	defer rows.Close()
	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
