package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations run in order, exactly once each, tracked by schema_version.
// Timestamps are unix milliseconds.
var migrations = []string{
	`
CREATE TABLE IF NOT EXISTS users (
	id TEXT NOT NULL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar TEXT NOT NULL DEFAULT '',
	profile_bg TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	theme_color TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT NOT NULL PRIMARY KEY,
	author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind TEXT NOT NULL DEFAULT 'text',
	content TEXT NOT NULL DEFAULT '',
	media TEXT NOT NULL DEFAULT '[]',
	tags TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (post_id, user_id)
);

CREATE TABLE IF NOT EXISTS post_reposts (
	post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (post_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id TEXT NOT NULL PRIMARY KEY,
	post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);

CREATE TABLE IF NOT EXISTS follows (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	target_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, target_id),
	CHECK (user_id <> target_id)
);
CREATE INDEX IF NOT EXISTS idx_follows_target_id ON follows(target_id);
`,
	`
CREATE TABLE IF NOT EXISTS external_actions (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	external_id TEXT NOT NULL,
	action TEXT NOT NULL CHECK (action IN ('like', 'repost')),
	created_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, external_id, action)
);
`,
}

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		slog.Info("applied migration", slog.Int("version", i+1))
	}
	return nil
}

// SchemaVersion reports the highest applied migration.
func (db *DB) SchemaVersion() (int, error) {
	var v int
	err := db.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&v)
	return v, err
}
