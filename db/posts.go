package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
)

const (
	sqlSelectPosts = `SELECT posts.id, posts.author_id, users.name, users.avatar, posts.kind, posts.content,
                                posts.media, posts.tags, posts.created_at, posts.updated_at FROM posts
                                INNER JOIN users ON users.id = posts.author_id`
	sqlOrderPosts = ` ORDER BY posts.created_at DESC, posts.rowid DESC`

	sqlSelectPostById       = sqlSelectPosts + ` WHERE posts.id = ?`
	sqlSelectAllPosts       = sqlSelectPosts + sqlOrderPosts
	sqlSelectPostsByAuthors = sqlSelectPosts + ` WHERE posts.author_id IN (%s)` + sqlOrderPosts

	sqlInsertPost       = `INSERT INTO posts(id, author_id, kind, content, media, tags, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	sqlUpdatePost       = `UPDATE posts SET content = ?, tags = ?, updated_at = ? WHERE id = ?`
	sqlDeletePost       = `DELETE FROM posts WHERE id = ?`
	sqlSelectPostAuthor = `SELECT author_id FROM posts WHERE id = ?`
	sqlSelectAuthor     = `SELECT name, avatar FROM users WHERE id = ?`

	sqlInsertLike  = `INSERT INTO post_likes(post_id, user_id, created_at) VALUES (?, ?, ?)`
	sqlDeleteLike  = `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`
	sqlSelectLikes = `SELECT post_id, user_id FROM post_likes WHERE post_id IN (%s) ORDER BY created_at, rowid`

	sqlInsertRepost  = `INSERT OR IGNORE INTO post_reposts(post_id, user_id, created_at) VALUES (?, ?, ?)`
	sqlSelectReposts = `SELECT post_id, user_id FROM post_reposts WHERE post_id IN (%s) ORDER BY created_at, rowid`

	sqlInsertComment  = `INSERT INTO comments(id, post_id, author_id, text, created_at) VALUES (?, ?, ?, ?, ?)`
	sqlSelectComments = `SELECT comments.id, comments.post_id, comments.author_id, users.name, users.avatar, comments.text, comments.created_at
                                FROM comments INNER JOIN users ON users.id = comments.author_id
                                WHERE comments.post_id IN (%s) ORDER BY comments.created_at, comments.rowid`
)

func (db *DB) CreatePost(ctx context.Context, p domain.NewPost) (*domain.Post, error) {
	if p.Kind == "" {
		p.Kind = domain.KindText
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	media := p.MediaFiles
	if media == nil {
		media = []domain.MediaFile{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	mediaJson, err := json.Marshal(media)
	if err != nil {
		return nil, err
	}
	tagsJson, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}

	created := now()
	post := &domain.Post{
		Id:         uuid.New(),
		Author:     domain.UserSummary{Id: p.AuthorId},
		Kind:       p.Kind,
		Content:    p.Content,
		MediaFiles: media,
		Tags:       tags,
		Likes:      []uuid.UUID{},
		Comments:   []domain.Comment{},
		Reposts:    []uuid.UUID{},
		CreatedAt:  created,
		UpdatedAt:  created,
	}

	err = db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, sqlSelectAuthor, p.AuthorId.String()).
			Scan(&post.Author.Name, &post.Author.Avatar); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, sqlInsertPost, post.Id.String(), p.AuthorId.String(), string(p.Kind),
			p.Content, string(mediaJson), string(tagsJson), toMillis(created), toMillis(created))
		return err
	})
	if err != nil {
		return nil, notFoundOr("create post", err)
	}
	return post, nil
}

func (db *DB) PostById(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	post, err := scanPost(db.db.QueryRowContext(ctx, sqlSelectPostById, id.String()))
	if err != nil {
		return nil, notFoundOr("post by id", err)
	}
	posts := []domain.Post{*post}
	if err := hydrate(ctx, db.db, posts); err != nil {
		return nil, domain.Authoritative("post by id", err)
	}
	return &posts[0], nil
}

// AllPosts returns every post, newest first.
func (db *DB) AllPosts(ctx context.Context) ([]domain.Post, error) {
	return db.queryPosts(ctx, "all posts", sqlSelectAllPosts)
}

// PostsByAuthors returns the posts written by any of authorIds, newest first.
func (db *DB) PostsByAuthors(ctx context.Context, authorIds []uuid.UUID) ([]domain.Post, error) {
	if len(authorIds) == 0 {
		return []domain.Post{}, nil
	}
	return db.queryPosts(ctx, "posts by authors", inQuery(sqlSelectPostsByAuthors, len(authorIds)), idArgs(authorIds)...)
}

func (db *DB) PostsByAuthor(ctx context.Context, authorId uuid.UUID) ([]domain.Post, error) {
	return db.PostsByAuthors(ctx, []uuid.UUID{authorId})
}

func (db *DB) queryPosts(ctx context.Context, op, query string, args ...any) ([]domain.Post, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Authoritative(op, err)
	}
	defer rows.Close()

	posts := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, domain.Authoritative(op, err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Authoritative(op, err)
	}
	if err := hydrate(ctx, db.db, posts); err != nil {
		return nil, domain.Authoritative(op, err)
	}
	return posts, nil
}

// UpdatePost changes content and tags of a post. Empty content and nil tags
// keep the stored values. Only the author may edit.
func (db *DB) UpdatePost(ctx context.Context, id, editorId uuid.UUID, content string, tags []string) (*domain.Post, error) {
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		if err := checkAuthor(ctx, tx, id, editorId); err != nil {
			return err
		}
		post, err := scanPost(tx.QueryRowContext(ctx, sqlSelectPostById, id.String()))
		if err != nil {
			return err
		}
		if strings.TrimSpace(content) != "" {
			post.Content = content
		}
		if tags != nil {
			post.Tags = tags
		}
		tagsJson, err := json.Marshal(post.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, sqlUpdatePost, post.Content, string(tagsJson), toMillis(now()), id.String())
		return err
	})
	if err != nil {
		return nil, notFoundOr("update post", err)
	}
	return db.PostById(ctx, id)
}

func (db *DB) DeletePost(ctx context.Context, id, editorId uuid.UUID) error {
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		if err := checkAuthor(ctx, tx, id, editorId); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, sqlDeletePost, id.String())
		return err
	})
	if err != nil {
		return notFoundOr("delete post", err)
	}
	return nil
}

func (db *DB) ToggleLike(ctx context.Context, postId, userId uuid.UUID) (bool, []uuid.UUID, error) {
	var (
		liked bool
		likes []uuid.UUID
	)
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := postAuthor(ctx, tx, postId); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, sqlDeleteLike, postId.String(), userId.String())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx, sqlInsertLike, postId.String(), userId.String(), toMillis(now())); err != nil {
				return err
			}
			liked = true
		} else {
			liked = false
		}
		sets, err := idSets(ctx, tx, sqlSelectLikes, []string{postId.String()})
		if err != nil {
			return err
		}
		likes = sets[postId]
		return nil
	})
	if err != nil {
		return false, nil, notFoundOr("toggle like", err)
	}
	if likes == nil {
		likes = []uuid.UUID{}
	}
	return liked, likes, nil
}

func (db *DB) AddComment(ctx context.Context, postId, userId uuid.UUID, text string) ([]domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError(domain.ReasonInvalidInput, "comment text is required")
	}

	var comments []domain.Comment
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := postAuthor(ctx, tx, postId); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, sqlInsertComment,
			uuid.New().String(), postId.String(), userId.String(), text, toMillis(now())); err != nil {
			return err
		}
		byPost, err := commentsFor(ctx, tx, []string{postId.String()})
		if err != nil {
			return err
		}
		comments = byPost[postId]
		return nil
	})
	if err != nil {
		return nil, notFoundOr("add comment", err)
	}
	return comments, nil
}

func (db *DB) Repost(ctx context.Context, postId, userId uuid.UUID) ([]uuid.UUID, error) {
	var reposts []uuid.UUID
	err := db.wrapTransaction(ctx, func(tx *sql.Tx) error {
		author, err := postAuthor(ctx, tx, postId)
		if err != nil {
			return err
		}
		if author == userId {
			return domain.ErrSelfRepost
		}
		if _, err := tx.ExecContext(ctx, sqlInsertRepost, postId.String(), userId.String(), toMillis(now())); err != nil {
			return err
		}
		sets, err := idSets(ctx, tx, sqlSelectReposts, []string{postId.String()})
		if err != nil {
			return err
		}
		reposts = sets[postId]
		return nil
	})
	if err != nil {
		return nil, notFoundOr("repost", err)
	}
	return reposts, nil
}

func postAuthor(ctx context.Context, q querier, postId uuid.UUID) (uuid.UUID, error) {
	var author string
	if err := q.QueryRowContext(ctx, sqlSelectPostAuthor, postId.String()).Scan(&author); err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(author)
}

func checkAuthor(ctx context.Context, q querier, postId, editorId uuid.UUID) error {
	author, err := postAuthor(ctx, q, postId)
	if err != nil {
		return err
	}
	if author != editorId {
		return domain.ErrForbidden
	}
	return nil
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p                domain.Post
		id, authorId     string
		kind             string
		media, tags      string
		created, updated int64
	)
	err := row.Scan(&id, &authorId, &p.Author.Name, &p.Author.Avatar, &kind, &p.Content,
		&media, &tags, &created, &updated)
	if err != nil {
		return nil, err
	}
	if p.Id, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if p.Author.Id, err = uuid.Parse(authorId); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(media), &p.MediaFiles); err != nil {
		return nil, fmt.Errorf("post %s media: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("post %s tags: %w", id, err)
	}
	if p.MediaFiles == nil {
		p.MediaFiles = []domain.MediaFile{}
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Kind = domain.PostKind(kind)
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	p.Likes = []uuid.UUID{}
	p.Comments = []domain.Comment{}
	p.Reposts = []uuid.UUID{}
	return &p, nil
}

// hydrate loads likes, reposts and comments for posts in three queries.
func hydrate(ctx context.Context, q querier, posts []domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, len(posts))
	for i := range posts {
		ids[i] = posts[i].Id.String()
	}

	likes, err := idSets(ctx, q, sqlSelectLikes, ids)
	if err != nil {
		return err
	}
	reposts, err := idSets(ctx, q, sqlSelectReposts, ids)
	if err != nil {
		return err
	}
	comments, err := commentsFor(ctx, q, ids)
	if err != nil {
		return err
	}

	for i := range posts {
		id := posts[i].Id
		if l, ok := likes[id]; ok {
			posts[i].Likes = l
		}
		if r, ok := reposts[id]; ok {
			posts[i].Reposts = r
		}
		if c, ok := comments[id]; ok {
			posts[i].Comments = c
		}
	}
	return nil
}

// idSets runs a (post_id, user_id) query and groups the user ids per post.
func idSets(ctx context.Context, q querier, query string, postIds []string) (map[uuid.UUID][]uuid.UUID, error) {
	rows, err := q.QueryContext(ctx, inQuery(query, len(postIds)), stringArgs(postIds)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := make(map[uuid.UUID][]uuid.UUID)
	for rows.Next() {
		var postId, userId string
		if err := rows.Scan(&postId, &userId); err != nil {
			return nil, err
		}
		pid, err := uuid.Parse(postId)
		if err != nil {
			return nil, err
		}
		uid, err := uuid.Parse(userId)
		if err != nil {
			return nil, err
		}
		sets[pid] = append(sets[pid], uid)
	}
	return sets, rows.Err()
}

func commentsFor(ctx context.Context, q querier, postIds []string) (map[uuid.UUID][]domain.Comment, error) {
	rows, err := q.QueryContext(ctx, inQuery(sqlSelectComments, len(postIds)), stringArgs(postIds)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byPost := make(map[uuid.UUID][]domain.Comment)
	for rows.Next() {
		var (
			c                    domain.Comment
			id, postId, authorId string
			created              int64
		)
		if err := rows.Scan(&id, &postId, &authorId, &c.Author.Name, &c.Author.Avatar, &c.Text, &created); err != nil {
			return nil, err
		}
		if c.Id, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if c.Author.Id, err = uuid.Parse(authorId); err != nil {
			return nil, err
		}
		pid, err := uuid.Parse(postId)
		if err != nil {
			return nil, err
		}
		c.CreatedAt = fromMillis(created)
		byPost[pid] = append(byPost[pid], c)
	}
	return byPost, rows.Err()
}

func inQuery(query string, n int) string {
	return fmt.Sprintf(query, placeholders(n))
}

func idArgs(ids []uuid.UUID) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return args
}

func stringArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}
