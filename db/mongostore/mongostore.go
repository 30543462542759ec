// Package mongostore implements db.Store on MongoDB. Social sets live inside
// the post and user documents and are mutated with $addToSet, $pull and $push.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deemkeen/reblog/db"
	"github.com/deemkeen/reblog/domain"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection = "users"
	postsCollection = "posts"
)

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

var _ db.Store = (*Store)(nil)

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("mongo uri not set")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	mdb := client.Database(database)
	s := &Store{
		client: client,
		users:  mdb.Collection(usersCollection),
		posts:  mdb.Collection(postsCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	slog.Info("mongo connected", slog.String("database", database))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating post indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// Drop removes both collections. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.users.Drop(ctx); err != nil {
		return err
	}
	return s.posts.Drop(ctx)
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return domain.Authoritative(op, err)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.users.InsertOne(ctx, newUserDoc(u))
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrUserExists
	}
	return domain.Authoritative("create user", err)
}

func (s *Store) findUser(ctx context.Context, op string, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFoundOr(op, err)
	}
	u, err := doc.toDomain()
	if err != nil {
		return nil, domain.Authoritative(op, err)
	}
	return u, nil
}

func (s *Store) UserById(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.findUser(ctx, "user by id", bson.M{"_id": id.String()})
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "user by email", bson.M{"email": domain.NormalizeEmail(email)})
}

func profileSet(update domain.ProfileUpdate) bson.M {
	set := bson.M{"updatedAt": now()}
	if update.Name != nil && strings.TrimSpace(*update.Name) != "" {
		set["name"] = strings.TrimSpace(*update.Name)
	}
	fields := map[string]*string{
		"avatar":     update.Avatar,
		"profileBg":  update.ProfileBg,
		"bio":        update.Bio,
		"website":    update.Website,
		"location":   update.Location,
		"themeColor": update.ThemeColor,
	}
	for k, v := range fields {
		if v != nil {
			set[k] = *v
		}
	}
	return set
}

func (s *Store) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc userDoc
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": profileSet(update)}, opts).Decode(&doc)
	if err != nil {
		return nil, notFoundOr("update profile", err)
	}
	u, err := doc.toDomain()
	if err != nil {
		return nil, domain.Authoritative("update profile", err)
	}
	return u, nil
}

func (s *Store) findUsers(ctx context.Context, op string, filter bson.M) ([]domain.User, error) {
	cur, err := s.users.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, domain.Authoritative(op, err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Authoritative(op, err)
	}
	users := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		u, err := d.toDomain()
		if err != nil {
			return nil, domain.Authoritative(op, err)
		}
		users = append(users, *u)
	}
	return users, nil
}

func (s *Store) ListUsersExcept(ctx context.Context, id uuid.UUID) ([]domain.User, error) {
	return s.findUsers(ctx, "list users", bson.M{"_id": bson.M{"$ne": id.String()}})
}

func (s *Store) UsersByIds(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	return s.findUsers(ctx, "users by ids", bson.M{"_id": bson.M{"$in": idStrings(ids)}})
}

// Follows

func (s *Store) Follow(ctx context.Context, userId, targetId uuid.UUID) error {
	if userId == targetId {
		return domain.ErrSelfFollow
	}
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": targetId.String()})
	if err != nil {
		return domain.Authoritative("follow", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return s.updateUserSet(ctx, "follow", userId, "$addToSet", "following", targetId.String())
}

func (s *Store) Unfollow(ctx context.Context, userId, targetId uuid.UUID) error {
	return s.updateUserSet(ctx, "unfollow", userId, "$pull", "following", targetId.String())
}

func (s *Store) FollowingIds(ctx context.Context, userId uuid.UUID) ([]uuid.UUID, error) {
	u, err := s.UserById(ctx, userId)
	if err != nil {
		return nil, err
	}
	return u.Following, nil
}

func (s *Store) updateUserSet(ctx context.Context, op string, userId uuid.UUID, operator, field, value string) error {
	res, err := s.users.UpdateOne(ctx, bson.M{"_id": userId.String()}, bson.M{operator: bson.M{field: value}})
	if err != nil {
		return domain.Authoritative(op, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// External actions

func externalField(action db.ExternalAction) (string, error) {
	switch action {
	case db.ExternalLike:
		return "likedTumblrPosts", nil
	case db.ExternalRepost:
		return "repostedTumblrPosts", nil
	}
	return "", domain.NewValidationError(domain.ReasonInvalidInput, "unknown external action %q", action)
}

func (s *Store) externalAction(ctx context.Context, operator string, userId uuid.UUID, externalId string, action db.ExternalAction) error {
	if strings.TrimSpace(externalId) == "" {
		return domain.NewValidationError(domain.ReasonInvalidInput, "external post id is required")
	}
	field, err := externalField(action)
	if err != nil {
		return err
	}
	return s.updateUserSet(ctx, "external action", userId, operator, field, externalId)
}

func (s *Store) AddExternalAction(ctx context.Context, userId uuid.UUID, externalId string, action db.ExternalAction) error {
	return s.externalAction(ctx, "$addToSet", userId, externalId, action)
}

func (s *Store) RemoveExternalAction(ctx context.Context, userId uuid.UUID, externalId string, action db.ExternalAction) error {
	return s.externalAction(ctx, "$pull", userId, externalId, action)
}

func (s *Store) ExternalActions(ctx context.Context, userId uuid.UUID) ([]string, []string, error) {
	u, err := s.UserById(ctx, userId)
	if err != nil {
		return nil, nil, err
	}
	return u.LikedExternal, u.RepostedExternal, nil
}

// Posts

func (s *Store) CreatePost(ctx context.Context, p domain.NewPost) (*domain.Post, error) {
	if p.Kind == "" {
		p.Kind = domain.KindText
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	author, err := s.UserById(ctx, p.AuthorId)
	if err != nil {
		return nil, err
	}

	created := now()
	doc := postDoc{
		Id:       uuid.NewString(),
		AuthorId: p.AuthorId.String(),
		Kind:     string(p.Kind),
		Content:  p.Content,
		MediaFiles: lo.Map(p.MediaFiles, func(m domain.MediaFile, _ int) mediaDoc {
			return mediaDoc{Url: m.Url, Kind: m.Kind, OriginalName: m.OriginalName}
		}),
		Tags:      nonNil(p.Tags),
		Likes:     []string{},
		Comments:  []commentDoc{},
		Reposts:   []string{},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return nil, domain.Authoritative("create post", err)
	}

	post, err := doc.toDomain(map[string]domain.UserSummary{doc.AuthorId: author.Summary()})
	if err != nil {
		return nil, domain.Authoritative("create post", err)
	}
	return &post, nil
}

func (s *Store) PostById(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	var doc postDoc
	if err := s.posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc); err != nil {
		return nil, notFoundOr("post by id", err)
	}
	posts, err := s.resolve(ctx, []postDoc{doc})
	if err != nil {
		return nil, domain.Authoritative("post by id", err)
	}
	return &posts[0], nil
}

func (s *Store) AllPosts(ctx context.Context) ([]domain.Post, error) {
	return s.findPosts(ctx, "all posts", bson.M{})
}

func (s *Store) PostsByAuthors(ctx context.Context, authorIds []uuid.UUID) ([]domain.Post, error) {
	if len(authorIds) == 0 {
		return []domain.Post{}, nil
	}
	return s.findPosts(ctx, "posts by authors", bson.M{"user": bson.M{"$in": idStrings(authorIds)}})
}

func (s *Store) PostsByAuthor(ctx context.Context, authorId uuid.UUID) ([]domain.Post, error) {
	return s.PostsByAuthors(ctx, []uuid.UUID{authorId})
}

func (s *Store) findPosts(ctx context.Context, op string, filter bson.M) ([]domain.Post, error) {
	cur, err := s.posts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, domain.Authoritative(op, err)
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, domain.Authoritative(op, err)
	}
	posts, err := s.resolve(ctx, docs)
	if err != nil {
		return nil, domain.Authoritative(op, err)
	}
	return posts, nil
}

// resolve converts docs, loading the summaries of post and comment authors
// in one query.
func (s *Store) resolve(ctx context.Context, docs []postDoc) ([]domain.Post, error) {
	var ids []string
	for _, d := range docs {
		ids = append(ids, d.AuthorId)
		for _, c := range d.Comments {
			ids = append(ids, c.AuthorId)
		}
	}
	authors, err := s.summaries(ctx, lo.Uniq(ids))
	if err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain(authors)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *Store) summaries(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1, "avatar": 1})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		id, err := uuid.Parse(d.Id)
		if err != nil {
			return nil, err
		}
		out[d.Id] = domain.UserSummary{Id: id, Name: d.Name, Avatar: d.Avatar}
	}
	return out, nil
}

// checkAuthor returns ErrNotFound for a missing post and ErrForbidden when
// editorId is not its author.
func (s *Store) checkAuthor(ctx context.Context, postId, editorId uuid.UUID) error {
	var doc postDoc
	opts := options.FindOne().SetProjection(bson.M{"user": 1})
	if err := s.posts.FindOne(ctx, bson.M{"_id": postId.String()}, opts).Decode(&doc); err != nil {
		return notFoundOr("post author", err)
	}
	if doc.AuthorId != editorId.String() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Store) UpdatePost(ctx context.Context, id, editorId uuid.UUID, content string, tags []string) (*domain.Post, error) {
	set := bson.M{"updatedAt": now()}
	if strings.TrimSpace(content) != "" {
		set["content"] = content
	}
	if tags != nil {
		set["tags"] = tags
	}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": id.String(), "user": editorId.String()}, bson.M{"$set": set})
	if err != nil {
		return nil, domain.Authoritative("update post", err)
	}
	if res.MatchedCount == 0 {
		if err := s.checkAuthor(ctx, id, editorId); err != nil {
			return nil, err
		}
	}
	return s.PostById(ctx, id)
}

func (s *Store) DeletePost(ctx context.Context, id, editorId uuid.UUID) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id.String(), "user": editorId.String()})
	if err != nil {
		return domain.Authoritative("delete post", err)
	}
	if res.DeletedCount == 0 {
		return s.checkAuthor(ctx, id, editorId)
	}
	return nil
}

func (s *Store) ToggleLike(ctx context.Context, postId, userId uuid.UUID) (bool, []uuid.UUID, error) {
	pid, uid := postId.String(), userId.String()

	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": pid, "likes": uid}, bson.M{"$pull": bson.M{"likes": uid}})
	if err != nil {
		return false, nil, domain.Authoritative("toggle like", err)
	}
	liked := false
	if res.ModifiedCount == 0 {
		res, err = s.posts.UpdateOne(ctx, bson.M{"_id": pid}, bson.M{"$addToSet": bson.M{"likes": uid}})
		if err != nil {
			return false, nil, domain.Authoritative("toggle like", err)
		}
		if res.MatchedCount == 0 {
			return false, nil, domain.ErrNotFound
		}
		liked = true
	}

	post, err := s.PostById(ctx, postId)
	if err != nil {
		return false, nil, err
	}
	return liked, post.Likes, nil
}

func (s *Store) AddComment(ctx context.Context, postId, userId uuid.UUID, text string) ([]domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError(domain.ReasonInvalidInput, "comment text is required")
	}
	c := commentDoc{Id: uuid.NewString(), AuthorId: userId.String(), Text: text, CreatedAt: now()}
	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": postId.String()}, bson.M{"$push": bson.M{"comments": c}})
	if err != nil {
		return nil, domain.Authoritative("add comment", err)
	}
	if res.MatchedCount == 0 {
		return nil, domain.ErrNotFound
	}
	post, err := s.PostById(ctx, postId)
	if err != nil {
		return nil, err
	}
	return post.Comments, nil
}

func (s *Store) Repost(ctx context.Context, postId, userId uuid.UUID) ([]uuid.UUID, error) {
	uid := userId.String()
	filter := bson.M{"_id": postId.String(), "user": bson.M{"$ne": uid}}
	res, err := s.posts.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"reposts": uid}})
	if err != nil {
		return nil, domain.Authoritative("repost", err)
	}
	if res.MatchedCount == 0 {
		if err := s.checkAuthor(ctx, postId, userId); err != nil && !errors.Is(err, domain.ErrForbidden) {
			return nil, err
		}
		return nil, domain.ErrSelfRepost
	}
	post, err := s.PostById(ctx, postId)
	if err != nil {
		return nil, err
	}
	return post.Reposts, nil
}
