// Package docdb provides the MongoDB backed store for the feed service.
package docdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Royleong31/Blog-APIs/internal/sdk/models"
	"github.com/Royleong31/Blog-APIs/internal/sdk/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection   = "users"
	postsCollection   = "posts"
	uploadsCollection = "uploads"
)

// Store implements store.Store on MongoDB collections.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	posts    *mongo.Collection
	uploads  *mongo.Collection
	database string
	log      *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New connects using MONGO_URI and MONGO_DATABASE and makes sure the unique
// email index exists.
func New(ctx context.Context, log *slog.Logger) (*Store, error) {
	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")
	database := getEnv("MONGO_DATABASE", "feed")

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		users:    db.Collection(usersCollection),
		posts:    db.Collection(postsCollection),
		uploads:  db.Collection(uploadsCollection),
		database: database,
		log:      log,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating email index: %w", err)
	}

	_, err = s.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating createdAt index: %w", err)
	}
	return nil
}

// Health pings the primary and reports collection sizes.
func (s *Store) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	stats := map[string]string{"driver": "mongo", "database": s.database}

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"
	if n, err := s.posts.EstimatedDocumentCount(ctx); err == nil {
		stats["posts"] = strconv.FormatInt(n, 10)
	}
	if n, err := s.users.EstimatedDocumentCount(ctx); err == nil {
		stats["accounts"] = strconv.FormatInt(n, 10)
	}
	return stats
}

func (s *Store) Close(ctx context.Context) error {
	s.log.Info("disconnecting from mongo", "database", s.database)
	return s.client.Disconnect(ctx)
}

// ---------------------------------------------
// Accounts
// ---------------------------------------------

func (s *Store) GetAccountByID(ctx context.Context, accountID string) (models.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": accountID})
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return s.findAccount(ctx, bson.M{"email": email})
}

func (s *Store) findAccount(ctx context.Context, filter bson.M) (models.Account, error) {
	var a models.Account
	if err := s.users.FindOne(ctx, filter).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Account{}, store.ErrNotFound
		}
		return models.Account{}, fmt.Errorf("selecting account: %w", err)
	}
	if a.Posts == nil {
		a.Posts = []string{}
	}
	return a, nil
}

func (s *Store) CreateAccount(ctx context.Context, na models.NewAccount) (models.Account, error) {
	a := models.Account{
		ID:       uuid.NewString(),
		Email:    na.Email,
		Password: na.Password,
		Name:     na.Name,
		Status:   models.DefaultStatus,
		Posts:    []string{},
	}

	if _, err := s.users.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Account{}, store.ErrDuplicate
		}
		return models.Account{}, fmt.Errorf("creating account: %w", err)
	}
	return a, nil
}

func (s *Store) UpdateAccountStatus(ctx context.Context, accountID, status string) (models.Account, error) {
	var a models.Account
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": accountID},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Account{}, store.ErrNotFound
		}
		return models.Account{}, fmt.Errorf("updating account status: %w", err)
	}
	return a, nil
}

func (s *Store) AddAccountPost(ctx context.Context, accountID, postID string) error {
	return s.updateAccountPosts(ctx, accountID, bson.M{"$addToSet": bson.M{"posts": postID}})
}

func (s *Store) RemoveAccountPost(ctx context.Context, accountID, postID string) error {
	return s.updateAccountPosts(ctx, accountID, bson.M{"$pull": bson.M{"posts": postID}})
}

func (s *Store) updateAccountPosts(ctx context.Context, accountID string, update bson.M) error {
	res, err := s.users.UpdateByID(ctx, accountID, update)
	if err != nil {
		return fmt.Errorf("updating account posts: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---------------------------------------------
// Posts
// ---------------------------------------------

func (s *Store) CreatePost(ctx context.Context, np models.NewPost) (models.Post, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	p := models.Post{
		ID:        uuid.NewString(),
		Title:     np.Title,
		Content:   np.Content,
		ImageURL:  np.ImageURL,
		CreatorID: np.CreatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.posts.InsertOne(ctx, p); err != nil {
		return models.Post{}, fmt.Errorf("creating post: %w", err)
	}
	return p, nil
}

func (s *Store) GetPostByID(ctx context.Context, postID string) (models.Post, error) {
	var p models.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": postID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Post{}, store.ErrNotFound
		}
		return models.Post{}, fmt.Errorf("selecting post: %w", err)
	}
	return p, nil
}

func (s *Store) UpdatePost(ctx context.Context, post models.Post) (models.Post, error) {
	var p models.Post
	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": post.ID},
		bson.M{"$set": bson.M{
			"title":     post.Title,
			"content":   post.Content,
			"imageUrl":  post.ImageURL,
			"updatedAt": time.Now().UTC().Truncate(time.Millisecond),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Post{}, store.ErrNotFound
		}
		return models.Post{}, fmt.Errorf("updating post: %w", err)
	}
	return p, nil
}

func (s *Store) DeletePost(ctx context.Context, postID string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": postID})
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---------------------------------------------
// Uploads
// ---------------------------------------------

type uploadDocument struct {
	Key       string    `bson:"_id"`
	AccountID string    `bson:"accountId"`
	CreatedAt time.Time `bson:"createdAt"`
}

func (s *Store) RecordUpload(ctx context.Context, key, accountID string) error {
	doc := uploadDocument{Key: key, AccountID: accountID, CreatedAt: time.Now().UTC()}
	if _, err := s.uploads.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("recording upload: %w", err)
	}
	return nil
}

func (s *Store) ClaimUpload(ctx context.Context, key, accountID string) error {
	res, err := s.uploads.DeleteOne(ctx, bson.M{"_id": key, "accountId": accountID})
	if err != nil {
		return fmt.Errorf("claiming upload: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListPosts(ctx context.Context, page, perPage int) ([]models.Post, int, error) {
	total, err := s.posts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("counting posts: %w", err)
	}

	cur, err := s.posts.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(store.Offset(page, perPage))).
		SetLimit(int64(perPage)))
	if err != nil {
		return nil, 0, fmt.Errorf("listing posts: %w", err)
	}

	posts := make([]models.Post, 0, perPage)
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, fmt.Errorf("decoding posts: %w", err)
	}
	return posts, int(total), nil
}
