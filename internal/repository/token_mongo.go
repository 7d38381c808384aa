package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

const refreshCollection = "refresh_tokens"

type refreshDoc struct {
	UserID    uint64    `bson:"userId"`
	TokenHash string    `bson:"tokenHash"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoTokenRepo is the MongoDB variant of TokenRepo.  One document per
// user, keyed by a unique index on userId.
type MongoTokenRepo struct {
	col *mongo.Collection
}

func NewMongoTokenRepo(db *mongo.Database) *MongoTokenRepo {
	return &MongoTokenRepo{col: db.Collection(refreshCollection)}
}

// EnsureIndexes creates the unique indexes the single-token rule relies on.
func (r *MongoTokenRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "tokenHash", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return err
}

func (r *MongoTokenRepo) Replace(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	doc := refreshDoc{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"userId": userID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoTokenRepo) FindByHash(ctx context.Context, tokenHash string) (model.RefreshToken, error) {
	var doc refreshDoc
	err := r.col.FindOne(ctx, bson.M{"tokenHash": tokenHash}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.RefreshToken{}, ErrTokenNotFound
	}
	if err != nil {
		return model.RefreshToken{}, err
	}
	return model.RefreshToken{
		UserID:    doc.UserID,
		TokenHash: doc.TokenHash,
		ExpiresAt: doc.ExpiresAt,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (r *MongoTokenRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"userId": userID})
	return err
}
