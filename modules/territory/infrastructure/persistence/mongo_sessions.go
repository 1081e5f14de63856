package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iota-uz/territory-status/modules/territory/domain/importsession"
)

const sessionsCollection = "import_sessions"

type MongoSessionRepository struct {
	coll *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) importsession.Repository {
	return &MongoSessionRepository{coll: db.Collection(sessionsCollection)}
}

func (r *MongoSessionRepository) Create(ctx context.Context, s *importsession.Session) error {
	if _, err := r.coll.InsertOne(ctx, s); err != nil {
		return gerrors.Wrap(err, "insert import session")
	}
	return nil
}

func (r *MongoSessionRepository) Save(ctx context.Context, s *importsession.Session) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return gerrors.Wrap(err, "replace import session")
	}
	if res.MatchedCount == 0 {
		return importsession.ErrNotFound
	}
	return nil
}

func (r *MongoSessionRepository) Get(ctx context.Context, id string) (*importsession.Session, error) {
	var s importsession.Session
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if gerrors.Is(err, mongo.ErrNoDocuments) {
		return nil, importsession.ErrNotFound
	}
	if err != nil {
		return nil, gerrors.Wrap(err, "find import session")
	}
	return &s, nil
}

func (r *MongoSessionRepository) List(ctx context.Context, limit int) ([]*importsession.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, gerrors.Wrap(err, "list import sessions")
	}
	var out []*importsession.Session
	if err := cur.All(ctx, &out); err != nil {
		return nil, gerrors.Wrap(err, "decode import sessions")
	}
	return out, nil
}
