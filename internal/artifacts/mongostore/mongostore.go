// Package mongostore keeps case artifacts in a MongoDB collection.
package mongostore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/polluterofminds/parallax-server/internal/artifacts"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "artifacts"

type document struct {
	ID         string            `bson:"_id"`
	CID        string            `bson:"cid"`
	Name       string            `bson:"name"`
	Visibility string            `bson:"visibility"`
	Tags       map[string]string `bson:"tags"`
	Content    []byte            `bson:"content"`
	CreatedAt  time.Time         `bson:"created_at"`
}

func (d document) artifact() artifacts.Artifact {
	tags := d.Tags
	if tags == nil {
		tags = map[string]string{}
	}
	return artifacts.Artifact{
		ID:         d.ID,
		CID:        d.CID,
		Name:       d.Name,
		Visibility: artifacts.Visibility(d.Visibility),
		Tags:       tags,
		Content:    d.Content,
		CreatedAt:  d.CreatedAt,
	}
}

// Store implements [artifacts.Store] on MongoDB.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// Connect dials uri and verifies the connection with a ping.
func Connect(ctx context.Context, uri string, database string, logger *slog.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // connection timeout
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongodb")
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collectionName),
		logger:     logger.With("source", "MongoArtifactStore"),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return errors.Wrap(err, "disconnect mongodb")
	}
	return nil
}

func (s *Store) Put(ctx context.Context, a artifacts.Artifact) (artifacts.Artifact, error) {
	a.ID = uuid.NewString()
	a.CID = artifacts.ContentID(a.Content)
	a.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if a.Tags == nil {
		a.Tags = map[string]string{}
	}
	doc := document{
		ID:         a.ID,
		CID:        a.CID,
		Name:       a.Name,
		Visibility: string(a.Visibility),
		Tags:       a.Tags,
		Content:    a.Content,
		CreatedAt:  a.CreatedAt,
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return artifacts.Artifact{}, errors.Wrap(err, "insert artifact", slog.String("name", a.Name))
	}
	return a, nil
}

func (s *Store) Get(ctx context.Context, id string) (artifacts.Artifact, error) {
	var doc document
	if err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return artifacts.Artifact{}, errors.Wrap(artifacts.ErrNotFound, "get artifact", slog.String("id", id))
		}
		return artifacts.Artifact{}, errors.Wrap(err, "get artifact", slog.String("id", id))
	}
	return doc.artifact(), nil
}

// filterDocument translates filter into a MongoDB query. Tag keys are matched as subdocument fields.
func filterDocument(filter artifacts.Filter) bson.D {
	query := bson.D{}
	if filter.Visibility != "" {
		query = append(query, bson.E{Key: "visibility", Value: string(filter.Visibility)})
	}
	for k, v := range filter.Tags {
		query = append(query, bson.E{Key: "tags." + k, Value: v})
	}
	return query
}

func (s *Store) List(ctx context.Context, filter artifacts.Filter) ([]artifacts.Artifact, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection.Find(ctx, filterDocument(filter), opts)
	if err != nil {
		return nil, errors.Wrap(err, "find artifacts")
	}
	var docs []document
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode artifacts")
	}
	var result []artifacts.Artifact
	for _, doc := range docs {
		result = append(result, doc.artifact())
	}
	return result, nil
}

func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return errors.Wrap(err, "delete artifacts", slog.Int("count", len(ids)))
	}
	s.logger.LogAttrs(ctx, slog.LevelDebug, "deleted artifacts", slog.Int64("deleted", res.DeletedCount))
	return nil
}
