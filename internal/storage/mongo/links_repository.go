package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/linklytics/linklytics/internal/infrastructure/db"
	"github.com/linklytics/linklytics/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const linksCollectionName = "links"

type LinksRepository struct {
	coll *mongo.Collection
}

// linkDoc uses the short id itself as _id, so redirects and the clicks
// $lookup join are both straight key lookups.
type linkDoc struct {
	ID          string     `bson:"_id"`
	OriginalURL string     `bson:"originalURL"`
	Alias       string     `bson:"alias,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt"`
	ExpiresAt   *time.Time `bson:"expDate,omitempty"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{coll: m.Collection(linksCollectionName)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	doc := linkDoc{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		Alias:       link.Alias,
		CreatedAt:   link.CreatedAt.UTC(),
		ExpiresAt:   link.ExpiresAt,
	}

	_, err := r.coll.InsertOne(ctx, doc)
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return links.ErrIDTaken
	}

	return err
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}

	return nil, err
}

func (r *LinksRepository) CountAll(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.D{})
}

func (r *LinksRepository) Recent(ctx context.Context, limit int64) ([]links.Link, error) {
	if limit <= 0 {
		limit = 10
	}

	cur, err := r.coll.Find(
		ctx,
		bson.D{},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}}).
			SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]links.Link, 0, limit)
	for cur.Next(ctx) {
		var doc linkDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, *mapLinkDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func mapLinkDoc(doc linkDoc) *links.Link {
	return &links.Link{
		ID:          doc.ID,
		OriginalURL: doc.OriginalURL,
		Alias:       doc.Alias,
		CreatedAt:   doc.CreatedAt,
		ExpiresAt:   doc.ExpiresAt,
	}
}
