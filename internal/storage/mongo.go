package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"pagebuilder/internal/domain"
)

// MongoStore implements Store on MongoDB. Pages are kept as their JSON
// text so unknown fields survive exactly.
type MongoStore struct {
	client    *mongo.Client
	staging   *mongo.Collection
	live      *mongo.Collection
	revisions *mongo.Collection
	newID     domain.IDFunc
}

type pageDoc struct {
	Slug      string `bson:"_id"`
	Body      string `bson:"body"`
	UpdatedAt int64  `bson:"updatedAt"`
}

type revisionDoc struct {
	ID        string `bson:"_id"`
	Slug      string `bson:"slug"`
	Label     string `bson:"label"`
	Body      string `bson:"body"`
	CreatedAt int64  `bson:"createdAt"`
}

// OpenMongo connects to uri and uses the given database.
func OpenMongo(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		clientOpts.SetTimeout(timeout)
	}
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, domain.Wrap(domain.KindNetworkTransient, "ping mongodb", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		staging:   db.Collection("staging_pages"),
		live:      db.Collection("live_pages"),
		revisions: db.Collection("page_revisions"),
		newID:     domain.NewID,
	}
	_, err = s.revisions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "slug", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		log.Printf("storage: create revision index: %v", err)
	}
	return s, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) FetchStaging(ctx context.Context, slug string) (*domain.Page, error) {
	return s.fetch(ctx, "fetch staging", s.staging, slug)
}

func (s *MongoStore) FetchLive(ctx context.Context, slug string) (*domain.Page, error) {
	return s.fetch(ctx, "fetch live", s.live, slug)
}

func (s *MongoStore) fetch(ctx context.Context, op string, coll *mongo.Collection, slug string) (*domain.Page, error) {
	var doc pageDoc
	err := coll.FindOne(ctx, bson.M{"_id": slug}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.Errorf(domain.KindNotFound, op, "page %s", slug)
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindNetworkTransient, op, err)
	}
	return domain.ParsePage([]byte(doc.Body))
}

func (s *MongoStore) SaveStaging(ctx context.Context, p *domain.Page) error {
	if p == nil || p.Slug == "" {
		return domain.Errorf(domain.KindInvalidInput, "save staging", "page has no slug")
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	return s.put(ctx, "save staging", s.staging, pageDoc{Slug: p.Slug, Body: string(body), UpdatedAt: time.Now().UnixMilli()})
}

func (s *MongoStore) put(ctx context.Context, op string, coll *mongo.Collection, doc pageDoc) error {
	_, err := coll.UpdateOne(ctx,
		bson.M{"_id": doc.Slug},
		bson.M{"$set": bson.M{"body": doc.Body, "updatedAt": doc.UpdatedAt}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return domain.Wrap(domain.KindNetworkTransient, op, err)
	}
	return nil
}

// Publish copies staging to live and records a revision. MongoDB
// standalone servers have no transactions, so the live write comes
// first and a failed revision insert is only logged.
func (s *MongoStore) Publish(ctx context.Context, slug string) error {
	var doc pageDoc
	err := s.staging.FindOne(ctx, bson.M{"_id": slug}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Errorf(domain.KindNotFound, "publish", "no staging page for %s", slug)
	}
	if err != nil {
		return domain.Wrap(domain.KindNetworkTransient, "publish", err)
	}
	now := time.Now().UnixMilli()
	if err := s.put(ctx, "publish", s.live, pageDoc{Slug: slug, Body: doc.Body, UpdatedAt: now}); err != nil {
		return err
	}
	rev := revisionDoc{ID: s.newID(), Slug: slug, Label: revisionLabel(doc.Body), Body: doc.Body, CreatedAt: now}
	if _, err := s.revisions.InsertOne(ctx, rev); err != nil {
		log.Printf("storage: record revision of %s: %v", slug, err)
		return nil
	}
	s.pruneRevisions(ctx, slug, MaxRevisions)
	return nil
}

func (s *MongoStore) Revisions(ctx context.Context, slug string) ([]Revision, error) {
	cursor, err := s.revisions.Find(ctx, bson.M{"slug": slug},
		options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
			SetProjection(bson.M{"body": 0}),
	)
	if err != nil {
		return nil, fmt.Errorf("load revisions: %w", err)
	}
	var docs []revisionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode revisions: %w", err)
	}
	out := make([]Revision, len(docs))
	for i, d := range docs {
		out[i] = Revision{ID: d.ID, Slug: d.Slug, Label: d.Label, CreatedAt: time.UnixMilli(d.CreatedAt)}
	}
	return out, nil
}

func (s *MongoStore) Revision(ctx context.Context, id string) (*domain.Page, error) {
	var doc revisionDoc
	err := s.revisions.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.Errorf(domain.KindNotFound, "load revision", "revision %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load revision: %w", err)
	}
	return domain.ParsePage([]byte(doc.Body))
}

func (s *MongoStore) pruneRevisions(ctx context.Context, slug string, keep int) {
	revs, err := s.Revisions(ctx, slug)
	if err != nil || len(revs) <= keep {
		return
	}
	ids := make([]string, 0, len(revs)-keep)
	for _, r := range revs[keep:] {
		ids = append(ids, r.ID)
	}
	if _, err := s.revisions.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		log.Printf("storage: prune revisions of %s: %v", slug, err)
	}
}

func (s *MongoStore) Fingerprint(ctx context.Context, slug string) (int64, error) {
	var doc pageDoc
	err := s.staging.FindOne(ctx, bson.M{"_id": slug},
		options.FindOne().SetProjection(bson.M{"updatedAt": 1}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fingerprint %s: %w", slug, err)
	}
	return doc.UpdatedAt, nil
}

func (s *MongoStore) ListSlugs(ctx context.Context) ([]string, error) {
	cursor, err := s.staging.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	var docs []pageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode slugs: %w", err)
	}
	slugs := make([]string, len(docs))
	for i, d := range docs {
		slugs[i] = d.Slug
	}
	return slugs, nil
}
