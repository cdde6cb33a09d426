package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo is the Store backed by a MongoDB database.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// Connect opens the client and pings the server.
func Connect(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("[db] connected to %s/%s", uri, database)
	return &Mongo{Client: client, Database: client.Database(database)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

func (m *Mongo) Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cursor, err := m.Database.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return docs, nil
}

func (m *Mongo) FindByID(ctx context.Context, collection string, id primitive.ObjectID) (bson.M, error) {
	var doc bson.M
	err := m.Database.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find %s %s: %w", collection, id.Hex(), err)
	}
	return doc, nil
}

func (m *Mongo) Insert(ctx context.Context, collection string, doc any) (primitive.ObjectID, error) {
	res, err := m.Database.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert %s: %w", collection, err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("insert %s: unexpected id type %T", collection, res.InsertedID)
	}
	return id, nil
}

// UpdateByID replaces the whole document.
func (m *Mongo) UpdateByID(ctx context.Context, collection string, id primitive.ObjectID, doc any) error {
	replacement, err := Encode(doc)
	if err != nil {
		return err
	}
	replacement["_id"] = id
	res, err := m.Database.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, replacement)
	if err != nil {
		return fmt.Errorf("update %s %s: %w", collection, id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return &NotFoundError{Collection: collection, ID: id}
	}
	return nil
}

func (m *Mongo) DeleteByID(ctx context.Context, collection string, id primitive.ObjectID) error {
	res, err := m.Database.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", collection, id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return &NotFoundError{Collection: collection, ID: id}
	}
	return nil
}

// EnsureIndexes creates the lookup indexes. Genre names are unique ignoring
// case, which the collation strength 2 index enforces on the server too.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	caseless := &options.Collation{Locale: "en", Strength: 2}

	_, err := m.Database.Collection(GenresCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true).SetCollation(caseless),
	})
	if err != nil {
		return fmt.Errorf("genre name index: %w", err)
	}

	for _, coll := range []string{BandsCollection, LocationsCollection, UnvalidatedLocationsCollection} {
		_, err := m.Database.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetCollation(caseless),
		})
		if err != nil {
			return fmt.Errorf("%s name index: %w", coll, err)
		}
	}

	for _, coll := range []string{EventsCollection, ArchivedEventsCollection, UnvalidatedEventsCollection} {
		_, err := m.Database.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "location", Value: 1}},
		})
		if err != nil {
			return fmt.Errorf("%s location index: %w", coll, err)
		}
	}
	return nil
}
