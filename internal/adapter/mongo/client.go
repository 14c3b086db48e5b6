package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique listing key and the run lookup index.
func EnsureIndexes(ctx context.Context, coll *mongo.Collection, runField string) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "website", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("listing_key"),
		},
		{
			Keys:    bson.D{{Key: runField, Value: 1}},
			Options: options.Index().SetName(runField),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
	}
	return nil
}

// upsertByKey replaces every field of doc on the (code, website) document
// except first_seen, which is only written on insert.
func upsertByKey(ctx context.Context, coll *mongo.Collection, code, website string, doc any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode listing %s/%s: %w", website, code, err)
	}
	var set bson.M
	if err := bson.Unmarshal(raw, &set); err != nil {
		return fmt.Errorf("encode listing %s/%s: %w", website, code, err)
	}
	firstSeen := set["first_seen"]
	delete(set, "first_seen")

	filter := bson.D{{Key: "code", Value: code}, {Key: "website", Value: website}}
	update := bson.D{
		{Key: "$set", Value: set},
		{Key: "$setOnInsert", Value: bson.D{{Key: "first_seen", Value: firstSeen}}},
	}
	_, err = coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func forEach[T any](ctx context.Context, coll *mongo.Collection, filter bson.D, fn func(*T) error) error {
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var item T
		if err := cur.Decode(&item); err != nil {
			return fmt.Errorf("decode %s document: %w", coll.Name(), err)
		}
		if err := fn(&item); err != nil {
			return err
		}
	}
	return cur.Err()
}
