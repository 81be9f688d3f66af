package health

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSink persists monitor history to a MongoDB collection, for
// deployments that want health trends to outlive the process.
type MongoSink struct {
	coll *mongo.Collection
}

// NewMongoSink connects to MongoDB and stores summaries in the given
// database and collection.
func NewMongoSink(ctx context.Context, uri, database, collection string) (*MongoSink, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoSink{coll: client.Database(database).Collection(collection)}, nil
}

// Append inserts one summary document.
func (s *MongoSink) Append(ctx context.Context, sum Summary) error {
	_, err := s.coll.InsertOne(ctx, sum)
	return err
}

// Recent returns up to n summaries, newest last.
func (s *MongoSink) Recent(ctx context.Context, n int) ([]Summary, error) {
	if n <= 0 {
		n = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "time", Value: -1}}).SetLimit(int64(n))
	cur, err := s.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Summary
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	// Reverse to newest-last, matching MemorySink.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Close disconnects the underlying client.
func (s *MongoSink) Close(ctx context.Context) error {
	return s.coll.Database().Client().Disconnect(ctx)
}

// Ensure MongoSink implements HistorySink.
var _ HistorySink = (*MongoSink)(nil)
