package mongodb

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/trezcool/soko/core"
)

// collections
const (
	usersCollection     = "users"
	coursesCollection   = "courses"
	purchasesCollection = "purchases"
	progressCollection  = "courseProgress"
)

// Open connects to the document store and pings it before returning.
func Open(ctx context.Context, conf *core.Config) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, conf.Mongo.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(conf.Mongo.URI).
		SetTimeout(conf.Mongo.Timeout),
	)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to document store")
	}
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "pinging document store")
	}
	return client.Database(conf.Mongo.Name), nil
}

func Close(ctx context.Context, db *mongo.Database) error {
	return errors.Wrap(db.Client().Disconnect(ctx), "disconnecting document store")
}
