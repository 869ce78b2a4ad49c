package config

import (
	"context"
	"errors"
	"os"
	"time"

	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AuditRetention bounds how long security audit entries are kept.
const AuditRetention = 180 * 24 * time.Hour

// MongoDatabase returns the configured database, "yoointerview" by default.
func MongoDatabase() (*mongo.Database, error) {
	if MongoClient == nil {
		return nil, errors.New("MongoClient is nil; call InitMongo() first")
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "yoointerview"
	}
	return MongoClient.Database(dbName), nil
}

func EnsureMongoIndexes() error {
	db, err := MongoDatabase()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	audit := db.Collection(mongorepo.SecurityAuditCollection)
	_, err = audit.Indexes().CreateMany(ctx, []mongo.IndexModel{
		// AuditTrail reads one session in time order
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "timestamp", Value: 1}},
			Options: options.Index().SetName("by_session_ts"),
		},
		{
			Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("by_student_ts"),
		},
		{
			Keys: bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().
				SetName("ttl_timestamp").
				SetExpireAfterSeconds(int32(AuditRetention / time.Second)),
		},
	})
	return err
}
