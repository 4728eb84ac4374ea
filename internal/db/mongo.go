package db

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoConnectTimeout = 15 * time.Second

// Mongo holds a connected client and the application database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongo(uri, dbName string) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), mongoConnectTimeout)
	defer cancel()

	start := time.Now()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongo connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "mongo ping")
	}

	logger.Log.WithFields(logrus.Fields{
		"uri":     redactURI(uri),
		"db":      dbName,
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
	}).Info("mongo connected")

	return &Mongo{client: client, db: client.Database(dbName)}, nil
}

func (m *Mongo) Database() *mongo.Database { return m.db }

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func redactURI(raw string) string {
	if !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}
