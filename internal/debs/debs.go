package deps

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bwise1/barrier_reports/config"
	"github.com/bwise1/barrier_reports/internal/db"
	"github.com/bwise1/barrier_reports/internal/http/classifier"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/internal/routing"
	"github.com/bwise1/barrier_reports/internal/store"
	"github.com/bwise1/barrier_reports/util/cache"
	"github.com/bwise1/barrier_reports/util/storage"
	"github.com/bwise1/barrier_reports/util/websockets"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Classifier categorizes a single media asset.
type Classifier interface {
	Classify(ctx context.Context, m classifier.Media) (model.AnalysisResult, error)
}

type Dependencies struct {
	Backend    store.Backend
	Reports    *store.ReportStore
	Areas      *store.AreaStore
	Cache      cache.Client
	Media      storage.MediaStore
	Classifier Classifier
	Feed       *websockets.WebSocketManager
}

// New connects every configured backend. Optional services that are not
// configured are left disabled.
func New(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	var cacheClient cache.Client
	if cfg.RedisAddr != "" {
		cacheClient = cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := cacheClient.Ping(ctx); err != nil {
			logger.Log.WithError(err).Warn("redis unreachable, area cache will fall through to the backend")
		}
	}

	d := Assemble(backend, cacheClient, cfg.AreaCacheTTL)

	d.Media, err = newMediaStore(ctx, cfg)
	if err != nil {
		_ = backend.Close(ctx)
		return nil, err
	}

	if cfg.ClassifierURL != "" {
		c, err := classifier.NewClient(cfg.ClassifierURL, cfg.ClassifierAPIKey, cfg.ClassifierModel, cfg.ClassifierTimeout)
		if err != nil {
			_ = backend.Close(ctx)
			return nil, err
		}
		d.Classifier = c
	} else {
		logger.Log.Warn("CLASSIFIER_URL not set, /analyze is disabled")
	}

	logger.Log.WithFields(logrus.Fields{
		"store":       backend.Driver(),
		"media_store": d.Media.Name(),
		"area_cache":  cacheClient != nil,
	}).Info("dependencies ready")
	return d, nil
}

// Assemble wires the stores on top of backend. Routing always asks the
// backend; a non-nil cacheClient only fronts the area listing.
func Assemble(backend store.Backend, cacheClient cache.Client, ttl time.Duration) *Dependencies {
	var listing store.ListingCache
	if cacheClient != nil {
		listing = store.NewAreaCache(backend, cacheClient, ttl)
	}

	return &Dependencies{
		Backend: backend,
		Reports: store.NewReportStore(backend, routing.New(backend)),
		Areas:   store.NewAreaStore(backend, listing),
		Cache:   cacheClient,
		Media:   storage.Disabled(),
		Feed:    websockets.NewWebSocketManager(),
	}
}

func newBackend(cfg *config.Config) (store.Backend, error) {
	switch cfg.StoreDriver {
	case "", "memory":
		return store.NewMemory(), nil
	case "postgres":
		database, err := db.New(cfg.Dsn)
		if err != nil {
			return nil, errors.Wrap(err, "connect postgres")
		}
		return store.NewPostgres(database), nil
	case "mongo":
		conn, err := db.NewMongo(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}
		return store.NewMongo(conn), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

func newMediaStore(ctx context.Context, cfg *config.Config) (storage.MediaStore, error) {
	switch cfg.MediaStore {
	case "", "none":
		return storage.Disabled(), nil
	case "cloudinary":
		return storage.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	default:
		return nil, fmt.Errorf("unknown MEDIA_STORE %q", cfg.MediaStore)
	}
}

func (d *Dependencies) Close(ctx context.Context) error {
	if c, ok := d.Cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logger.Log.WithError(err).Warn("closing redis")
		}
	}
	return d.Backend.Close(ctx)
}
